package router

import (
	"net/http"
	"strings"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"medcircle/docs"
	"medcircle/internal/auth"
	"medcircle/internal/config"
	"medcircle/internal/errors"
	"medcircle/internal/handler"
	"medcircle/internal/logging"
	"medcircle/internal/metrics"
	"medcircle/internal/service"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Content *handler.ContentHandler
	Vote    *handler.VoteHandler
	Comment *handler.CommentHandler
	Trusted *handler.TrustedHandler
	Stream  *handler.StreamHandler
	Health  *handler.HealthHandler
}

// Guards carries what the auth middleware needs to verify a caller.
type Guards struct {
	JWT    *auth.JWTService
	Tokens auth.TokenStoreInterface
	Users  service.UserService
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, h Handlers, g Guards) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Use(metrics.Middleware())
	e.Use(logging.RequestLogger())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e.GET("/healthz", h.Health.Live)
	e.GET("/health/ready", h.Health.Ready)
	e.GET("/metrics", metrics.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	requireAuth := jwtMiddleware(g, false)
	optionalAuth := jwtMiddleware(g, true)
	requireAdmin := adminMiddleware(g.Users)

	api := e.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth", authRateLimiter())
	authGroup.POST("/signup", h.Auth.SignUp)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/google", h.Auth.Google)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout, requireAuth)
	authGroup.POST("/password-reset", h.Auth.RequestPasswordReset)
	authGroup.POST("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
	authGroup.GET("/usernames/:username", h.Auth.CheckUsername)

	// Profile routes
	api.GET("/me", h.User.Me, requireAuth)
	api.PATCH("/me", h.User.UpdateMe, requireAuth)
	api.POST("/me/avatar", h.User.UploadAvatar, requireAuth)
	api.GET("/users/:id", h.User.GetUser)
	api.GET("/users/:id/stream", h.Stream.UserStream)

	// Trusted-user routes
	trusted := api.Group("/trusted/applications", requireAuth)
	trusted.POST("", h.Trusted.Submit)
	trusted.GET("/mine", h.Trusted.Mine)
	trusted.GET("/:id/document", h.Trusted.Document)

	admin := api.Group("/admin", requireAuth, requireAdmin)
	admin.GET("/trusted/applications", h.Trusted.List)
	admin.POST("/trusted/applications/:id/review", h.Trusted.Review)
	admin.POST("/users/:id/revoke-trust", h.Trusted.Revoke)

	// Content routes; :kind is posts or questions
	api.GET("/:kind", h.Content.List)
	api.POST("/:kind", h.Content.Create, requireAuth)
	api.GET("/:kind/:id", h.Content.Get, optionalAuth)
	api.DELETE("/:kind/:id", h.Content.Delete, requireAuth)
	api.POST("/:kind/:id/views", h.Content.RecordView, optionalAuth)
	api.GET("/:kind/:id/stream", h.Stream.Stream)

	api.POST("/:kind/:id/vote", h.Vote.CastVote, requireAuth)
	api.GET("/:kind/:id/vote", h.Vote.GetVote, requireAuth)

	api.GET("/:kind/:id/comments", h.Comment.List)
	api.POST("/:kind/:id/comments", h.Comment.Post, requireAuth)
	api.PATCH("/:kind/:id/comments/:commentId", h.Comment.Edit, requireAuth)
	api.DELETE("/:kind/:id/comments/:commentId", h.Comment.Delete, requireAuth)
	api.POST("/:kind/:id/comments/:commentId/like", h.Comment.ToggleLike, requireAuth)
}

// jwtMiddleware verifies the bearer access token and rejects blacklisted ones.
// With optional set, a missing or bad token lets the request through anonymously.
func jwtMiddleware(g Guards, optional bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:             handler.ClaimsKey,
		TokenLookup:            "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContinueOnIgnoredError: optional,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := g.JWT.ValidateAccessToken(token)
			if err != nil {
				return nil, err
			}
			revoked, err := g.Tokens.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
			if err != nil {
				return nil, err
			}
			if revoked {
				return nil, errors.ErrUnauthorized
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if optional {
				return nil
			}
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid or missing access token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// adminMiddleware re-reads the admin flag from the profile store so a token
// minted before a role change cannot outlive it.
func adminMiddleware(users service.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(handler.ClaimsKey).(*auth.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: errors.ErrUnauthorized.Error(),
					Code:  "UNAUTHORIZED",
				})
			}
			isAdmin, err := users.IsAdmin(c.Request().Context(), claims.UserID)
			if err != nil {
				httpErr := errors.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			if !isAdmin {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: errors.ErrForbidden.Error(),
					Code:  "FORBIDDEN",
				})
			}
			elevated := *claims
			elevated.IsAdmin = true
			c.Set(handler.ClaimsKey, &elevated)
			return next(c)
		}
	}
}

func authRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(5),
			Burst:     20,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
