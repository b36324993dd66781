package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	_ "medcircle/docs" // swagger docs

	"medcircle/internal/auth"
	"medcircle/internal/cache"
	"medcircle/internal/config"
	"medcircle/internal/db"
	"medcircle/internal/handler"
	"medcircle/internal/logging"
	"medcircle/internal/metrics"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
	"medcircle/internal/router"
	"medcircle/internal/service"
	"medcircle/internal/storage"
)

// @title MedCircle API
// @version 1.0
// @description Healthcare community API: posts, questions, votes, comments and trusted-professional verification.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, "medcircle-api")
	log := logging.Logger
	metrics.Register()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			log.Error().Err(err).Msg("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()

	mongoClient, mongoDB, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo init")
	}
	if err := db.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql init")
	}
	if err := db.MigrateIdentities(gormDB); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	}

	objects, err := storage.NewMinio(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage init")
	}

	bus := realtime.NewRedisBus(cacheClient.Redis(), log)

	// Initialize repositories
	store := repository.NewStore(mongoClient, mongoDB)
	identityRepo := repository.NewIdentityRepository(gormDB)
	usernameRepo := repository.NewUsernameRepository(mongoDB)
	userRepo := repository.NewUserRepository(mongoDB)
	itemRepo := repository.NewItemRepository(mongoDB)
	voteRepo := repository.NewVoteRepository(mongoDB)
	commentRepo := repository.NewCommentRepository(mongoDB)
	appRepo := repository.NewApplicationRepository(mongoDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	googleVerifier := auth.NewGoogleVerifier(cfg.GoogleClientID)
	mailer := auth.NewLogMailer(log)

	// Initialize services
	filter := service.NewWordFilter()
	authService := service.NewAuthService(identityRepo, usernameRepo, userRepo, jwtService, tokenStore, googleVerifier, mailer, cfg.PublicURL)
	userService := service.NewUserService(userRepo, objects, cacheClient, bus)
	contentService := service.NewContentService(store, itemRepo, userRepo, voteRepo, commentRepo, cacheClient, filter, bus)
	voteService := service.NewVoteService(store, itemRepo, voteRepo, cacheClient, bus)
	viewService := service.NewViewService(itemRepo, cacheClient, cfg.ViewTimeout)
	commentService := service.NewCommentService(store, itemRepo, commentRepo, userRepo, cacheClient, filter, bus)
	trustedService := service.NewTrustedService(store, appRepo, userRepo, objects, cacheClient, bus)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Content: handler.NewContentHandler(contentService, viewService),
		Vote:    handler.NewVoteHandler(voteService),
		Comment: handler.NewCommentHandler(commentService),
		Trusted: handler.NewTrustedHandler(trustedService),
		Stream:  handler.NewStreamHandler(contentService, commentService, userService, bus),
		Health: handler.NewHealthHandler(
			handler.Check{Name: "mongo", Ping: store.Ping},
			handler.Check{Name: "mysql", Ping: func(ctx context.Context) error { return db.Ping(ctx, gormDB) }},
			handler.Check{Name: "redis", Ping: cacheClient.Ping},
			handler.Check{Name: "object_storage", Ping: objects.Ping},
		),
	}, router.Guards{
		JWT:    jwtService,
		Tokens: tokenStore,
		Users:  userService,
	})

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	viewService.Wait()

	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = cacheClient.Close()
	log.Info().Msg("server stopped")
}
