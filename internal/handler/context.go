package handler

import (
	"net/http"
	"strconv"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"medcircle/internal/auth"
	"medcircle/internal/errors"
	"medcircle/internal/logging"
	"medcircle/internal/model"
)

// ClaimsKey is where the JWT middleware stores verified *auth.Claims.
const ClaimsKey = "user"

// CurrentUser returns the verified identity on the request, if any.
func CurrentUser(c echo.Context) (model.CurrentUser, bool) {
	claims, ok := c.Get(ClaimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return model.CurrentUser{}, false
	}
	return model.CurrentUser{
		ID:      claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, true
}

func requireUser(c echo.Context) (model.CurrentUser, error) {
	user, ok := CurrentUser(c)
	if !ok {
		return user, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: errors.ErrUnauthorized.Error(),
			Code:  "UNAUTHORIZED",
		})
	}
	return user, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}
	return nil
}

// respondError maps a service error to an HTTP error. Server faults are
// logged and sent to Sentry; their detail never reaches the client.
func respondError(c echo.Context, err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		reportError(c, err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func reportError(c echo.Context, err error) {
	logging.Logger.Error().Err(err).
		Str("route", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("request failed")
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

func itemRef(c echo.Context) (model.ItemRef, error) {
	kind, err := model.ParseItemKind(c.Param("kind"))
	if err != nil {
		return model.ItemRef{}, respondError(c, err)
	}
	return model.ItemRef{Kind: kind, ID: c.Param("id")}, nil
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

// ListResponse wraps a page of results.
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
