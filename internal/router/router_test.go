package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcircle/internal/auth"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/handler"
	"medcircle/internal/service"
)

type blacklist map[string]bool

func (b blacklist) StoreRefreshToken(context.Context, string, auth.RefreshRecord, time.Duration) error {
	return nil
}
func (b blacklist) GetRefreshToken(context.Context, string) (*auth.RefreshRecord, error) {
	return nil, auth.ErrTokenNotFound
}
func (b blacklist) DeleteRefreshToken(context.Context, string) error { return nil }
func (b blacklist) BlacklistAccessToken(_ context.Context, id string, _ time.Duration) error {
	b[id] = true
	return nil
}
func (b blacklist) IsAccessTokenBlacklisted(_ context.Context, id string) (bool, error) {
	return b[id], nil
}
func (b blacklist) StorePasswordReset(context.Context, string, string, time.Duration) error {
	return nil
}
func (b blacklist) ConsumePasswordReset(context.Context, string) (string, error) {
	return "", auth.ErrTokenNotFound
}

// adminDirectory answers IsAdmin from a fixed set; other methods are unused here.
type adminDirectory struct {
	service.UserService
	admins map[string]bool
}

func (d adminDirectory) IsAdmin(_ context.Context, id string) (bool, error) {
	isAdmin, ok := d.admins[id]
	if !ok {
		return false, apperrors.ErrUserNotFound
	}
	return isAdmin, nil
}

func newTestServer(t *testing.T, tokens blacklist, admins map[string]bool) (*echo.Echo, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService("router-secret")
	g := Guards{JWT: jwtService, Tokens: tokens, Users: adminDirectory{admins: admins}}

	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}
	whoami := func(c echo.Context) error {
		user, ok := handler.CurrentUser(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		if user.IsAdmin {
			return c.String(http.StatusOK, "admin:"+user.ID)
		}
		return c.String(http.StatusOK, user.ID)
	}
	e.GET("/private", whoami, jwtMiddleware(g, false))
	e.GET("/optional", whoami, jwtMiddleware(g, true))
	e.GET("/admin", whoami, jwtMiddleware(g, false), adminMiddleware(g.Users))
	return e, jwtService
}

func call(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	tokens := blacklist{}
	e, jwtService := newTestServer(t, tokens, nil)

	valid, err := jwtService.GenerateAccessToken(auth.Subject{UserID: "u-1"})
	require.NoError(t, err)
	revoked, err := jwtService.GenerateAccessToken(auth.Subject{UserID: "u-2"})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(revoked)
	require.NoError(t, err)
	tokens[claims.ID] = true
	_, refresh, err := jwtService.GenerateRefreshToken(auth.Subject{UserID: "u-1"}, auth.PersistenceLocal)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "/private", valid, http.StatusOK, "u-1"},
		{"missing token", "/private", "", http.StatusUnauthorized, ""},
		{"revoked token", "/private", revoked, http.StatusUnauthorized, ""},
		{"refresh token used as access", "/private", refresh, http.StatusUnauthorized, ""},
		{"optional without token", "/optional", "", http.StatusOK, "anonymous"},
		{"optional with garbage", "/optional", "not-a-jwt", http.StatusOK, "anonymous"},
		{"optional with token", "/optional", valid, http.StatusOK, "u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(e, tt.path, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAdminMiddleware_ReadsRoleFromStore(t *testing.T) {
	e, jwtService := newTestServer(t, blacklist{}, map[string]bool{"boss": true, "member": false})

	// The token predates the promotion; the store decides.
	boss, err := jwtService.GenerateAccessToken(auth.Subject{UserID: "boss", IsAdmin: false})
	require.NoError(t, err)
	rec := call(e, "/admin", boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin:boss", rec.Body.String())

	// A stale admin claim does not survive a demotion.
	member, err := jwtService.GenerateAccessToken(auth.Subject{UserID: "member", IsAdmin: true})
	require.NoError(t, err)
	rec = call(e, "/admin", member)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCustomValidator(t *testing.T) {
	cv := &CustomValidator{validator: validator.New()}
	assert.Error(t, cv.Validate(&handler.ReviewRequest{Decision: "maybe"}))
	assert.NoError(t, cv.Validate(&handler.ReviewRequest{Decision: "approve"}))
}
