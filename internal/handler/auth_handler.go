package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medcircle/internal/auth"
	"medcircle/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUpRequest represents a password sign-up request.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Username    string `json:"username" validate:"required,min=3,max=30"`
	DisplayName string `json:"display_name" validate:"required,max=80"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// GoogleLoginRequest carries a Google ID token obtained by the client.
type GoogleLoginRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Remember bool   `json:"remember"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PasswordResetRequest asks for a reset link.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password with a reset token.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse represents a token refresh response.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SignUp godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Sign-up data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.SignUp(c.Request().Context(), service.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Sign in with email and password
// @Description remember=true keeps the refresh token for 30 days, otherwise 12 hours.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// Google godoc
// @Summary Sign in with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body GoogleLoginRequest true "Google ID token"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) Google(c echo.Context) error {
	var req GoogleLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.SignInWithGoogle(c.Request().Context(), req.IDToken, req.Remember)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(auth.AccessTokenExpiry.Seconds()),
	})
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the refresh token and blacklists the current access token.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest false "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claims, _ := c.Get(ClaimsKey).(*auth.Claims)
	if err := h.authService.SignOut(c.Request().Context(), req.RefreshToken, claims); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// RequestPasswordReset godoc
// @Summary Request a password reset link
// @Description Always succeeds so registered emails cannot be probed.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Account email"
// @Success 202 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if the address is registered, a reset link has been sent",
	})
}

// ConfirmPasswordReset godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Reset token and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// UsernameResponse reports whether a username can still be claimed.
type UsernameResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// CheckUsername godoc
// @Summary Check whether a username is free
// @Description Advisory only; sign-up reserves the name atomically.
// @Tags auth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} UsernameResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/usernames/{username} [get]
func (h *AuthHandler) CheckUsername(c echo.Context) error {
	username := c.Param("username")
	available, err := h.authService.UsernameAvailable(c.Request().Context(), username)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, UsernameResponse{Username: username, Available: available})
}
