package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medcircle/internal/errors"
	"medcircle/internal/service"
)

// UserHandler serves profile endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=80"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
}

// Me godoc
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	current, err := requireUser(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), current.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update display name or photo URL
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile changes"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	current, err := requireUser(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.UpdateProfile(c.Request().Context(), current.ID, req.DisplayName, req.PhotoURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "JPEG, PNG, GIF or WebP image up to 5 MiB"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me/avatar [post]
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	current, err := requireUser(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "file is required",
			Code:  "VALIDATION_ERROR",
		})
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	user, err := h.svc.UploadAvatar(c.Request().Context(), current.ID, service.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Reader:   f,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetUser godoc
// @Summary Public profile
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user.PublicView())
}
