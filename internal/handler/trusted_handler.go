package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medcircle/internal/model"
	"medcircle/internal/service"
)

// TrustedHandler serves the trusted-user application workflow.
type TrustedHandler struct {
	trusted service.TrustedService
}

// NewTrustedHandler creates a new trusted-user handler.
func NewTrustedHandler(trusted service.TrustedService) *TrustedHandler {
	return &TrustedHandler{trusted: trusted}
}

// ApplicationRequest is the JSON form of a submission without a document.
type ApplicationRequest struct {
	Message string `json:"message"`
}

// ReviewRequest is an admin decision on a pending application.
type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason"`
}

// DocumentResponse carries a short-lived document link.
type DocumentResponse struct {
	URL string `json:"url"`
}

// Submit godoc
// @Summary Apply for trusted status
// @Description Send multipart/form-data with message and an optional PDF document, or JSON with a message.
// @Tags trusted
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param message formData string false "Message to reviewers"
// @Param document formData file false "Credential PDF up to 10 MiB"
// @Success 201 {object} model.TrustedApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /trusted/applications [post]
func (h *TrustedHandler) Submit(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var in service.ApplicationInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		in.Message = c.FormValue("message")
		if fh, err := c.FormFile("document"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return respondError(c, err)
			}
			defer f.Close()
			in.Document = &service.Upload{Filename: fh.Filename, Size: fh.Size, Reader: f}
		}
	} else {
		var req ApplicationRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		in.Message = req.Message
	}

	app, err := h.trusted.Submit(c.Request().Context(), user, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// Mine godoc
// @Summary The caller's applications, newest first
// @Tags trusted
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.TrustedApplication
// @Failure 401 {object} errors.ErrorResponse
// @Router /trusted/applications/mine [get]
func (h *TrustedHandler) Mine(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	apps, err := h.trusted.Mine(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// Document godoc
// @Summary Presigned link to an application's document
// @Description Available to the applicant and to admins.
// @Tags trusted
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} DocumentResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /trusted/applications/{id}/document [get]
func (h *TrustedHandler) Document(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	url, err := h.trusted.DocumentURL(c.Request().Context(), c.Param("id"), user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, DocumentResponse{URL: url})
}

// List godoc
// @Summary Applications by status
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending (default), approved or rejected"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} ListResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/trusted/applications [get]
func (h *TrustedHandler) List(c echo.Context) error {
	status := model.ApplicationStatus(c.QueryParam("status"))
	if status == "" {
		status = model.ApplicationPending
	}
	page, limit := service.NormalizePage(queryInt(c, "page"), queryInt(c, "limit"))

	apps, total, err := h.trusted.List(c.Request().Context(), status, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ListResponse{Items: apps, Total: total, Page: page, Limit: limit})
}

// Review godoc
// @Summary Approve or reject a pending application
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body ReviewRequest true "Decision"
// @Success 200 {object} model.TrustedApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/trusted/applications/{id}/review [post]
func (h *TrustedHandler) Review(c echo.Context) error {
	admin, err := requireUser(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	app, err := h.trusted.Review(c.Request().Context(), c.Param("id"), req.Decision == "approve", admin, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Revoke godoc
// @Summary Revoke a user's trusted status
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/users/{id}/revoke-trust [post]
func (h *TrustedHandler) Revoke(c echo.Context) error {
	admin, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.trusted.Revoke(c.Request().Context(), c.Param("id"), admin); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
