package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medcircle/internal/model"
	"medcircle/internal/service"
)

// ContentHandler serves posts and questions.
type ContentHandler struct {
	content service.ContentService
	views   service.ViewService
}

// NewContentHandler creates a new content handler.
func NewContentHandler(content service.ContentService, views service.ViewService) *ContentHandler {
	return &ContentHandler{content: content, views: views}
}

// CreateItemRequest represents a new post or question. Only questions carry a title.
type CreateItemRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content" validate:"required"`
	Category string   `json:"category" validate:"max=60"`
	Tags     []string `json:"tags"`
}

// List godoc
// @Summary List posts or questions
// @Tags content
// @Produce json
// @Param kind path string true "posts or questions"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Param sort query string false "newest, popular or views"
// @Param tag query string false "Tag filter"
// @Param category query string false "Category filter"
// @Param author query string false "Author user ID"
// @Success 200 {object} ListResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /{kind} [get]
func (h *ContentHandler) List(c echo.Context) error {
	kind, err := model.ParseItemKind(c.Param("kind"))
	if err != nil {
		return respondError(c, err)
	}

	page, limit := service.NormalizePage(queryInt(c, "page"), queryInt(c, "limit"))
	items, total, err := h.content.List(c.Request().Context(), model.ItemFilter{
		Kind:     kind,
		Tag:      c.QueryParam("tag"),
		Category: c.QueryParam("category"),
		AuthorID: c.QueryParam("author"),
		Sort:     model.ItemSort(c.QueryParam("sort")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// Create godoc
// @Summary Publish a post or question
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param request body CreateItemRequest true "Item data"
// @Success 201 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /{kind} [post]
func (h *ContentHandler) Create(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	kind, err := model.ParseItemKind(c.Param("kind"))
	if err != nil {
		return respondError(c, err)
	}
	var req CreateItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	item, err := h.content.Create(c.Request().Context(), kind, user, service.CreateItemInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, item)
}

// Get godoc
// @Summary Fetch one item and count the view
// @Description The view is recorded in the background; the response never waits on it.
// @Tags content
// @Produce json
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 200 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [get]
func (h *ContentHandler) Get(c echo.Context) error {
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	item, err := h.content.Get(c.Request().Context(), ref)
	if err != nil {
		return respondError(c, err)
	}

	viewer, _ := CurrentUser(c)
	h.views.RecordViewAsync(ref, viewer.ID)

	return c.JSON(http.StatusOK, item)
}

// RecordView godoc
// @Summary Record a view
// @Description Accepted immediately; the write happens in the background and its failures are never reported.
// @Tags content
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 202
// @Failure 400 {object} errors.ErrorResponse
// @Router /{kind}/{id}/views [post]
func (h *ContentHandler) RecordView(c echo.Context) error {
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	viewer, _ := CurrentUser(c)
	h.views.RecordViewAsync(ref, viewer.ID)
	return c.NoContent(http.StatusAccepted)
}

// Delete godoc
// @Summary Delete an item with its votes and comments
// @Tags content
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [delete]
func (h *ContentHandler) Delete(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	if err := h.content.Delete(c.Request().Context(), ref, user); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
