package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medcircle/internal/service"
)

// CommentHandler handles comment endpoints.
type CommentHandler struct {
	comments service.CommentService
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(comments service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// CommentRequest represents a new comment or reply.
type CommentRequest struct {
	Content string `json:"content" validate:"required"`
	ReplyTo string `json:"reply_to"`
}

// EditCommentRequest replaces a comment's text.
type EditCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// List godoc
// @Summary Comments on an item, threaded
// @Tags comments
// @Produce json
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 200 {array} model.CommentThread
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/comments [get]
func (h *CommentHandler) List(c echo.Context) error {
	ref, err := itemRef(c)
	if err != nil {
		return err
	}
	threads, err := h.comments.ListComments(c.Request().Context(), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, threads)
}

// Post godoc
// @Summary Comment on an item or reply to a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} model.Comment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/comments [post]
func (h *CommentHandler) Post(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.PostComment(c.Request().Context(), ref, user, req.Content, req.ReplyTo)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// Edit godoc
// @Summary Edit own comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Param commentId path string true "Comment ID"
// @Param request body EditCommentRequest true "New text"
// @Success 200 {object} model.Comment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/comments/{commentId} [patch]
func (h *CommentHandler) Edit(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}
	var req EditCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.EditComment(c.Request().Context(), ref, c.Param("commentId"), user.ID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, comment)
}

// Delete godoc
// @Summary Delete a comment and its replies
// @Tags comments
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Param commentId path string true "Comment ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/comments/{commentId} [delete]
func (h *CommentHandler) Delete(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	if err := h.comments.DeleteComment(c.Request().Context(), ref, c.Param("commentId"), user); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleLike godoc
// @Summary Like or unlike a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} model.Comment
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/comments/{commentId}/like [post]
func (h *CommentHandler) ToggleLike(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	comment, err := h.comments.ToggleLike(c.Request().Context(), ref, c.Param("commentId"), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, comment)
}
