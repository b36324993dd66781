package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/service"
)

// VoteHandler handles vote endpoints.
type VoteHandler struct {
	voteService service.VoteService
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(voteService service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// VoteRequest represents a vote.
type VoteRequest struct {
	Type string `json:"type" validate:"required"`
}

// VoteResponse reports the caller's current vote; empty when none.
type VoteResponse struct {
	Type model.VoteType `json:"type"`
}

// CastVote godoc
// @Summary Like or dislike an item
// @Description Voting the same type again removes the vote; the other type switches it.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Param request body VoteRequest true "likes or dislikes"
// @Success 200 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /{kind}/{id}/vote [post]
func (h *VoteHandler) CastVote(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}
	var req VoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	item, err := h.voteService.CastVote(c.Request().Context(), ref, user.ID, model.VoteType(req.Type))
	if err != nil {
		if errors.IsClientError(err) {
			return respondError(c, err)
		}
		reportError(c, err)
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to record vote",
			Code:  "VOTE_FAILED",
		})
	}

	return c.JSON(http.StatusOK, item)
}

// GetVote godoc
// @Summary The caller's vote on an item
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 200 {object} VoteResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /{kind}/{id}/vote [get]
func (h *VoteHandler) GetVote(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ref, err := itemRef(c)
	if err != nil {
		return err
	}

	voteType, err := h.voteService.GetUserVote(c.Request().Context(), ref, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, VoteResponse{Type: voteType})
}
