package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped validation keeps detail", fmt.Errorf("%w: content is required", ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"item not found", ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"pending application", ErrApplicationPending, http.StatusConflict, "APPLICATION_PENDING"},
		{"invalid transition", fmt.Errorf("review: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{"unknown", errors.New("socket closed"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalDetail(t *testing.T) {
	got := MapErrorToHTTP(errors.New("mongo: connection refused 10.0.0.4"))
	assert.Equal(t, "internal server error", got.Message)
	assert.Equal(t, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}, got.ToErrorResponse())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrUsernameTaken))
	assert.False(t, IsClientError(errors.New("boom")))
}
