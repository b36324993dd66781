package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when input is empty, oversized or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrContentRejected is returned when text fails the content filter.
	ErrContentRejected = errors.New("content does not meet community guidelines")
	// ErrInvalidVoteType is returned for a vote type other than likes or dislikes.
	ErrInvalidVoteType = errors.New("invalid vote type")
	// ErrInvalidItemKind is returned for an unknown item collection.
	ErrInvalidItemKind = errors.New("invalid item kind")

	// ErrUnauthorized is returned when no valid session is present.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the acting user lacks the required role or ownership.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidResetToken is returned when a password reset token is unknown or expired.
	ErrInvalidResetToken = errors.New("invalid or expired password reset token")
	// ErrFederatedToken is returned when a federated identity token cannot be verified.
	ErrFederatedToken = errors.New("federated identity token rejected")

	// ErrUserNotFound is returned when a user profile is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrItemNotFound is returned when a post or question is not found.
	ErrItemNotFound = errors.New("item not found")
	// ErrCommentNotFound is returned when a comment is not found on the item.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrApplicationNotFound is returned when a trusted application is not found.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrUsernameTaken is returned when the lowercase username is already reserved.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when the email already has an identity.
	ErrEmailTaken = errors.New("email already registered")
	// ErrApplicationPending is returned when the user already has a pending application.
	ErrApplicationPending = errors.New("an application is already pending review")
	// ErrAlreadyTrusted is returned when a trusted user applies again.
	ErrAlreadyTrusted = errors.New("user is already trusted")
	// ErrInvalidTransition is returned for a state change the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrContentRejected, http.StatusBadRequest, "CONTENT_REJECTED"},
	{ErrInvalidVoteType, http.StatusBadRequest, "INVALID_VOTE_TYPE"},
	{ErrInvalidItemKind, http.StatusBadRequest, "INVALID_ITEM_KIND"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrFederatedToken, http.StatusUnauthorized, "FEDERATED_TOKEN_REJECTED"},
	{ErrInvalidResetToken, http.StatusBadRequest, "INVALID_RESET_TOKEN"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{ErrCommentNotFound, http.StatusNotFound, "COMMENT_NOT_FOUND"},
	{ErrApplicationNotFound, http.StatusNotFound, "APPLICATION_NOT_FOUND"},
	{ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{ErrApplicationPending, http.StatusConflict, "APPLICATION_PENDING"},
	{ErrAlreadyTrusted, http.StatusConflict, "ALREADY_TRUSTED"},
	{ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Wrapped errors keep their message so validation details reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	return MapErrorToHTTP(err).StatusCode < http.StatusInternalServerError
}
