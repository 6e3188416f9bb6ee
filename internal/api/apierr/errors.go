package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/averho/chatgate/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeAuthMisconfigured = "AUTH_MISCONFIGURED"
	CodeNotRoomMember     = "NOT_ROOM_MEMBER"
	CodeInsufficientRole  = "INSUFFICIENT_ROOM_PERMISSIONS"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status the error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. The forbidden messages are
// stable contract: callers and tests assert on them, not just the status.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrNoToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, model.ErrNoToken.Error()}}
	case errors.Is(err, model.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, model.ErrInvalidToken.Error()}}
	case errors.Is(err, model.ErrMissingSecret):
		// Server-side misconfiguration, not a client failure
		return &httpError{http.StatusInternalServerError, APIError{CodeAuthMisconfigured, "Authentication is not configured"}}
	case errors.Is(err, model.ErrNotRoomMember):
		return &httpError{http.StatusForbidden, APIError{CodeNotRoomMember, "Not a member of this room"}}
	case errors.Is(err, model.ErrInsufficientRole):
		return &httpError{http.StatusForbidden, APIError{CodeInsufficientRole, "Insufficient room permissions"}}
	case errors.Is(err, model.ErrInvalidRoomID):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Invalid room id"}}
	case errors.Is(err, model.ErrMissingRoomID):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Room id not provided"}}
	default:
		// Store failures and anything unexpected fail safe as a 500
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
