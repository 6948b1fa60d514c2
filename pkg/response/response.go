package response

import (
	"errors"
	"net/http"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
)

// Error codes returned in the "code" field.
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeValidation             = "VALIDATION_ERROR"
	CodeConflict               = "CONFLICT"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, code, message string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      message,
		Code:       code,
	}
}

// FromError maps an error to its status and body. Unknown errors become a
// generic 500 so no internal detail reaches the client; the second return
// reports whether that happened so the caller can log the original.
func FromError(err error) (Response, bool) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := Error(http.StatusUnprocessableEntity, CodeValidation, "Validation failed")
		resp.Details = verr.Fields
		return resp, false
	case errors.Is(err, apperr.ErrValidation):
		return Error(http.StatusUnprocessableEntity, CodeValidation, "Validation failed"), false
	case errors.Is(err, apperr.ErrAuthentication):
		return Error(http.StatusUnauthorized, CodeAuthenticationRequired, "Authentication required"), false
	case errors.Is(err, apperr.ErrAuthorization):
		return Error(http.StatusForbidden, CodePermissionDenied, "Permission denied"), false
	case errors.Is(err, apperr.ErrConflict):
		return Error(http.StatusConflict, CodeConflict, err.Error()), false
	case errors.Is(err, apperr.ErrNotFound):
		return Error(http.StatusNotFound, CodeNotFound, "Resource not found"), false
	default:
		return Error(http.StatusInternalServerError, CodeInternal, "Internal server error"), true
	}
}
