// Package apperr defines the error kinds shared by the repository, service
// and handler layers. Lower layers wrap them with fmt.Errorf("...: %w") and
// the HTTP boundary maps each kind to one status code.
package apperr

import (
	"errors"
	"strings"
)

var (
	// ErrAuthentication means no identity or an invalid one (401).
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthorization means a valid identity without enough authority (403).
	ErrAuthorization = errors.New("insufficient authority")
	// ErrValidation means a malformed role, user or permission payload (422).
	ErrValidation = errors.New("validation failed")
	// ErrConflict means the operation is blocked by existing state (409).
	ErrConflict = errors.New("conflict")
	// ErrNotFound means an unknown role or user (404).
	ErrNotFound = errors.New("not found")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every rejected field of a payload.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was rejected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
