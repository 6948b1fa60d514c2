package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		internal bool
	}{
		{"authentication", fmt.Errorf("token: %w", apperr.ErrAuthentication), http.StatusUnauthorized, CodeAuthenticationRequired, false},
		{"authorization", fmt.Errorf("caller: %w", apperr.ErrAuthorization), http.StatusForbidden, CodePermissionDenied, false},
		{"validation", apperr.NewValidationError(apperr.FieldError{Field: "name", Message: "is required"}), http.StatusUnprocessableEntity, CodeValidation, false},
		{"conflict", fmt.Errorf("role in use: %w", apperr.ErrConflict), http.StatusConflict, CodeConflict, false},
		{"not found", fmt.Errorf("role: %w", apperr.ErrNotFound), http.StatusNotFound, CodeNotFound, false},
		{"unknown", errors.New("pq: relation \"roles\" does not exist"), http.StatusInternalServerError, CodeInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, internal := FromError(tt.err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.internal, internal)
		})
	}
}

func TestFromError_HidesInternalDetail(t *testing.T) {
	resp, _ := FromError(errors.New("pq: relation \"roles\" does not exist"))
	assert.NotContains(t, resp.Error, "roles")
	assert.Nil(t, resp.Details)
}

func TestFromError_ValidationDetails(t *testing.T) {
	verr := apperr.NewValidationError()
	verr.Add("permissions", `unknown permission key "a"`)
	verr.Add("permissions", `unknown permission key "b"`)

	resp, _ := FromError(fmt.Errorf("create role: %w", verr))
	assert.Equal(t, verr.Fields, resp.Details)
}
