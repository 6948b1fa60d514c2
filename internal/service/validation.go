package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"

	"github.com/go-playground/validator/v10"
)

// payloadValidator checks request DTOs through their `validate` tags. Gin's
// own binding only enforces the `binding` tags, so registry rules live here.
var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Validation functions never fail to register for these static tags.
	_ = v.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		return model.Permission(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("pagepattern", func(fl validator.FieldLevel) bool {
		return isPagePattern(fl.Field().String())
	})

	return v
}

// isPagePattern accepts the wildcard or an absolute path without query,
// fragment or whitespace.
func isPagePattern(s string) bool {
	if s == authz.WildcardPage {
		return true
	}
	if !strings.HasPrefix(s, "/") {
		return false
	}
	return !strings.ContainsAny(s, "?# \t\n*")
}

// validatePayload runs the struct validator and converts every failure into
// one apperr.ValidationError.
func validatePayload(payload any) error {
	err := payloadValidator.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate payload: %w", err)
	}

	verr := apperr.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), describe(fe))
	}
	return verr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail address"
	case "permission":
		return fmt.Sprintf("unknown permission key %q", fe.Value())
	case "pagepattern":
		return fmt.Sprintf("%q is not a page pattern", fe.Value())
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}
