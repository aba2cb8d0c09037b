// Package validator adapts go-playground/validator to echo's Validator interface.
package validator

import (
	"reflect"
	"strings"

	domainerrors "storefront/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Validator validates bound request bodies and reports failures as field violations.
type Validator struct {
	validate *validator.Validate
}

// New builds a validator that names fields after their json tags.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}

		return fld.Name
	})

	return &Validator{validate: validate}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Wrap(err, "invalid validation target")
	}

	violations := make([]domainerrors.FieldViolation, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		violations = append(violations, domainerrors.FieldViolation{
			Path:    fieldErr.Field(),
			Message: message(fieldErr),
		})
	}

	return domainerrors.NewValidationError(violations)
}

func message(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fieldErr.Param() + " characters long"
	case "max":
		return "must be at most " + fieldErr.Param() + " characters long"
	case "len":
		return "must be exactly " + fieldErr.Param() + " characters long"
	case "numeric":
		return "must contain digits only"
	case "oneof":
		return "must be one of " + fieldErr.Param()
	case "uuid":
		return "must be a valid UUID"
	case "eqfield":
		return "must match " + fieldErr.Param()
	default:
		return "failed on " + fieldErr.Tag()
	}
}
