package services

import (
	"errors"
	"fmt"

	"atelier/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()

// validateStruct runs the struct's validate tags and reports per-field failures.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.Validation("Validation failed", nil)
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return apperrors.Validation("Validation failed", errorMessages)
}
