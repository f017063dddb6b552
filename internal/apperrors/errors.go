package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is by the HTTP error handler.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUpstream           = errors.New("upstream service error")
)

// AppError carries a client-facing message alongside the wrapped cause.
type AppError struct {
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that the record with the given id does not exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %s not found", resource, id),
		Err:     ErrNotFound,
	}
}

// Validation reports a malformed or incomplete request.
func Validation(msg string, fields map[string]string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Message: msg, Fields: fields, Err: ErrValidation}
}

// Required reports a missing required field.
func Required(field string) *AppError {
	return Validation("Validation failed", map[string]string{
		field: fmt.Sprintf("Field '%s' is required", field),
	})
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func InvalidCredentials() *AppError {
	return &AppError{Code: "INVALID_CREDENTIALS", Message: "invalid credentials", Err: ErrInvalidCredentials}
}

// Upstream wraps a failure of the database or the media host.
func Upstream(msg string, err error) *AppError {
	return &AppError{Code: "UPSTREAM_ERROR", Message: msg, Err: errors.Join(ErrUpstream, err)}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a client validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
