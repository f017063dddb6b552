package handlers

import (
	"errors"

	"atelier/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// ErrorHandler maps errors returned by handlers to JSON responses. Internal
// details are only included when debug is set.
func ErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		body := fiber.Map{"message": "Internal server error"}

		var appErr *apperrors.AppError
		hasAppErr := errors.As(err, &appErr)
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			body["message"] = fiberErr.Message
		case apperrors.IsValidation(err):
			code = fiber.StatusBadRequest
			body["message"] = "Validation failed"
			if hasAppErr {
				body["message"] = appErr.Message
				if len(appErr.Fields) > 0 {
					body["errors"] = appErr.Fields
				}
			}
		case apperrors.IsNotFound(err):
			code = fiber.StatusNotFound
			body["message"] = "Resource not found"
			if hasAppErr {
				body["message"] = appErr.Message
			}
		case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrInvalidCredentials):
			code = fiber.StatusUnauthorized
			body["message"] = "Unauthorized"
			if hasAppErr {
				body["message"] = appErr.Message
			}
		case errors.Is(err, apperrors.ErrUpstream):
			if hasAppErr {
				body["message"] = appErr.Message
			}
		}

		requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("request_id", requestID),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			zap.L().Error("request failed", fields...)
			if debug {
				body["error"] = err.Error()
			}
		} else {
			zap.L().Debug("request rejected", fields...)
		}

		return c.Status(code).JSON(body)
	}
}
