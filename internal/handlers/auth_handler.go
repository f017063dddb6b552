package handlers

import (
	"fmt"

	"atelier/internal/apperrors"
	"atelier/internal/middleware"
	"atelier/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes. There is no public
// registration; the admin account is seeded at startup.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, gate fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", gate, h.HandleMe)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// HandleLogin handles admin login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("Invalid request body", map[string]string{"body": err.Error()})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return apperrors.Validation("Validation failed", errorMessages)
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		zap.L().Info("login failed", zap.String("email", req.Email), zap.String("ip", c.IP()), zap.Error(err))
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleMe returns the identity behind the presented token.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperrors.Unauthorized("Authorization header is required")
	}
	user, err := h.authService.CurrentUser(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}
