package middleware

import (
	"strings"

	"atelier/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			zap.L().Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(claimsKey, claims)
		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthRequired.
func ClaimsFrom(c *fiber.Ctx) (*services.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*services.Claims)
	return claims, ok && claims != nil
}
