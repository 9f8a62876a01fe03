package middleware

import (
	"strings"

	"smooth/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UIDLocal is the fiber.Ctx local holding the signed-in user id.
const UIDLocal = "uid"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		uid, err := authService.Authorize(c.UserContext(), parts[1])
		if err != nil {
			logger.Debug("jwt rejected", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(UIDLocal, uid)
		return c.Next()
	}
}

// UID returns the user id AuthRequired stored on c.
func UID(c *fiber.Ctx) string {
	uid, _ := c.Locals(UIDLocal).(string)
	return uid
}
