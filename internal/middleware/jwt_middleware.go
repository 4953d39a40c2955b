package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"agora/internal/models"
	"agora/internal/services"
)

// bearerUser resolves the Authorization header to a live user record,
// or nil when the header is absent or invalid.
func bearerUser(c *fiber.Ctx, authService *services.AuthService) *models.User {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return nil
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		log.Printf("JWT validation failed: %v", err)
		return nil
	}
	user, err := authService.UserFromClaims(claims)
	if err != nil {
		log.Printf("JWT user lookup failed: %v", err)
		return nil
	}
	return user
}

// UserContext resolves the bearer token when present and stores the
// user in the context. Anonymous requests continue with no user; the
// services decide which operations demand one.
func UserContext(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user := bearerUser(c, authService); user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	}
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := bearerUser(c, authService)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Valid bearer token required",
			})
		}
		c.Locals("user", user)
		return c.Next()
	}
}

// AdminRequired rejects requests whose resolved user is not an admin.
// Must run after UserContext or AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user := CurrentUser(c); !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access only",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user from the context, nil for
// anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
