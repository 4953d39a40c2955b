package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CSRFHeader carries the session CSRF token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFProtect rejects mutating requests whose CSRF token does not match
// the session's token. Safe methods pass through untouched.
func CSRFProtect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		sess := CurrentSession(c)
		if sess == nil || !sess.ValidateCSRF(c.Get(CSRFHeader)) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Invalid CSRF token",
				"code":    "conflict",
			})
		}
		return c.Next()
	}
}
