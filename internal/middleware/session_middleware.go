package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"agora/internal/session"
)

// SessionCookie is the name of the session id cookie.
const SessionCookie = "agora_session"

// SessionContext loads the visitor's session from the store, creating
// one (and setting the cookie) when absent, and saves it back after the
// handler ran so cart mutations stick. Concurrent requests from the same
// session race read-modify-write on the cart; last write wins.
func SessionContext(store session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sess *session.Session

		if id := c.Cookies(SessionCookie); id != "" {
			if loaded, err := store.Get(id); err == nil {
				sess = loaded
			}
		}
		if sess == nil {
			created, err := store.Create()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Could not create session",
				})
			}
			sess = created
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Expires:  time.Now().Add(24 * time.Hour),
			})
		}

		c.Locals("session", sess)

		err := c.Next()

		if saveErr := store.Save(sess); saveErr != nil {
			log.Printf("Failed to save session %s: %v", sess.ID, saveErr)
		}
		return err
	}
}

// CurrentSession returns the session placed in the context by
// SessionContext, or nil when the middleware did not run.
func CurrentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals("session").(*session.Session)
	return sess
}
