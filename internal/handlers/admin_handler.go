package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"agora/internal/middleware"
	"agora/internal/services"
)

// AdminHandler handles HTTP requests for the admin user panel.
type AdminHandler struct {
	accounts *services.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *services.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// RegisterRoutes registers the admin routes with the Fiber app. The
// router is expected to already be gated by the admin middleware.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Get("/", h.HandleListUsers)
	users.Post("/:id/promote", h.HandlePromote)
	users.Post("/:id/revoke", h.HandleRevoke)
	users.Delete("/:id", h.HandleDeleteUser)
}

// HandleListUsers lists recent accounts.
func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.ListUsers(middleware.CurrentUser(c))
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return fail(c, err)
	}
	return c.JSON(users)
}

// HandlePromote grants the admin role to a user.
func (h *AdminHandler) HandlePromote(c *fiber.Ctx) error {
	if err := h.accounts.PromoteAdmin(middleware.CurrentUser(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User promoted to admin"})
}

// HandleRevoke demotes a user to the regular role. Self-targeting is
// blocked by the self-protection guard.
func (h *AdminHandler) HandleRevoke(c *fiber.Ctx) error {
	if err := h.accounts.RevokeAdmin(middleware.CurrentUser(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Admin role revoked"})
}

// HandleDeleteUser removes a user and everything they authored.
func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.accounts.DeleteUser(middleware.CurrentUser(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User and their posts removed"})
}
