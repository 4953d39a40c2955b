package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"agora/internal/middleware"
	"agora/internal/services"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	carts    *services.CartService
	products *services.ProductService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService, products *services.ProductService) *CartHandler {
	return &CartHandler{carts: carts, products: products}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cart := router.Group("/cart")
	cart.Get("/", h.HandleGetCart)
	cart.Post("/items", h.HandleAddItem)
	cart.Put("/items", h.HandleBulkUpdate)
	cart.Delete("/items/:id", h.HandleRemoveItem)
	cart.Delete("/", h.HandleClearCart)
	cart.Post("/admin/items", h.HandleAdminAddItem)
	cart.Put("/admin/items/:id", h.HandleAdminSetQuantity)
}

// HandleGetCart prices the cart against the live catalog and returns
// line items and the subtotal. Lines whose product no longer resolves,
// including products deactivated since they were added, are skipped.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	products, err := h.products.ListProducts(false)
	if err != nil {
		log.Printf("Error loading catalog for cart: %v", err)
		return fail(c, err)
	}
	return c.JSON(services.ComputeTotals(sess.Cart, products))
}

// AddItemRequest is the payload for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// HandleAddItem adds a product to the cart, clamping against stock.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	sess := middleware.CurrentSession(c)
	result, err := h.carts.AddToCart(sess.Cart, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}

	body := fiber.Map{"message": "Item added to cart", "result": result}
	if result.Warning != nil {
		body["message"] = result.Warning.Message
		body["code"] = result.Warning.Kind.String()
	}
	return c.JSON(body)
}

// BulkUpdateRequest is the payload for a batch quantity update.
type BulkUpdateRequest struct {
	Quantities map[string]int `json:"quantities"`
}

// HandleBulkUpdate applies a batch of quantity changes. Per-line issues
// are aggregated in the response; one bad line never aborts the batch.
func (h *CartHandler) HandleBulkUpdate(c *fiber.Ctx) error {
	var req BulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	sess := middleware.CurrentSession(c)
	result, err := h.carts.BulkUpdate(sess.Cart, req.Quantities)
	if err != nil {
		return fail(c, err)
	}

	message := "Cart updated successfully"
	if len(result.Issues) > 0 {
		message = "Cart updated with some changes noted"
	}
	return c.JSON(fiber.Map{"message": message, "result": result})
}

// HandleRemoveItem removes one line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	if err := h.carts.RemoveFromCart(sess.Cart, c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item removed from cart"})
}

// HandleClearCart unconditionally empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	h.carts.ClearCart(sess.Cart)
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

// HandleAdminAddItem adds a product to the session cart on behalf of an
// admin. Stock clamping still applies.
func (h *CartHandler) HandleAdminAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	sess := middleware.CurrentSession(c)
	actor := middleware.CurrentUser(c)
	result, err := h.carts.AdminAddItem(sess.Cart, actor, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}

	body := fiber.Map{"message": "Item added to cart by admin", "result": result}
	if result.Warning != nil {
		body["message"] = result.Warning.Message
		body["code"] = result.Warning.Kind.String()
	}
	return c.JSON(body)
}

// SetQuantityRequest is the payload for an admin quantity override.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleAdminSetQuantity overwrites one line's quantity as an admin.
func (h *CartHandler) HandleAdminSetQuantity(c *fiber.Ctx) error {
	var req SetQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	sess := middleware.CurrentSession(c)
	actor := middleware.CurrentUser(c)
	// The ID ends up as a cart-map key that outlives this request, so it
	// is copied out of the reused params buffer.
	result, err := h.carts.AdminSetQuantity(sess.Cart, actor, utils.CopyString(c.Params("id")), req.Quantity)
	if err != nil {
		return fail(c, err)
	}

	body := fiber.Map{"message": "Quantity updated by admin", "result": result}
	if result.Warning != nil {
		body["message"] = result.Warning.Message
		body["code"] = result.Warning.Kind.String()
	}
	return c.JSON(body)
}
