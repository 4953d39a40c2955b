package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
)

// CatalogHandler handles HTTP requests for the product catalog.
type CatalogHandler struct {
	service *services.ProductService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.ProductService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
// Mutating routes are additionally gated by the admin middleware in the
// route setup.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, admin fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleListProducts)
	products.Get("/:id", h.HandleGetProduct)

	adminProducts := admin.Group("/products")
	adminProducts.Post("/", h.HandleCreateProduct)
	adminProducts.Put("/:id", h.HandleUpdateProduct)
	adminProducts.Delete("/:id", h.HandleDeleteProduct)
}

// HandleListProducts lists the catalog. Admin viewers also see inactive
// products.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	viewer := middleware.CurrentUser(c)
	products, err := h.service.ListProducts(viewer.IsAdmin())
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return fail(c, err)
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *CatalogHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	viewer := middleware.CurrentUser(c)
	if !product.Active && !viewer.IsAdmin() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "product not found",
			"code":    "not_found",
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product. Admin only.
func (h *CatalogHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.service.CreateProduct(&product); err != nil {
		log.Printf("Error creating product: %v", err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product. Admin only.
func (h *CatalogHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	// Route params are backed by fasthttp's reused buffer; the
	// repository keeps this ID, so it must be copied out.
	product.ID = utils.CopyString(c.Params("id"))
	if err := h.service.UpdateProduct(&product); err != nil {
		log.Printf("Error updating product %s: %v", product.ID, err)
		return fail(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product. Admin only.
func (h *CatalogHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(id); err != nil {
		log.Printf("Error deleting product %s: %v", id, err)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}
