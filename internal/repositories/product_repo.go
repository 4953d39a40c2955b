package repositories

import (
	"agora/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll lists products ordered by name. Inactive products are
	// included only when includeInactive is true.
	GetAll(includeInactive bool) ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
}
