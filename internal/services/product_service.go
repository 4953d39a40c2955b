package services

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/repositories"
)

// ProductService handles catalog administration. Mutations are reached
// only through admin routes; validation mirrors the catalog invariants
// (name length, price range, stock range, image reference shape).
type ProductService struct {
	repo     repositories.ProductRepository
	validate *validator.Validate
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo:     repo,
		validate: validator.New(),
	}
}

// ListProducts retrieves the catalog. Inactive products are included
// only for admin viewers.
func (s *ProductService) ListProducts(includeInactive bool) ([]models.Product, error) {
	products, err := s.repo.GetAll(includeInactive)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not load products")
	}
	return products, nil
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(id string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, lookupErr(err, "product not found")
	}
	return product, nil
}

func (s *ProductService) validateProduct(product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	product.Description = strings.TrimSpace(product.Description)
	product.ImageURL = strings.TrimSpace(product.ImageURL)

	if err := s.validate.Struct(product); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid product")
	}
	if product.ImageURL != "" && !validImageRef(product.ImageURL) {
		return apperr.New(apperr.KindValidation, "image URL must be a valid URL or a path starting with /")
	}
	return nil
}

// validImageRef accepts absolute http(s) URLs or site-relative paths.
func validImageRef(ref string) bool {
	if strings.HasPrefix(ref, "/") {
		return true
	}
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(product *models.Product) error {
	if err := s.validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.Create(product); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "could not create product")
	}
	return nil
}

// UpdateProduct updates an existing product, including zero values such
// as a cleared active flag.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	if err := s.validateProduct(product); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(product.ID); err != nil {
		return lookupErr(err, "product not found")
	}
	if err := s.repo.Update(product); err != nil {
		return writeErr(err, "product not found")
	}
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return writeErr(err, "product not found")
	}
	return nil
}
