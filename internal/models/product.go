package models

import "gorm.io/gorm"

// Product represents an item in the catalog. Stock 0 means the product
// is not stock-tracked and can be added in any quantity. Inactive
// products are never purchasable and are shown to admins only.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"omitempty,max=1000"`
	Price       float64 `json:"price" validate:"required,gt=0,lte=99999.99"`
	ImageURL    string  `json:"image_url" validate:"omitempty,max=255"`
	Stock       int     `json:"stock" validate:"gte=0,lte=999999"`
	Active      bool    `json:"active"`
	gorm.Model          // CreatedAt, UpdatedAt, DeletedAt
}

// StockTracked reports whether the product has a finite stock limit.
func (p *Product) StockTracked() bool { return p.Stock > 0 }
