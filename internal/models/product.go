package models

import "time"

// AllCategoriesID and AllCategoriesName identify the synthetic category that
// heads every resolved category list. It is never persisted.
const (
	AllCategoriesID   = "__all"
	AllCategoriesName = "All Categories"
)

// Product represents a catalog product.
type Product struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required,max=200"`
	Brand       string     `json:"brand" validate:"max=100"`
	Category    string     `json:"category" validate:"max=100"`
	Price       float64    `json:"price" validate:"gte=0"`
	Description string     `json:"description" validate:"max=2000"`
	Image       string     `json:"image"`
	Featured    bool       `json:"featured"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Snapshot copies the product fields that are embedded in cart lines,
// favorites and order items. Later catalog edits do not reach the copy.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    p.Price,
		Image:    p.Image,
	}
}

// ProductSnapshot is a point-in-time value copy of a Product.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
}

// Category groups products.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}
