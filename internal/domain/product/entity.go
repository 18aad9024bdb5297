package product

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a product could not be located.
	ErrNotFound = errors.New("product not found")
	// ErrCategoryNotFound indicates a referenced category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrDuplicateName signals a product name collision within a category.
	ErrDuplicateName = errors.New("product with this name already exists in category")
	// ErrDuplicateCategory signals a category name collision.
	ErrDuplicateCategory = errors.New("category with this name already exists")
	// ErrInvalidInput marks a rejected request payload. Handlers distinguish it
	// from infrastructure failures, which must never reach a client verbatim.
	ErrInvalidInput = errors.New("invalid input")
)

// Category groups products in the price-comparison catalogue.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product captures a catalogue item offered across stores.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageUrl"`
	CategoryID string    `json:"categoryId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// WithCategory is a product joined with its category name for listings.
type WithCategory struct {
	Product
	CategoryName string `json:"categoryName"`
}

// Page is one page of a product listing.
type Page struct {
	Items   []*WithCategory `json:"items"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
}
