package product

import "context"

// Filter narrows product listings.
type Filter struct {
	// Search matches product names case-insensitively.
	Search string
	// CategoryID restricts results to one category when non-empty.
	CategoryID string
	Page       int
	PerPage    int
}

// Repository defines persistence behaviours for products.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter Filter) (*Page, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines persistence behaviours for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id string) error
}
