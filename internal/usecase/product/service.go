package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/product"

	"github.com/google/uuid"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service encapsulates catalogue use cases for products and categories.
type Service struct {
	repo       domain.Repository
	categories domain.CategoryRepository
	nowFunc    func() time.Time
}

// NewService constructs a catalogue service.
func NewService(repo domain.Repository, categories domain.CategoryRepository) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		nowFunc:    time.Now,
	}
}

// CreateInput contains the payload required for product creation.
type CreateInput struct {
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	CategoryID string `json:"category_id"`
}

// UpdateInput encapsulates partial product updates.
type UpdateInput struct {
	Name       *string `json:"name"`
	ImageURL   *string `json:"image_url"`
	CategoryID *string `json:"category_id"`
}

// Create stores a new product after validating its category reference.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.CategoryID = strings.TrimSpace(input.CategoryID)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if input.CategoryID == "" {
		return nil, fmt.Errorf("%w: category_id is required", domain.ErrInvalidInput)
	}

	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}

	now := s.nowFunc().UTC()
	product := &domain.Product{
		ID:         uuid.NewString(),
		Name:       input.Name,
		ImageURL:   strings.TrimSpace(input.ImageURL),
		CategoryID: input.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// List retrieves one page of products with category names joined in.
func (s *Service) List(ctx context.Context, filter domain.Filter) (*domain.Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.CategoryID = strings.TrimSpace(filter.CategoryID)
	return s.repo.List(ctx, filter)
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies partial updates to a product.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		product.Name = name
	}
	if input.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.CategoryID != nil {
		categoryID := strings.TrimSpace(*input.CategoryID)
		if categoryID == "" {
			return nil, fmt.Errorf("%w: category_id cannot be empty", domain.ErrInvalidInput)
		}
		if categoryID != product.CategoryID {
			if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
				return nil, err
			}
		}
		product.CategoryID = categoryID
	}
	product.UpdatedAt = s.nowFunc().UTC()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.repo.Delete(ctx, id)
}

// CreateCategory stores a new catalogue category.
func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	now := s.nowFunc().UTC()
	category := &domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories retrieves all categories.
func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// GetCategory fetches a category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.categories.GetByID(ctx, id)
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.UpdatedAt = s.nowFunc().UTC()

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.categories.Delete(ctx, id)
}
