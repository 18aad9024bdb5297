package postgres

import (
	"context"
	"errors"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository persists catalogue categories in PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository constructs a repository.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

var _ domain.CategoryRepository = (*CategoryRepository)(nil)

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
INSERT INTO categories (id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4)
`
	_, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Name,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCategory
		}
		return err
	}
	return nil
}

// GetByID fetches a category by id.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
SELECT id, name, created_at, updated_at
FROM categories WHERE id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// List returns all categories sorted by name.
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	const query = `
SELECT id, name, created_at, updated_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Update renames a category.
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
UPDATE categories
SET name = $2, updated_at = $3
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Name,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCategory
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category by id.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
