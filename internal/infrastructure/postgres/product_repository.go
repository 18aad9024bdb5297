package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository persists catalogue products in PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository constructs a repository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

var _ domain.Repository = (*ProductRepository)(nil)

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
INSERT INTO products (id, name, image_url, category_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, query,
		product.ID,
		product.Name,
		product.ImageURL,
		product.CategoryID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return err
	}
	return nil
}

// GetByID fetches a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `
SELECT id, name, image_url, category_id, created_at, updated_at
FROM products WHERE id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// List returns one page of products with their category names, optionally
// filtered by a case-insensitive name search and a category.
func (r *ProductRepository) List(ctx context.Context, filter domain.Filter) (*domain.Page, error) {
	where := ""
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf("WHERE p.name ILIKE $%d ", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		if where == "" {
			where += fmt.Sprintf("WHERE p.category_id = $%d ", len(args))
		} else {
			where += fmt.Sprintf("AND p.category_id = $%d ", len(args))
		}
	}

	countQuery := "SELECT COUNT(*) FROM products p " + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `
SELECT p.id, p.name, p.image_url, p.category_id, p.created_at, p.updated_at, c.name
FROM products p
JOIN categories c ON c.id = p.category_id
` + where + fmt.Sprintf("ORDER BY p.name ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.WithCategory{}
	for rows.Next() {
		var item domain.WithCategory
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.ImageURL,
			&item.CategoryID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.CategoryName,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.Page{
		Items:   items,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

// Update writes product updates to the database.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
UPDATE products
SET name = $2,
    image_url = $3,
    category_id = $4,
    updated_at = $5
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		product.ID,
		product.Name,
		product.ImageURL,
		product.CategoryID,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a product by id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ImageURL,
		&p.CategoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
