package postgres

import (
	"context"
	"errors"
	"time"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists users in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
INSERT INTO users (id, email, full_name, role, password_hash, refresh_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.Role,
		user.PasswordHash,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
SELECT id, email, full_name, role, password_hash, refresh_token, created_at, updated_at
FROM users WHERE email = $1
`
	row := r.pool.QueryRow(ctx, query, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
SELECT id, email, full_name, role, password_hash, refresh_token, created_at, updated_at
FROM users WHERE id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns users filtered by the provided criteria.
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	query := `
SELECT id, email, full_name, role, password_hash, refresh_token, created_at, updated_at
FROM users
`
	var args []any
	var clauses []string
	if filter.Role != "" {
		args = append(args, filter.Role)
		clauses = append(clauses, "role = $1")
	}
	if filter.ExcludeAdmins {
		clauses = append(clauses, "role <> 'admin'")
	}
	for i, clause := range clauses {
		if i == 0 {
			query += "WHERE " + clause + " "
		} else {
			query += "AND " + clause + " "
		}
	}
	query += "ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes a user by id.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateRole assigns a new role to the user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole, updatedAt time.Time) error {
	const query = `
UPDATE users
SET role = $2, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, role, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdatePassword updates the stored password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET password_hash = $2, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetRefreshToken unconditionally overwrites the user's refresh slot.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id string, token string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET refresh_token = $2, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, token, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CompareAndSetRefreshToken replaces the refresh slot only when it currently
// holds expected. The conditional UPDATE runs as a single statement, so the
// database serializes concurrent rotations: exactly one caller presenting the
// old value observes RowsAffected == 1.
func (r *UserRepository) CompareAndSetRefreshToken(ctx context.Context, id, expected, newToken string, updatedAt time.Time) (bool, error) {
	const query = `
UPDATE users
SET refresh_token = $3, updated_at = $4
WHERE id = $1 AND refresh_token = $2
`
	ct, err := r.pool.Exec(ctx, query, id, expected, newToken, updatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ClearRefreshToken empties the user's refresh slot.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET refresh_token = NULL, updated_at = $2
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
