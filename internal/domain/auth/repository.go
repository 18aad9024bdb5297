package auth

import (
	"context"
	"time"
)

// UserRepository defines the persistence capability the auth core consumes.
// The refresh-slot methods operate on the single nullable refresh_token field
// per user; CompareAndSetRefreshToken is the serialization point that makes
// token rotation race-free.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
	Delete(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, id string, role UserRole, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error

	// SetRefreshToken unconditionally overwrites the user's refresh slot,
	// discarding whatever token was stored before.
	SetRefreshToken(ctx context.Context, id string, token string, updatedAt time.Time) error
	// CompareAndSetRefreshToken replaces the slot with newToken only if it
	// currently holds exactly expected. Returns false when the slot holds a
	// different value (already rotated or cleared). Must be atomic: of any
	// number of concurrent calls presenting the same expected value, at most
	// one may observe true.
	CompareAndSetRefreshToken(ctx context.Context, id, expected, newToken string, updatedAt time.Time) (bool, error)
	// ClearRefreshToken empties the slot regardless of its current value.
	ClearRefreshToken(ctx context.Context, id string, updatedAt time.Time) error
}

// UserFilter allows narrowing user queries.
type UserFilter struct {
	Role UserRole
	// ExcludeAdmins drops admin accounts from listings.
	ExcludeAdmins bool
}
