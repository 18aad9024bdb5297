package user

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/auth"
)

// Service provides user administration use cases. Role assignment is the one
// operation with its own business rule: admin can only be self-assigned.
type Service struct {
	repo    domain.UserRepository
	nowFunc func() time.Time
}

// NewService constructs a user service around the provided repository.
func NewService(repo domain.UserRepository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// List returns all non-admin users ordered for administration views.
func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx, domain.UserFilter{ExcludeAdmins: true})
	if err != nil {
		return nil, err
	}
	return sanitizeUsers(users), nil
}

// Get retrieves a single user by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("user id is required")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// UpdateRole assigns a new role to the target user on behalf of the acting
// user. Assigning admin to anyone but yourself is denied regardless of the
// actor's own role.
func (s *Service) UpdateRole(ctx context.Context, actorID, targetID, rawRole string) (*domain.User, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, errors.New("user id is required")
	}

	role := domain.UserRole(strings.TrimSpace(strings.ToLower(rawRole)))
	if err := domain.CanAssignRole(actorID, targetID, role); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, targetID, role, s.nowFunc().UTC()); err != nil {
		return nil, err
	}

	// Re-read rather than patching the pre-update snapshot, so the response
	// reflects the row as stored.
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(target), nil
}

// Delete removes the target user.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("user id is required")
	}
	return s.repo.Delete(ctx, id)
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	copy.RefreshToken = nil
	return &copy
}

func sanitizeUsers(items []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(items))
	for _, item := range items {
		out = append(out, sanitizeUser(item))
	}
	return out
}
