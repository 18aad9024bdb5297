package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements the token rotation protocol: login, refresh, and logout
// as atomic transitions of each user's single refresh slot, plus bearer-token
// resolution for authenticated requests.
type Service struct {
	users   domain.UserRepository
	tokens  TokenManager
	nowFunc func() time.Time
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens TokenManager) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		nowFunc: time.Now,
	}
}

// Register creates a new user and returns the persisted entity without a password hash.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if !validPassword(password) {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		Role:         domain.RoleUser,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Login validates credentials and issues a fresh token pair. The stored
// refresh slot is overwritten unconditionally, which invalidates any refresh
// token issued by an earlier login on another device.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.TokenPair, *domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	password := creds.Password
	if email == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, digest(pair.RefreshToken), s.nowFunc().UTC()); err != nil {
		return nil, nil, err
	}

	return pair, sanitizeUser(user), nil
}

// Refresh exchanges a valid refresh token for a new pair, rotating the stored
// slot. The slot update is a compare-and-set against the presented token's
// digest, so of N concurrent calls presenting the same token exactly one
// succeeds; the rest see a rotated slot and are rejected. A mismatch also
// covers tokens invalidated by a later login or a logout.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	pair, err := s.issuePair(userID)
	if err != nil {
		return nil, err
	}

	swapped, err := s.users.CompareAndSetRefreshToken(ctx, userID, digest(refreshToken), digest(pair.RefreshToken), s.nowFunc().UTC())
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, domain.ErrTokenInvalid
	}

	return pair, nil
}

// Logout clears the user's refresh slot. Any refresh token issued before this
// point becomes permanently unusable.
func (s *Service) Logout(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrUserNotFound
	}
	return s.users.ClearRefreshToken(ctx, userID, s.nowFunc().UTC())
}

// VerifyToken resolves a bearer access token to the live user record. The role
// always comes from storage, never from token content, so a downgrade applies
// on the very next request. A token whose subject no longer exists is rejected
// the same way as a forged one.
func (s *Service) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.ValidateAccess(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// ChangePassword verifies the current password and stores a hash of the new one.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrPasswordMismatch
	}
	if currentPassword == newPassword {
		return domain.ErrPasswordUnchanged
	}
	if !validPassword(newPassword) {
		return domain.ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, userID, string(hashed), s.nowFunc().UTC())
}

func (s *Service) issuePair(userID string) (*domain.TokenPair, error) {
	access, err := s.tokens.GenerateAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// digest hashes refresh tokens before they touch storage, so a leaked user row
// cannot be replayed as a live refresh token.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// validPassword enforces the registration strength policy: at least 8
// characters with uppercase, lowercase, digit and special characters.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, num, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			num = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && num && special
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
