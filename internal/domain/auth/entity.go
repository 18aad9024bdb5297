package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure. Unknown email and wrong
	// password both map here so the response never reveals which it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid means a supplied token cannot be accepted: bad signature,
	// expired, wrong kind, unknown subject, or a refresh slot mismatch.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidEmail indicates a malformed registration email.
	ErrInvalidEmail = errors.New("a valid email is required")
	// ErrInvalidRole indicates the provided role is not supported.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInsufficientRole indicates the authenticated user lacks the required role.
	ErrInsufficientRole = errors.New("insufficient privileges")
	// ErrAdminSelfAssignOnly indicates an attempt to grant admin to another user.
	ErrAdminSelfAssignOnly = errors.New("admin role can only be assigned to yourself")
	// ErrWeakPassword indicates the password fails the strength policy.
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain uppercase, lowercase, number and special characters")
	// ErrPasswordMismatch indicates the current password is incorrect.
	ErrPasswordMismatch = errors.New("current password does not match")
	// ErrPasswordUnchanged indicates the new password matches the current one.
	ErrPasswordUnchanged = errors.New("new password must be different from current password")
)

// UserRole identifies the privileges assigned to a user.
type UserRole string

const (
	// RoleUser represents a standard application user.
	RoleUser UserRole = "user"
	// RoleModerator represents a catalogue moderator.
	RoleModerator UserRole = "moderator"
	// RoleAdmin represents an administrative user.
	RoleAdmin UserRole = "admin"
)

// roleRank orders roles for threshold checks: user < moderator < admin.
var roleRank = map[UserRole]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// Valid reports whether the role is one of the supported variants.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role meets or exceeds the given threshold.
// Unknown roles never satisfy any threshold.
func (r UserRole) AtLeast(min UserRole) bool {
	rank, ok := roleRank[r]
	minRank, minOK := roleRank[min]
	return ok && minOK && rank >= minRank
}

// CanAssignRole decides whether an actor may assign the given role to the
// target user. Admin is special: it can only ever be assigned to oneself,
// regardless of the actor's own role.
func CanAssignRole(actorID, targetID string, role UserRole) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if role == RoleAdmin && actorID != targetID {
		return ErrAdminSelfAssignOnly
	}
	return nil
}

// User models the authentication entity persisted in storage. RefreshToken
// holds a digest of the single currently valid refresh token, or nil when the
// user is logged out.
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         UserRole
	PasswordHash string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// TokenPair bundles the access and refresh tokens issued by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
