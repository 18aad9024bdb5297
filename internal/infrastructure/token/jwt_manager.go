package token

import (
	"errors"
	"time"

	usecase "github.com/savolekovic/cijene-me-backend-sub000/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the two token variants. A token of one kind is never
// accepted where the other is required.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// leeway absorbs small clock skew between issuing and verifying hosts at the
// expiry boundary.
const leeway = 5 * time.Second

// JWTManager issues and validates HS256 JWTs. Access and refresh tokens are
// signed with distinct secrets, so compromising one signing key does not allow
// forging the other kind.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	issuer        string
	nowFunc       func() time.Time
}

// NewJWTManager constructs a manager with per-kind secrets and lifetimes.
func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
		nowFunc:       time.Now,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims. TokenType carries the kind discriminator.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateAccess creates a signed short-lived access token for the user.
func (m *JWTManager) GenerateAccess(userID string) (string, error) {
	return m.generate(userID, KindAccess)
}

// GenerateRefresh creates a signed long-lived refresh token for the user.
func (m *JWTManager) GenerateRefresh(userID string) (string, error) {
	return m.generate(userID, KindRefresh)
}

// ValidateAccess verifies an access token and returns its subject.
func (m *JWTManager) ValidateAccess(tokenString string) (string, error) {
	return m.validate(tokenString, KindAccess)
}

// ValidateRefresh verifies a refresh token and returns its subject.
func (m *JWTManager) ValidateRefresh(tokenString string) (string, error) {
	return m.validate(tokenString, KindRefresh)
}

func (m *JWTManager) generate(userID string, kind Kind) (string, error) {
	now := m.nowFunc().UTC()
	claims := Claims{
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens issued within the same second distinct,
			// which rotation depends on: a new refresh token must never
			// collide with the one it replaces.
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret(kind))
}

func (m *JWTManager) validate(tokenString string, kind Kind) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret(kind), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(func() time.Time { return m.nowFunc() }),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if claims.TokenType != string(kind) {
		return "", errors.New("unexpected token type")
	}
	if claims.Subject == "" {
		return "", errors.New("missing token subject")
	}
	return claims.Subject, nil
}

func (m *JWTManager) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return m.refreshSecret
	}
	return m.accessSecret
}

func (m *JWTManager) lifetime(kind Kind) time.Duration {
	if kind == KindRefresh {
		return m.refreshExpiry
	}
	return m.accessExpiry
}
