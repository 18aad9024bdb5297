package auth

// TokenManager abstracts issuance and verification of the two token kinds.
// Validate methods return the token subject (user id) and must reject a token
// of the other kind, so a refresh token can never stand in for an access token
// or vice versa.
type TokenManager interface {
	GenerateAccess(userID string) (string, error)
	GenerateRefresh(userID string) (string, error)
	ValidateAccess(token string) (string, error)
	ValidateRefresh(token string) (string, error)
}
