// Package auth authenticates catalog users. Browsers carry a signed session
// cookie after login; API clients send an HS256 bearer token from /api/auth/token.
package auth

import (
	"context"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing the authenticated user's claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for the raw bearer token, empty for session logins.
	TokenKey contextKey = "token"
)

// Claims identifies the authenticated user. Subject holds the numeric user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"name,omitempty"`
}

// UserID parses the subject as a user id.
func (c *Claims) UserID() (int64, bool) {
	if c == nil || c.Subject == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetClaims retrieves claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// GetToken retrieves the raw bearer token from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// WithClaims stores claims in ctx. Used by the middleware and by tests.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
