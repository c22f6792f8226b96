package auth

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
)

// GetUserIDFromContext extracts the user id from claims in the context.
// Returns 0 if not authenticated.
func GetUserIDFromContext(ctx context.Context) int64 {
	claims, ok := GetClaims(ctx)
	if !ok {
		return 0
	}
	id, _ := claims.UserID()
	return id
}

// RequireUserIDFromContext extracts the user id and returns an error if not found.
func RequireUserIDFromContext(ctx context.Context) (int64, error) {
	id := GetUserIDFromContext(ctx)
	if id == 0 {
		return 0, fmt.Errorf("%w: user ID not found in context", apperrors.ErrUnauthorized)
	}
	return id, nil
}

// GetUsernameFromContext returns the authenticated username, or "" if none.
func GetUsernameFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.Username
}
