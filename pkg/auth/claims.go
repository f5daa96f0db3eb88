// Package auth provides JWT-based authentication for knowhy-engine.
// Tokens are issued and verified locally with an HS256 shared secret.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims is the JWT claims structure issued by knowhy-engine.
// It embeds RegisteredClaims for standard JWT fields (sub, exp, iat)
// and adds the user's role plus a marker for the pre-setup temporary admin.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
	// TempAdmin marks a token issued for the default admin before the
	// setup wizard has run. Such tokens may only reach setup endpoints.
	TempAdmin bool `json:"temp_admin,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// UsernameFromContext extracts the authenticated username from context.
// Returns an error if the request is not authenticated.
func UsernameFromContext(ctx context.Context) (string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "", fmt.Errorf("authentication required: no claims in context")
	}
	if claims.Username == "" {
		return "", fmt.Errorf("missing username in JWT claims")
	}
	return claims.Username, nil
}
