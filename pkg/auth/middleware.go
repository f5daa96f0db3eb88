package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates token logic to TokenService.
type Middleware struct {
	tokens TokenService
	logger *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given TokenService.
func NewMiddleware(tokens TokenService, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		logger: logger,
	}
}

// RequireAuth validates the JWT and rejects temporary pre-setup tokens.
// Sets claims and token in context for downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.tokens.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		if claims.TempAdmin {
			m.forbidden(w, "Complete setup before accessing this endpoint")
			return
		}

		next(w, r.WithContext(withAuth(r.Context(), claims, token)))
	}
}

// RequireAdmin validates the JWT and requires the admin role.
// Temporary pre-setup tokens are rejected here too.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.tokens.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		if claims.TempAdmin {
			m.forbidden(w, "Complete setup before accessing this endpoint")
			return
		}

		if claims.Role != models.RoleAdmin {
			m.logger.Warn("Non-admin attempted to access admin endpoint",
				zap.String("username", claims.Username),
				zap.String("path", r.URL.Path))
			m.forbidden(w, "Admin authorization required")
			return
		}

		next(w, r.WithContext(withAuth(r.Context(), claims, token)))
	}
}

// RequireSetupAuth validates the JWT for setup endpoints. It accepts both
// regular admin tokens and the temporary pre-setup admin token.
func (m *Middleware) RequireSetupAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.tokens.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		if !claims.TempAdmin && claims.Role != models.RoleAdmin {
			m.forbidden(w, "Admin authorization required")
			return
		}

		next(w, r.WithContext(withAuth(r.Context(), claims, token)))
	}
}

func withAuth(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
