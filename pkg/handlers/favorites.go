package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/services"
)

// FavoritesHandler lets users pin reports.
type FavoritesHandler struct {
	favorites   services.FavoriteService
	authService services.AuthService
	logger      *zap.Logger
}

// NewFavoritesHandler creates a new FavoritesHandler.
func NewFavoritesHandler(favorites services.FavoriteService, authService services.AuthService, logger *zap.Logger) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites, authService: authService, logger: logger}
}

// RegisterRoutes registers the favorites routes on the given mux.
func (h *FavoritesHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("GET /api/favorites", mw.RequireAuth(h.List))
	mux.HandleFunc("PUT /api/favorites/{name}", mw.RequireAuth(h.Add))
	mux.HandleFunc("DELETE /api/favorites/{name}", mw.RequireAuth(h.Remove))
}

// currentUserID resolves the acting user's ID from the request claims.
func (h *FavoritesHandler) currentUserID(r *http.Request) (int64, error) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		return 0, auth.ErrMissingAuthorization
	}
	user, err := h.authService.Me(r.Context(), claims)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	favorites, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

// Add handles PUT /api/favorites/{name}.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	if err := h.favorites.Add(r.Context(), userID, r.PathValue("name")); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Remove handles DELETE /api/favorites/{name}.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	if err := h.favorites.Remove(r.Context(), userID, r.PathValue("name")); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
