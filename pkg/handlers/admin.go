package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
	"github.com/knowhy-io/knowhy-engine/pkg/services"
	sqlpkg "github.com/knowhy-io/knowhy-engine/pkg/sql"
)

// AdminHandler handles the setup wizard and administration endpoints.
type AdminHandler struct {
	setupService services.SetupService
	userService  services.UserService
	auditService services.AuditService
	configs      repositories.ConfigRepository
	reports      repositories.ReportRepository
	converter    *sqlpkg.Converter
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	setupService services.SetupService,
	userService services.UserService,
	auditService services.AuditService,
	configs repositories.ConfigRepository,
	reports repositories.ReportRepository,
	converter *sqlpkg.Converter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		setupService: setupService,
		userService:  userService,
		auditService: auditService,
		configs:      configs,
		reports:      reports,
		converter:    converter,
		logger:       logger,
	}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("GET /api/admin/setup-status", h.SetupStatus)
	mux.HandleFunc("POST /api/admin/setup", mw.RequireSetupAuth(h.Setup))
	mux.HandleFunc("POST /api/admin/reset", mw.RequireAdmin(h.Reset))

	mux.HandleFunc("GET /api/admin/users", mw.RequireAdmin(h.ListUsers))
	mux.HandleFunc("POST /api/admin/users", mw.RequireAdmin(h.CreateUser))
	mux.HandleFunc("PUT /api/admin/users/{id}", mw.RequireAdmin(h.UpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", mw.RequireAdmin(h.DeleteUser))

	mux.HandleFunc("GET /api/admin/dashboard", mw.RequireAdmin(h.Dashboard))
	mux.HandleFunc("GET /api/admin/logs", mw.RequireAdmin(h.Logs))
	mux.HandleFunc("GET /api/admin/config", mw.RequireAdmin(h.GetConfig))
	mux.HandleFunc("PUT /api/admin/config/table-name", mw.RequireAdmin(h.SetTableName))
	mux.HandleFunc("POST /api/admin/templates/convert", mw.RequireAdmin(h.ConvertTemplates))
}

// SetupStatus handles GET /api/admin/setup-status.
// It is unauthenticated so the UI can decide whether to show the wizard.
func (h *AdminHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.setupService.Status(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, status)
}

// Setup handles POST /api/admin/setup.
func (h *AdminHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req services.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.setupService.Run(r.Context(), &req); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	h.auditService.Record(r.Context(), nil, models.ActionSetup, req.SystemID)
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Reset handles POST /api/admin/reset. It requires an explicit
// confirmation phrase in the body before dropping the tenant's tables.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Confirm != "RESET" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", `body must contain {"confirm":"RESET"}`)
		return
	}

	if err := h.setupService.Reset(r.Context()); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	user, err := h.userService.Create(r.Context(), req.Username, req.Password, req.Email, req.Role)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// UpdateUser handles PUT /api/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	user, err := h.userService.Update(r.Context(), id, req.Email, req.Role, req.IsActive)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dashboard handles GET /api/admin/dashboard. It returns the tenant
// summary counts plus the most recent audit log entries.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	reports, err := h.reports.List(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	recent, err := h.auditService.List(r.Context(), 10, 0)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"user_count":   len(users),
		"report_count": len(reports),
		"recent_logs":  recent,
	})
}

// Logs handles GET /api/admin/logs. Pages via limit and offset query
// parameters, newest entries first.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	entries, err := h.auditService.List(r.Context(), limit, offset)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"logs":   entries,
		"limit":  limit,
		"offset": offset,
	})
}

// GetConfig handles GET /api/admin/config.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.configs.All(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"config": values})
}

type setTableNameRequest struct {
	TableName string `json:"table_name"`
}

// SetTableName handles PUT /api/admin/config/table-name.
// The value is spliced into report SQL, so it is restricted to the
// customer_<id> shape.
func (h *AdminHandler) SetTableName(w http.ResponseWriter, r *http.Request) {
	var req setTableNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	name := strings.TrimSpace(req.TableName)
	if !sqlpkg.IsTenantTableName(name) {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request",
			"table name must match customer_<alphanumeric id>")
		return
	}

	if err := h.configs.Set(r.Context(), repositories.ConfigKeyTableName, name); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ConvertTemplates handles POST /api/admin/templates/convert.
// It re-derives all SQL templates from their markdown sources, using the
// currently configured data table for the header default annotations.
func (h *AdminHandler) ConvertTemplates(w http.ResponseWriter, r *http.Request) {
	converter := *h.converter
	tableName, err := h.configs.GetOrDefault(r.Context(),
		repositories.ConfigKeyTableName, sqlpkg.FallbackTableName)
	if err == nil {
		converter.Defaults = sqlpkg.Defaults{TableName: tableName}
	}

	converted, err := converter.ConvertAll()
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"converted": converted})
}
