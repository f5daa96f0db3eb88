package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/services"
)

// ReportsHandler handles the report catalog and execution endpoints.
type ReportsHandler struct {
	reportService services.ReportService
	logger        *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(reportService services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the report catalog routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("GET /api/reports", mw.RequireAuth(h.List))
	mux.HandleFunc("POST /api/reports", mw.RequireAdmin(h.Create))
	mux.HandleFunc("GET /api/reports/{name}", mw.RequireAuth(h.Detail))
	mux.HandleFunc("DELETE /api/reports/{name}", mw.RequireAdmin(h.Delete))
	mux.HandleFunc("POST /api/reports/{name}/run", mw.RequireAuth(h.Run))
	mux.HandleFunc("GET /api/reports/{name}/sql", mw.RequireAdmin(h.RawSQL))
	mux.HandleFunc("PUT /api/reports/{name}/sql", mw.RequireAdmin(h.UpdateSQL))
	mux.HandleFunc("POST /api/reports/{name}/register", mw.RequireAdmin(h.Register))
	mux.HandleFunc("PUT /api/reports/{name}/active", mw.RequireAdmin(h.SetActive))
}

// List handles GET /api/reports.
// Partial catalog failures are reported as warnings, not errors.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	catalog, warnings, err := h.reportService.List(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"reports":  catalog,
		"warnings": warnings,
	})
}

// Detail handles GET /api/reports/{name}.
func (h *ReportsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.reportService.Detail(r.Context(), r.PathValue("name"))
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, detail)
}

type runRequest struct {
	Parameters map[string]string `json:"parameters"`
}

// Run handles POST /api/reports/{name}/run.
func (h *ReportsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
	}

	result, err := h.reportService.Run(r.Context(), name, req.Parameters)
	if err != nil {
		h.logger.Warn("Report execution failed",
			zap.String("report", name),
			zap.Error(err))
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

// RawSQL handles GET /api/reports/{name}/sql.
func (h *ReportsHandler) RawSQL(w http.ResponseWriter, r *http.Request) {
	body, err := h.reportService.RawSQL(r.Context(), r.PathValue("name"))
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"sql": body})
}

type updateSQLRequest struct {
	SQL string `json:"sql"`
}

// UpdateSQL handles PUT /api/reports/{name}/sql.
func (h *ReportsHandler) UpdateSQL(w http.ResponseWriter, r *http.Request) {
	var req updateSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.reportService.UpdateSQL(r.Context(), r.PathValue("name"), req.SQL); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createReportRequest struct {
	ReportName  string `json:"report_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SQL         string `json:"sql"`
}

// Create handles POST /api/reports.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	report := &models.Report{
		ReportName:  req.ReportName,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := h.reportService.Create(r.Context(), report, req.SQL); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, report)
}

// Register handles POST /api/reports/{name}/register.
func (h *ReportsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
	}

	report := &models.Report{
		ReportName:  r.PathValue("name"),
		DisplayName: req.DisplayName,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := h.reportService.Register(r.Context(), report); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles PUT /api/reports/{name}/active.
func (h *ReportsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.reportService.SetActive(r.Context(), r.PathValue("name"), req.IsActive); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete handles DELETE /api/reports/{name}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reportService.Delete(r.Context(), r.PathValue("name")); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
