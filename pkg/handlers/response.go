package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps service-layer sentinel errors onto HTTP statuses.
func WriteServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrInvalidCredential):
		return ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, apperrors.ErrInjectionDetected):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, apperrors.ErrSetupDone):
		return ErrorResponse(w, http.StatusConflict, "setup_done", err.Error())
	case errors.Is(err, apperrors.ErrSetupRequired):
		return ErrorResponse(w, http.StatusConflict, "setup_required", err.Error())
	case errors.Is(err, apperrors.ErrLastAdmin):
		return ErrorResponse(w, http.StatusConflict, "last_admin", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
