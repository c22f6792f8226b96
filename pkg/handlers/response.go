package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
)

// ApiResponse is the standard envelope for JSON API responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ScopeMiddleware wraps a handler with a database connection scope.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

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
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForError maps a service error to its HTTP status and error code.
func statusForError(err error) (int, string) {
	kind := apperrors.Kind(err)
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, kind
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, kind
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict, kind
	case errors.Is(err, apperrors.ErrSelfReference), errors.Is(err, apperrors.ErrIntegrity):
		return http.StatusUnprocessableEntity, kind
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, kind
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, kind
	}
	return http.StatusInternalServerError, kind
}

// writeServiceError writes the response for an error returned by a service.
// Client errors carry the error text; anything unexpected is logged and hidden.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(msg, zap.String("error", logging.SanitizeError(err)))
		message = msg
	} else {
		logger.Debug(msg, zap.Error(err))
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

func writeOK(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
