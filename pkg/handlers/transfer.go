package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/audit"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// TransferHandler handles full-database export and import.
type TransferHandler struct {
	transferService services.TransferService
	maxUploadBytes  int64
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(
	transferService services.TransferService,
	maxUploadBytes int64,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		maxUploadBytes:  maxUploadBytes,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the transfer handler's routes on the given mux.
func (h *TransferHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/export", authMiddleware.RequireAuth(scopeMiddleware(h.Export)))
	mux.HandleFunc("POST /api/import-database", authMiddleware.RequireAuth(scopeMiddleware(h.Import)))
}

// Export handles GET /api/export
// The document is sent as a file download.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.transferService.Export(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to export database", err)
		return
	}

	filename := fmt.Sprintf("catalog-export-%s.json", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := WriteJSON(w, http.StatusOK, doc); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// Import handles POST /api/import-database?clear_existing_data=true|false
// With clear_existing_data the database is replaced; otherwise the document is merged by natural key.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	clearExisting, err := boolQuery(r, "clear_existing_data", false)
	if err != nil {
		writeQueryError(w, err, h.logger)
		return
	}

	data, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	var doc models.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_json", "Invalid export document: "+err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.transferService.Import(r.Context(), &doc, clearExisting)
	if result != nil {
		h.auditor.LogCatalogRestore(r.Context(), audit.RestoreDetails{
			ClearExisting: clearExisting,
			Success:       err == nil,
			Message:       result.Message,
		}, r.RemoteAddr)
	}
	if err != nil {
		if result == nil {
			writeServiceError(w, h.logger, "Database import failed", err)
			return
		}
		status, code := statusForError(err)
		h.logger.Warn("Database import rolled back", zap.Bool("clear_existing_data", clearExisting), zap.Error(err))
		if err := WriteJSON(w, status, ApiResponse{Success: false, Data: result, Error: code, Message: result.Message}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Imported database",
		zap.Bool("clear_existing_data", clearExisting),
		zap.Int("dropped", result.DroppedTotal()))
	writeOK(w, http.StatusOK, result, h.logger)
}
