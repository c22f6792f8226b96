package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ImportPreviewResponse for a staged import: the summary plus every row decision.
type ImportPreviewResponse struct {
	Result *models.ImportResult `json:"result"`
	Items  []*models.PlanItem   `json:"items"`
}

// FinalizeImportRequest for POST /api/import/finalize.
// PlanID defaults to the session's pending preview.
type FinalizeImportRequest struct {
	PlanID    string                    `json:"plan_id,omitempty"`
	Overrides map[int]models.PlanAction `json:"overrides,omitempty"`
}

// ImportSessions tracks the pending preview per browser session.
type ImportSessions interface {
	PendingImport(r *http.Request) string
	SetPendingImport(w http.ResponseWriter, r *http.Request, planID string) error
}

// ============================================================================
// Handler
// ============================================================================

// ImportHandler handles collection uploads and the preview/finalize workflow.
type ImportHandler struct {
	importService  services.ImportService
	planStore      services.PlanStore
	sessions       ImportSessions
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(
	importService services.ImportService,
	planStore services.PlanStore,
	sessions ImportSessions,
	maxUploadBytes int64,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		importService:  importService,
		planStore:      planStore,
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/import/preview", authMiddleware.RequireAuth(scopeMiddleware(h.GetPreview)))
	mux.HandleFunc("DELETE /api/import/preview", authMiddleware.RequireAuth(scopeMiddleware(h.DiscardPreview)))
	mux.HandleFunc("POST /api/import/finalize", authMiddleware.RequireAuth(scopeMiddleware(h.Finalize)))
	mux.HandleFunc("POST /api/import/{kind}", authMiddleware.RequireAuth(scopeMiddleware(h.Upload)))
}

// Upload handles POST /api/import/{kind}?preview=true|false
// The body is a JSON array of rows, sent raw or as the multipart field "file".
// Staged kinds return a preview; the others are applied immediately.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind := models.ImportKind(r.PathValue("kind"))
	if !kind.IsValid() {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_import_kind", "Unknown import kind: "+string(kind)); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	preview, err := boolQuery(r, "preview", kind.PreviewByDefault())
	if err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	data, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		h.logger.Info("Rejected import upload", zap.String("kind", string(kind)), zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	rows, err := jsonutil.DecodeObjects(data)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_json", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !preview {
		result, err := h.importService.Import(r.Context(), kind, rows)
		if err != nil {
			h.writeFailedResult(w, result, "Import failed", err)
			return
		}
		writeOK(w, http.StatusOK, result, h.logger)
		return
	}

	plan, err := h.importService.Plan(r.Context(), kind, rows)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to plan import", err)
		return
	}
	plan.UserID = userID
	if err := h.planStore.Save(r.Context(), plan); err != nil {
		writeServiceError(w, h.logger, "Failed to store import preview", err)
		return
	}

	// Only one preview is pending per session.
	if previous := h.sessions.PendingImport(r); previous != "" && previous != plan.ID {
		if err := h.planStore.Delete(r.Context(), previous); err != nil {
			h.logger.Warn("Failed to discard previous import preview", zap.String("plan_id", previous), zap.Error(err))
		}
	}
	if err := h.sessions.SetPendingImport(w, r, plan.ID); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "Failed to save import preview"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Staged import preview",
		zap.String("plan_id", plan.ID),
		zap.String("kind", string(kind)),
		zap.Int("rows", len(rows)),
		zap.Int("pending", plan.Pending()))
	h.writePreview(w, plan, http.StatusOK)
}

// GetPreview handles GET /api/import/preview?plan_id=
func (h *ImportHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.loadPlan(w, r, r.URL.Query().Get("plan_id"))
	if !ok {
		return
	}
	h.writePreview(w, plan, http.StatusOK)
}

// DiscardPreview handles DELETE /api/import/preview?plan_id=
func (h *ImportHandler) DiscardPreview(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.loadPlan(w, r, r.URL.Query().Get("plan_id"))
	if !ok {
		return
	}
	if err := h.planStore.Delete(r.Context(), plan.ID); err != nil {
		writeServiceError(w, h.logger, "Failed to discard import preview", err)
		return
	}
	h.clearPending(w, r, plan.ID)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Import preview discarded"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Finalize handles POST /api/import/finalize
// The plan is applied in one transaction with the given per-row overrides.
// A failed apply keeps the preview so it can be retried or discarded.
func (h *ImportHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeImportRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req, h.logger) {
		return
	}

	plan, ok := h.loadPlan(w, r, req.PlanID)
	if !ok {
		return
	}

	result, err := h.importService.Apply(r.Context(), plan, req.Overrides)
	if err != nil {
		h.writeFailedResult(w, result, "Failed to apply import", err)
		return
	}

	if err := h.planStore.Delete(r.Context(), plan.ID); err != nil {
		h.logger.Warn("Failed to delete applied import preview", zap.String("plan_id", plan.ID), zap.Error(err))
	}
	h.clearPending(w, r, plan.ID)

	h.logger.Info("Applied import preview",
		zap.String("plan_id", plan.ID),
		zap.String("kind", string(plan.Kind)),
		zap.Int("added", result.AddedCount),
		zap.Int("updated", result.UpdatedCount))
	writeOK(w, http.StatusOK, result, h.logger)
}

// loadPlan resolves planID (or the session's pending preview) to a plan owned by the caller.
func (h *ImportHandler) loadPlan(w http.ResponseWriter, r *http.Request, planID string) (*models.ImportPlan, bool) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return nil, false
	}

	planID = strings.TrimSpace(planID)
	if planID == "" {
		planID = h.sessions.PendingImport(r)
	}
	if planID == "" {
		writeServiceError(w, h.logger, "No pending import", apperrors.NotFound("no import preview is pending"))
		return nil, false
	}

	plan, err := h.planStore.Load(r.Context(), planID)
	if err == nil && plan.UserID != userID {
		// Someone else's plan is reported the same as a missing one.
		err = apperrors.NotFound("import preview %s not found", planID)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.clearPending(w, r, planID)
		}
		writeServiceError(w, h.logger, "Failed to load import preview", err)
		return nil, false
	}
	return plan, true
}

func (h *ImportHandler) clearPending(w http.ResponseWriter, r *http.Request, planID string) {
	if h.sessions.PendingImport(r) != planID {
		return
	}
	if err := h.sessions.SetPendingImport(w, r, ""); err != nil {
		h.logger.Warn("Failed to clear pending import", zap.Error(err))
	}
}

func (h *ImportHandler) writePreview(w http.ResponseWriter, plan *models.ImportPlan, status int) {
	summary, err := h.importService.Summarize(plan, nil)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to summarize import preview", err)
		return
	}
	writeOK(w, status, ImportPreviewResponse{Result: summary, Items: plan.Items}, h.logger)
}

// writeFailedResult reports an import whose transaction rolled back, keeping the result body.
func (h *ImportHandler) writeFailedResult(w http.ResponseWriter, result *models.ImportResult, msg string, err error) {
	if result == nil {
		writeServiceError(w, h.logger, msg, err)
		return
	}
	status, code := statusForError(err)
	h.logger.Warn(msg, zap.String("kind", string(result.Kind)), zap.Error(err))
	if err := WriteJSON(w, status, ApiResponse{Success: false, Data: result, Error: code, Message: result.Message}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// readUpload returns the uploaded document from a multipart "file" field or the raw body.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, uploadError(err, maxBytes)
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, uploadError(err, maxBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing upload field \"file\": %w", err)
	}
	defer file.Close()

	if ext := strings.ToLower(header.Filename); ext != "" && !strings.HasSuffix(ext, ".json") {
		return nil, fmt.Errorf("file %q is not a .json file", header.Filename)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err, maxBytes)
	}
	return data, nil
}

func uploadError(err error, maxBytes int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}
	return fmt.Errorf("read upload: %w", err)
}
