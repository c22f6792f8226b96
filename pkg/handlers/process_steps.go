package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ProcessStepListResponse for GET /api/process-steps
type ProcessStepListResponse struct {
	ProcessSteps []*models.ProcessStep `json:"process_steps"`
	Total        int                   `json:"total"`
}

// ProcessStepHandler handles process step HTTP requests, including LLM analysis.
type ProcessStepHandler struct {
	stepService     services.ProcessStepService
	analysisService services.AnalysisService
	logger          *zap.Logger
}

// NewProcessStepHandler creates a new process step handler.
func NewProcessStepHandler(
	stepService services.ProcessStepService,
	analysisService services.AnalysisService,
	logger *zap.Logger,
) *ProcessStepHandler {
	return &ProcessStepHandler{
		stepService:     stepService,
		analysisService: analysisService,
		logger:          logger,
	}
}

// RegisterRoutes registers the process step handler's routes on the given mux.
func (h *ProcessStepHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	base := "/api/process-steps"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("PATCH "+base+"/{id}/field", authMiddleware.RequireAuth(scopeMiddleware(h.UpdateField)))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
	mux.HandleFunc("POST "+base+"/{id}/analyze", authMiddleware.RequireAuth(scopeMiddleware(h.Analyze)))
}

// List handles GET /api/process-steps?area_id=
func (h *ProcessStepHandler) List(w http.ResponseWriter, r *http.Request) {
	areaID, err := optionalInt64Query(r, "area_id")
	if err != nil {
		writeQueryError(w, err, h.logger)
		return
	}

	steps, err := h.stepService.List(r.Context(), areaID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list process steps", err)
		return
	}
	writeOK(w, http.StatusOK, ProcessStepListResponse{ProcessSteps: steps, Total: len(steps)}, h.logger)
}

// Create handles POST /api/process-steps
func (h *ProcessStepHandler) Create(w http.ResponseWriter, r *http.Request) {
	var step models.ProcessStep
	if !decodeJSON(w, r, &step, h.logger) {
		return
	}
	step.ID = 0

	if err := h.stepService.Create(r.Context(), &step); err != nil {
		writeServiceError(w, h.logger, "Failed to create process step", err)
		return
	}
	writeOK(w, http.StatusCreated, &step, h.logger)
}

// Get handles GET /api/process-steps/{id}
func (h *ProcessStepHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	step, err := h.stepService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get process step", err)
		return
	}
	writeOK(w, http.StatusOK, step, h.logger)
}

// Update handles PUT /api/process-steps/{id}
func (h *ProcessStepHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var step models.ProcessStep
	if !decodeJSON(w, r, &step, h.logger) {
		return
	}
	step.ID = id

	if err := h.stepService.Update(r.Context(), &step); err != nil {
		writeServiceError(w, h.logger, "Failed to update process step", err)
		return
	}
	writeOK(w, http.StatusOK, &step, h.logger)
}

// UpdateField handles PATCH /api/process-steps/{id}/field
func (h *ProcessStepHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	step, err := h.stepService.UpdateField(r.Context(), id, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update process step field", err)
		return
	}
	writeOK(w, http.StatusOK, step, h.logger)
}

// Delete handles DELETE /api/process-steps/{id}
func (h *ProcessStepHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.stepService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Failed to delete process step", err)
		return
	}

	h.logger.Info("Deleted process step", zap.Int64("process_step_id", id))
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Process step deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Analyze handles POST /api/process-steps/{id}/analyze
// The model's answer is stored in the requested llm_comment slot.
func (h *ProcessStepHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	var req services.AnalysisRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	step, err := h.analysisService.AnalyzeProcessStep(r.Context(), userID, id, req)
	if err != nil {
		h.logger.Warn("Process step analysis failed",
			zap.Int64("process_step_id", id),
			zap.String("provider", req.Provider),
			zap.Error(err))
		writeServiceError(w, h.logger, "Failed to analyze process step", err)
		return
	}
	writeOK(w, http.StatusOK, step, h.logger)
}
