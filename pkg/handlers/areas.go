package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// AreaRequest for POST /api/areas and PUT /api/areas/{id}
type AreaRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// AreaListResponse for GET /api/areas
type AreaListResponse struct {
	Areas []*models.Area `json:"areas"`
	Total int            `json:"total"`
}

// UpdateFieldRequest for PATCH .../{id}/field
type UpdateFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// ============================================================================
// Handler
// ============================================================================

// AreaHandler handles area HTTP requests.
type AreaHandler struct {
	areaService services.AreaService
	logger      *zap.Logger
}

// NewAreaHandler creates a new area handler.
func NewAreaHandler(areaService services.AreaService, logger *zap.Logger) *AreaHandler {
	return &AreaHandler{
		areaService: areaService,
		logger:      logger,
	}
}

// RegisterRoutes registers the area handler's routes on the given mux.
func (h *AreaHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	base := "/api/areas"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("PATCH "+base+"/{id}/field", authMiddleware.RequireAuth(scopeMiddleware(h.UpdateField)))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
}

// List handles GET /api/areas
func (h *AreaHandler) List(w http.ResponseWriter, r *http.Request) {
	areas, err := h.areaService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list areas", err)
		return
	}
	writeOK(w, http.StatusOK, AreaListResponse{Areas: areas, Total: len(areas)}, h.logger)
}

// Create handles POST /api/areas
func (h *AreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AreaRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	area := &models.Area{Name: req.Name, Description: req.Description}
	if err := h.areaService.Create(r.Context(), area); err != nil {
		writeServiceError(w, h.logger, "Failed to create area", err)
		return
	}
	writeOK(w, http.StatusCreated, area, h.logger)
}

// Get handles GET /api/areas/{id}
func (h *AreaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	area, err := h.areaService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get area", err)
		return
	}
	writeOK(w, http.StatusOK, area, h.logger)
}

// Update handles PUT /api/areas/{id}
func (h *AreaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req AreaRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	area := &models.Area{ID: id, Name: req.Name, Description: req.Description}
	if err := h.areaService.Update(r.Context(), area); err != nil {
		writeServiceError(w, h.logger, "Failed to update area", err)
		return
	}
	writeOK(w, http.StatusOK, area, h.logger)
}

// UpdateField handles PATCH /api/areas/{id}/field
func (h *AreaHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	area, err := h.areaService.UpdateField(r.Context(), id, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update area field", err)
		return
	}
	writeOK(w, http.StatusOK, area, h.logger)
}

// Delete handles DELETE /api/areas/{id}
// Steps, use cases and links of the area are removed with it.
func (h *AreaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.areaService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Failed to delete area", err)
		return
	}

	h.logger.Info("Deleted area", zap.Int64("area_id", id))
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Area deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
