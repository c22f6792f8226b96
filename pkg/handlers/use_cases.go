package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// UseCaseRequest for POST /api/use-cases and PUT /api/use-cases/{id}.
// Tag fields are comma-separated; an omitted field leaves that category unchanged on update.
type UseCaseRequest struct {
	models.UseCase
	ITSystems *string `json:"it_systems"`
	DataTypes *string `json:"data_types"`
	Tags      *string `json:"tags"`
}

func (req *UseCaseRequest) tagMap() map[models.TagCategory]string {
	tags := make(map[models.TagCategory]string)
	for category, value := range map[models.TagCategory]*string{
		models.TagCategoryITSystem: req.ITSystems,
		models.TagCategoryDataType: req.DataTypes,
		models.TagCategoryTag:      req.Tags,
	} {
		if value != nil {
			tags[category] = *value
		}
	}
	return tags
}

// UseCaseListResponse for GET /api/use-cases
type UseCaseListResponse struct {
	UseCases []*models.UseCase `json:"use_cases"`
	Total    int               `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// UseCaseHandler handles use case HTTP requests.
type UseCaseHandler struct {
	useCaseService services.UseCaseService
	logger         *zap.Logger
}

// NewUseCaseHandler creates a new use case handler.
func NewUseCaseHandler(useCaseService services.UseCaseService, logger *zap.Logger) *UseCaseHandler {
	return &UseCaseHandler{
		useCaseService: useCaseService,
		logger:         logger,
	}
}

// RegisterRoutes registers the use case handler's routes on the given mux.
func (h *UseCaseHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	base := "/api/use-cases"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("PATCH "+base+"/{id}/field", authMiddleware.RequireAuth(scopeMiddleware(h.UpdateField)))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
}

// List handles GET /api/use-cases?process_step_id=&area_id=&tag_id=&q=
func (h *UseCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repositories.UseCaseFilter
	var err error
	if filter.ProcessStepID, err = optionalInt64Query(r, "process_step_id"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if filter.AreaID, err = optionalInt64Query(r, "area_id"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if filter.TagID, err = optionalInt64Query(r, "tag_id"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	filter.Search = strings.TrimSpace(r.URL.Query().Get("q"))

	useCases, err := h.useCaseService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list use cases", err)
		return
	}
	writeOK(w, http.StatusOK, UseCaseListResponse{UseCases: useCases, Total: len(useCases)}, h.logger)
}

// Create handles POST /api/use-cases
func (h *UseCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UseCaseRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	uc := req.UseCase
	uc.ID = 0
	uc.Tags = nil
	if err := h.useCaseService.Create(r.Context(), &uc, req.tagMap()); err != nil {
		writeServiceError(w, h.logger, "Failed to create use case", err)
		return
	}
	h.writeDetail(w, r, uc.ID, http.StatusCreated)
}

// Get handles GET /api/use-cases/{id}
func (h *UseCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	h.writeDetail(w, r, id, http.StatusOK)
}

// Update handles PUT /api/use-cases/{id}
func (h *UseCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req UseCaseRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	uc := req.UseCase
	uc.ID = id
	uc.Tags = nil
	if err := h.useCaseService.Update(r.Context(), &uc, req.tagMap()); err != nil {
		writeServiceError(w, h.logger, "Failed to update use case", err)
		return
	}
	h.writeDetail(w, r, id, http.StatusOK)
}

// UpdateField handles PATCH /api/use-cases/{id}/field
func (h *UseCaseHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	uc, err := h.useCaseService.UpdateField(r.Context(), id, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update use case field", err)
		return
	}
	writeOK(w, http.StatusOK, uc, h.logger)
}

// Delete handles DELETE /api/use-cases/{id}
func (h *UseCaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.useCaseService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Failed to delete use case", err)
		return
	}

	h.logger.Info("Deleted use case", zap.Int64("use_case_id", id))
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Use case deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *UseCaseHandler) writeDetail(w http.ResponseWriter, r *http.Request, id int64, status int) {
	detail, err := h.useCaseService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get use case", err)
		return
	}
	writeOK(w, status, detail, h.logger)
}
