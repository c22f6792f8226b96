package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateLinkRequest for POST /api/relevance/{kind}
type CreateLinkRequest struct {
	SourceID int64   `json:"source_id"`
	TargetID int64   `json:"target_id"`
	Score    *int    `json:"relevance_score"`
	Content  *string `json:"relevance_content"`
}

// LinkListResponse for GET /api/relevance/{kind}
type LinkListResponse struct {
	Kind  models.LinkKind         `json:"kind"`
	Links []*models.RelevanceLink `json:"links"`
	Total int                     `json:"total"`
}

// DeleteAllResponse for DELETE /api/relevance/{kind}
type DeleteAllResponse struct {
	Kind    models.LinkKind `json:"kind"`
	Deleted int64           `json:"deleted"`
}

// ============================================================================
// Handler
// ============================================================================

// RelevanceHandler handles relevance link HTTP requests for every link kind.
type RelevanceHandler struct {
	relevanceService services.RelevanceService
	logger           *zap.Logger
}

// NewRelevanceHandler creates a new relevance handler.
func NewRelevanceHandler(relevanceService services.RelevanceService, logger *zap.Logger) *RelevanceHandler {
	return &RelevanceHandler{
		relevanceService: relevanceService,
		logger:           logger,
	}
}

// RegisterRoutes registers the relevance handler's routes on the given mux.
func (h *RelevanceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	base := "/api/relevance/{kind}"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("DELETE "+base, authMiddleware.RequireAuth(scopeMiddleware(h.DeleteAll)))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
}

func (h *RelevanceHandler) parseKind(w http.ResponseWriter, r *http.Request) (models.LinkKind, bool) {
	kind := models.LinkKind(r.PathValue("kind"))
	if !kind.IsValid() {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_link_kind", "Unknown relevance kind: "+string(kind)); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return kind, true
}

// List handles GET /api/relevance/{kind}?source_id=&target_id=&min_score=&max_score=
func (h *RelevanceHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	filter := models.LinkFilter{Kind: kind}
	var err error
	if filter.SourceID, err = optionalInt64Query(r, "source_id"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if filter.TargetID, err = optionalInt64Query(r, "target_id"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if filter.MinScore, err = optionalIntQuery(r, "min_score"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if filter.MaxScore, err = optionalIntQuery(r, "max_score"); err != nil {
		writeQueryError(w, err, h.logger)
		return
	}

	links, err := h.relevanceService.QueryLinks(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to query relevance links", err)
		return
	}
	writeOK(w, http.StatusOK, LinkListResponse{Kind: kind, Links: links, Total: len(links)}, h.logger)
}

// Create handles POST /api/relevance/{kind}
func (h *RelevanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if req.Score == nil {
		writeServiceError(w, h.logger, "Invalid relevance link", apperrors.Validation("relevance_score is required"))
		return
	}

	link, err := h.relevanceService.AddLink(r.Context(), kind, req.SourceID, req.TargetID, *req.Score, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to add relevance link", err)
		return
	}
	writeOK(w, http.StatusCreated, link, h.logger)
}

// Update handles PUT /api/relevance/{kind}/{id}
func (h *RelevanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var update models.LinkUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	link, err := h.relevanceService.UpdateLink(r.Context(), kind, id, update)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update relevance link", err)
		return
	}
	writeOK(w, http.StatusOK, link, h.logger)
}

// Delete handles DELETE /api/relevance/{kind}/{id}
func (h *RelevanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.relevanceService.DeleteLink(r.Context(), kind, id); err != nil {
		writeServiceError(w, h.logger, "Failed to delete relevance link", err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Relevance link deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteAll handles DELETE /api/relevance/{kind}
func (h *RelevanceHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	deleted, err := h.relevanceService.DeleteAll(r.Context(), kind)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to delete relevance links", err)
		return
	}

	h.logger.Info("Deleted all relevance links", zap.String("kind", string(kind)), zap.Int64("deleted", deleted))
	writeOK(w, http.StatusOK, DeleteAllResponse{Kind: kind, Deleted: deleted}, h.logger)
}
