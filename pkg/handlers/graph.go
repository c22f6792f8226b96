package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// GraphHandler serves the process step relevance graph.
type GraphHandler struct {
	graphService services.GraphService
	logger       *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(graphService services.GraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graphService: graphService, logger: logger}
}

// RegisterRoutes registers the graph handler's routes on the given mux.
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/graph/process-steps", authMiddleware.RequireAuth(scopeMiddleware(h.StepGraph)))
}

// StepGraph handles GET /api/graph/process-steps?focus_area_id=&compare_area_ids=1,2
func (h *GraphHandler) StepGraph(w http.ResponseWriter, r *http.Request) {
	focus, err := optionalInt64Query(r, "focus_area_id")
	if err != nil {
		writeQueryError(w, err, h.logger)
		return
	}
	if focus == nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameter", "focus_area_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	compare, err := idListQuery(r, "compare_area_ids")
	if err != nil {
		writeQueryError(w, err, h.logger)
		return
	}

	graph, err := h.graphService.StepGraph(r.Context(), *focus, compare)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to build process step graph", err)
		return
	}
	writeOK(w, http.StatusOK, graph, h.logger)
}
