package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// LLMSettingsHandler reads and writes the caller's LLM provider settings.
// Secrets are accepted on write and never returned.
type LLMSettingsHandler struct {
	settingsService services.LLMSettingsService
	logger          *zap.Logger
}

// NewLLMSettingsHandler creates a new LLM settings handler.
func NewLLMSettingsHandler(settingsService services.LLMSettingsService, logger *zap.Logger) *LLMSettingsHandler {
	return &LLMSettingsHandler{settingsService: settingsService, logger: logger}
}

// RegisterRoutes registers the LLM settings handler's routes on the given mux.
func (h *LLMSettingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/llm-settings", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PUT /api/llm-settings", authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
}

// Get handles GET /api/llm-settings
func (h *LLMSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	view, err := h.settingsService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load LLM settings", err)
		return
	}
	writeOK(w, http.StatusOK, view, h.logger)
}

// Update handles PUT /api/llm-settings
func (h *LLMSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	var req services.LLMSettingsUpdate
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.settingsService.Update(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to update LLM settings", err)
		return
	}

	h.logger.Info("Updated LLM settings", zap.Int64("user_id", userID))
	writeOK(w, http.StatusOK, view, h.logger)
}
