package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/audit"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// LoginRequest for POST /api/auth/login and POST /api/auth/token
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse for POST /api/auth/token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ChangePasswordRequest for PUT /api/auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenIssuer signs API tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

// ============================================================================
// Handler
// ============================================================================

// AuthHandler handles login, logout and token issuance.
type AuthHandler struct {
	userService services.UserService
	sessions    *auth.SessionStore
	tokens      TokenIssuer
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	userService services.UserService,
	sessions *auth.SessionStore,
	tokens TokenIssuer,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		tokens:      tokens,
		auditor:     auditor,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
// Login and token issuance are public.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/auth/login", scopeMiddleware(h.Login))
	mux.HandleFunc("POST /api/auth/token", scopeMiddleware(h.Token))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(scopeMiddleware(h.Me)))
	mux.HandleFunc("PUT /api/auth/password", authMiddleware.RequireAuth(scopeMiddleware(h.ChangePassword)))
}

// Login handles POST /api/auth/login
// A successful login stores the user in the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	user, err := h.authenticate(r, req, audit.MethodSession)
	if err != nil {
		writeServiceError(w, h.logger, "Login failed", err)
		return
	}

	if err := h.sessions.Login(w, r, user.ID, user.Username); err != nil {
		h.logger.Error("Failed to save session", zap.Int64("user_id", user.ID), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "Failed to create session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	writeOK(w, http.StatusOK, user, h.logger)
}

// Token handles POST /api/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	user, err := h.authenticate(r, req, audit.MethodToken)
	if err != nil {
		writeServiceError(w, h.logger, "Token request failed", err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to issue token", err)
		return
	}

	writeOK(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, h.logger)
}

// authenticate checks the credentials and records the attempt.
func (h *AuthHandler) authenticate(r *http.Request, req LoginRequest, method string) (*models.User, error) {
	details := audit.LoginDetails{Username: strings.TrimSpace(req.Username), Method: method}
	user, err := h.userService.Authenticate(r.Context(), details.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.auditor.LogLoginFailure(details, r.RemoteAddr)
		}
		return nil, err
	}
	h.auditor.LogLogin(user.ID, details, r.RemoteAddr)
	return user, nil
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "Failed to clear session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Logged out"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load user", err)
		return
	}

	writeOK(w, http.StatusOK, user, h.logger)
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Missing user", err)
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.auditor.LogPasswordChange(r.Context(), false, r.RemoteAddr)
		}
		writeServiceError(w, h.logger, "Failed to change password", err)
		return
	}
	h.auditor.LogPasswordChange(r.Context(), true, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Password changed"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
