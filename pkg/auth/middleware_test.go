package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	claims      *Claims
	token       string
	validateErr error
}

func (m *mockAuthService) ValidateRequest(*http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	claims := &Claims{Username: "erin"}
	claims.Subject = "5"
	middleware := NewMiddleware(&mockAuthService{claims: claims, token: "test-token"}, zap.NewNop())

	var userID int64
	var username, token string
	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		userID = GetUserIDFromContext(r.Context())
		username = GetUsernameFromContext(r.Context())
		token, _ = GetToken(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/areas", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), userID)
	assert.Equal(t, "erin", username)
	assert.Equal(t, "test-token", token)
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	middleware := NewMiddleware(&mockAuthService{validateErr: errors.New("invalid token")}, zap.NewNop())

	called := false
	handler := middleware.RequireAuthHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestRequireUserIDFromContext(t *testing.T) {
	_, err := RequireUserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Error(t, err)

	claims := &Claims{}
	claims.Subject = "12"
	id, err := RequireUserIDFromContext(WithClaims(httptest.NewRequest(http.MethodGet, "/", nil).Context(), claims))
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}
