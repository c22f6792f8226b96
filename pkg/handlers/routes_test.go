package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/testhelpers"
)

func passThroughScope(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func newAuthedMux(t *testing.T) *http.ServeMux {
	t.Helper()
	tokens := auth.NewTokenManager(testhelpers.TestJWTSecret, time.Hour)
	sessions := auth.NewSessionStore("test-session-secret", 3600, auth.CookieSettings{})
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(sessions, tokens, zap.NewNop()), zap.NewNop())

	areas := &mockAreaServiceForHandler{areas: []*models.Area{{ID: 1, Name: "Manufacturing"}}}

	mux := http.NewServeMux()
	NewAreaHandler(areas, zap.NewNop()).RegisterRoutes(mux, authMiddleware, passThroughScope)
	return mux
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	mux := newAuthedMux(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no credentials", "", http.StatusUnauthorized},
		{"wrong secret", testhelpers.GenerateTestTokenWithBearer("other-secret", 1, "admin"), http.StatusUnauthorized},
		{"not bearer", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"valid token", testhelpers.GenerateTestTokenWithBearer(testhelpers.TestJWTSecret, 1, "admin"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_AuthenticatedListReturnsAreas(t *testing.T) {
	mux := newAuthedMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
	req.Header.Set("Authorization", testhelpers.GenerateTestTokenWithBearer(testhelpers.TestJWTSecret, 1, "admin"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AreaListResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Manufacturing", resp.Areas[0].Name)
}
