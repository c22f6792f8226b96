package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantID int64
		wantOK bool
	}{
		{"valid", "42", 42, true},
		{"zero", "0", 0, false},
		{"negative", "-3", 0, false},
		{"not a number", "abc", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/areas/x", nil)
			req.SetPathValue("id", tt.value)
			rec := httptest.NewRecorder()

			id, ok := ParseID(rec, req, zap.NewNop())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), "invalid_id")
			}
		})
	}
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?area_id=7&min_score=-1&ids=3,%204,,5&preview=true&bad=x", nil)

	areaID, err := optionalInt64Query(req, "area_id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), *areaID)

	missing, err := optionalInt64Query(req, "step_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = optionalInt64Query(req, "bad")
	assert.EqualError(t, err, "invalid query parameter: bad")

	minScore, err := optionalIntQuery(req, "min_score")
	require.NoError(t, err)
	assert.Equal(t, -1, *minScore)

	ids, err := idListQuery(req, "ids")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, ids)

	_, err = idListQuery(req, "bad")
	assert.Error(t, err)

	preview, err := boolQuery(req, "preview", false)
	require.NoError(t, err)
	assert.True(t, preview)

	def, err := boolQuery(req, "clear", true)
	require.NoError(t, err)
	assert.True(t, def)

	_, err = boolQuery(req, "bad", false)
	assert.Error(t, err)
}
