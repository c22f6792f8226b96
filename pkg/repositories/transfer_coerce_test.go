package repositories

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_Int(t *testing.T) {
	v, err := coerce(float64(12), ColumnInt)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = coerce(" 7 ", ColumnInt)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = coerce(json.Number("42"), ColumnInt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = coerce(1.5, ColumnInt)
	assert.Error(t, err)

	_, err = coerce([]any{1}, ColumnInt)
	assert.Error(t, err)

	v, err = coerce(nil, ColumnInt)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCoerce_Time(t *testing.T) {
	v, err := coerce("2024-03-01T10:00:00Z", ColumnTime)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), v)

	v, err = coerce("2024-03-01T10:00:00.123456", ColumnTime)
	require.NoError(t, err)
	assert.Equal(t, 123456000, v.(time.Time).Nanosecond())

	_, err = coerce("yesterday", ColumnTime)
	assert.Error(t, err)
}

func TestCoerce_Text(t *testing.T) {
	v, err := coerce("plain", ColumnText)
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	v, err = coerce(float64(3), ColumnText)
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestTransferTables_CoverExport(t *testing.T) {
	for _, name := range []string{"users", "areas", "process_steps", "use_cases", "tags", "use_case_tags",
		"llm_settings", "usecase_area_relevance", "usecase_step_relevance", "usecase_usecase_relevance",
		"process_step_process_step_relevance"} {
		tbl, ok := LookupTransferTable(name)
		require.True(t, ok, name)
		for _, c := range tbl.Columns {
			assert.NotContains(t, []string{"openai_api_key", "anthropic_api_key", "google_api_key", "apollo_client_secret"}, c.Name)
		}
	}
}
