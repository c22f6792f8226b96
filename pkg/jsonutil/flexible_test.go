package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{"string value", json.RawMessage(`"hello"`), "hello"},
		{"integer value", json.RawMessage(`42`), "42"},
		{"float value", json.RawMessage(`3.14`), "3.14"},
		{"boolean", json.RawMessage(`true`), "true"},
		{"null value", json.RawMessage(`null`), ""},
		{"empty", nil, ""},
		{"object falls back to raw", json.RawMessage(`{"a":1}`), `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(tt.input))
		})
	}
}

func TestStrictString(t *testing.T) {
	s, err := StrictString(json.RawMessage(`"  PS-001 "`))
	require.NoError(t, err)
	assert.Equal(t, "  PS-001 ", s)

	s, err = StrictString(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, "", s)

	_, err = StrictString(json.RawMessage(`17`))
	assert.ErrorIs(t, err, ErrNotString)

	_, err = StrictString(json.RawMessage(`["a"]`))
	assert.ErrorIs(t, err, ErrNotString)
}

func TestInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *int
		wantErr bool
	}{
		{"number", `80`, intPtr(80), false},
		{"numeric string", `" 75 "`, intPtr(75), false},
		{"whole float", `3.0`, intPtr(3), false},
		{"null", `null`, nil, false},
		{"blank string", `""`, nil, false},
		{"fraction", `2.5`, nil, true},
		{"word", `"high"`, nil, true},
		{"bool", `true`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Int(json.RawMessage(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeObjects(t *testing.T) {
	objs, err := DecodeObjects([]byte(`[{"name":"Manufacturing"}, "oops", {"name":"Logistics"}]`))
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, `"Manufacturing"`, string(objs[0]["name"]))
	assert.Nil(t, objs[1], "non-object entries keep their slot")
	assert.Equal(t, `"Logistics"`, string(objs[2]["name"]))

	_, err = DecodeObjects([]byte(`{"name":"x"}`))
	assert.Error(t, err)

	_, err = DecodeObjects([]byte(` null `))
	assert.ErrorContains(t, err, "expected a JSON array")

	objs, err = DecodeObjects([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func intPtr(n int) *int { return &n }
