// Package jsonutil reads loosely typed values out of uploaded JSON rows.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotString is returned when a field that must be a JSON string holds another type.
var ErrNotString = errors.New("must be a string")

// ErrNotNumber is returned when a numeric field is neither a JSON number nor a numeric string.
var ErrNotNumber = errors.New("must be a number")

// Object is one decoded JSON object with its values left raw.
type Object = map[string]json.RawMessage

// FlexibleStringValue converts a json.RawMessage to a string, handling numbers and
// booleans as well as strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// IsNull reports whether raw is absent or JSON null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// StrictString decodes a JSON string. Null yields "" with no error; any other type fails.
func StrictString(raw json.RawMessage) (string, error) {
	if IsNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", ErrNotString
	}
	return s, nil
}

// Int decodes an integer from a JSON number or a numeric string.
// Null and blank strings yield nil. Fractional values fail.
func Int(raw json.RawMessage) (*int, error) {
	if IsNull(raw) {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	} else {
		text = string(bytes.TrimSpace(raw))
	}

	if n, err := strconv.Atoi(text); err == nil {
		return &n, nil
	}
	// Spreadsheet exports write integers as 3.0.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int(f)) {
		return nil, ErrNotNumber
	}
	n := int(f)
	return &n, nil
}

// DecodeObjects parses a top-level JSON array of objects.
func DecodeObjects(data []byte) ([]Object, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	if items == nil {
		return nil, errors.New("expected a JSON array, got null")
	}

	objects := make([]Object, 0, len(items))
	for _, item := range items {
		var obj Object
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			// Keep the position so row indexes stay aligned with the file.
			objects = append(objects, nil)
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
