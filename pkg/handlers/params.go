package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseID extracts and validates the numeric {id} path value.
// Returns false after writing an error response.
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parsePathID(w, r, "id", "invalid_id", "Invalid ID format", logger)
}

func parsePathID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(pathParam), 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

// optionalInt64Query parses an optional positive integer query parameter.
// An absent or empty parameter yields nil.
func optionalInt64Query(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, errInvalidQuery(name)
	}
	return &v, nil
}

// optionalIntQuery parses an optional integer query parameter.
func optionalIntQuery(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errInvalidQuery(name)
	}
	return &v, nil
}

// idListQuery parses a comma-separated list of positive ids. Empty entries are ignored.
func idListQuery(r *http.Request, name string) ([]int64, error) {
	var ids []int64
	for part := range strings.SplitSeq(r.URL.Query().Get(name), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v <= 0 {
			return nil, errInvalidQuery(name)
		}
		ids = append(ids, v)
	}
	return ids, nil
}

// boolQuery reads a true/false query parameter, returning def when absent.
func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, errInvalidQuery(name)
	}
	return v, nil
}

type queryError struct{ name string }

func (e *queryError) Error() string { return "invalid query parameter: " + e.name }

func errInvalidQuery(name string) error { return &queryError{name: name} }

func writeQueryError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error()); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
