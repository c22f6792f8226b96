package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when the chosen provider lacks credentials or an endpoint.
var ErrNotConfigured = errors.New("llm provider not configured")

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeEmpty     ErrorType = "empty_response"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Provider   string
	Model      string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ClassifyError categorizes a provider error. Errors that are already classified pass through.
func ClassifyError(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	out := &Error{Type: ErrorTypeUnknown, Message: "llm error", Provider: provider, Model: model, Cause: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		out.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		out.StatusCode = reqErr.HTTPStatusCode
	}

	lower := strings.ToLower(err.Error())
	switch {
	case out.StatusCode == 401 || out.StatusCode == 403 ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "invalid x-api-key"):
		out.Type, out.Message = ErrorTypeAuth, "authentication failed"
	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		out.Type, out.Message = ErrorTypeModel, "model not found"
	case out.StatusCode == 429 || strings.Contains(lower, "rate limit"):
		out.Type, out.Message = ErrorTypeRateLimit, "rate limited"
	case out.StatusCode == 404:
		out.Type, out.Message = ErrorTypeEndpoint, "endpoint not found"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		out.Type, out.Message = ErrorTypeEndpoint, "connection failed"
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "timeout"):
		out.Type, out.Message = ErrorTypeEndpoint, "request timeout"
	case out.StatusCode >= 500:
		out.Type, out.Message = ErrorTypeEndpoint, "server error"
	}
	return out
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

func emptyResponse(provider, model string) error {
	return &Error{Type: ErrorTypeEmpty, Message: "no content in response", Provider: provider, Model: model}
}
