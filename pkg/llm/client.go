// Package llm calls hosted and local language models for catalog analysis.
package llm

import (
	"context"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// Provider names accepted in settings and requests.
const (
	ProviderOpenAI    = models.ProviderOpenAI
	ProviderOllama    = models.ProviderOllama
	ProviderAnthropic = models.ProviderAnthropic
	ProviderGoogle    = models.ProviderGoogle
	ProviderApollo    = models.ProviderApollo
)

// DefaultMaxTokens caps a response when neither the request nor the server config does.
const DefaultMaxTokens = 2048

// Request is one single-turn prompt.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client generates text from one provider and model.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() string
	Model() string
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}
