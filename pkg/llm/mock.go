package llm

import (
	"context"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// MockClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns "mock response" and nil error.
	GenerateFunc func(ctx context.Context, req Request) (string, error)

	// ProviderName is returned by Provider. Defaults to "mock".
	ProviderName string
	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Requests records every request for verification.
	Requests []Request
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ProviderName: "mock", ModelName: "mock-model"}
}

// Generate implements Client.
func (m *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "mock response", nil
}

// Provider implements Client.
func (m *MockClient) Provider() string { return m.ProviderName }

// Model implements Client.
func (m *MockClient) Model() string { return m.ModelName }

// MockFactory returns Client for every request and records the resolved arguments.
type MockFactory struct {
	Client Client
	Err    error

	Provider string
	Model    string
}

// New implements ClientFactory.
func (f *MockFactory) New(_ context.Context, _ *models.LLMSettings, provider, model string) (Client, error) {
	f.Provider, f.Model = provider, model
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}
