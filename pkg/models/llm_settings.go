package models

import (
	"time"
)

// LLM provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderApollo    = "apollo"
)

// ValidProviders contains all supported LLM providers.
var ValidProviders = []string{ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGoogle, ProviderApollo}

// IsValidProvider checks if the given provider is supported.
func IsValidProvider(provider string) bool {
	for _, p := range ValidProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// LLMSettings holds one user's provider credentials and defaults.
// Secret fields are plaintext in memory and encrypted at rest.
type LLMSettings struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	DefaultProvider    string    `json:"default_provider,omitempty"`
	DefaultModel       string    `json:"default_model,omitempty"`
	OpenAIAPIKey       string    `json:"-"`
	AnthropicAPIKey    string    `json:"-"`
	GoogleAPIKey       string    `json:"-"`
	OllamaBaseURL      string    `json:"ollama_base_url,omitempty"`
	ApolloClientID     string    `json:"apollo_client_id,omitempty"`
	ApolloClientSecret string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LLMSettingsView is the API representation; secrets are reported only as present/absent.
type LLMSettingsView struct {
	DefaultProvider       string `json:"default_provider,omitempty"`
	DefaultModel          string `json:"default_model,omitempty"`
	OllamaBaseURL         string `json:"ollama_base_url,omitempty"`
	ApolloClientID        string `json:"apollo_client_id,omitempty"`
	HasOpenAIKey          bool   `json:"has_openai_key"`
	HasAnthropicKey       bool   `json:"has_anthropic_key"`
	HasGoogleKey          bool   `json:"has_google_key"`
	HasApolloClientSecret bool   `json:"has_apollo_client_secret"`
}

// View returns the secret-free representation of the settings.
func (s *LLMSettings) View() LLMSettingsView {
	return LLMSettingsView{
		DefaultProvider:       s.DefaultProvider,
		DefaultModel:          s.DefaultModel,
		OllamaBaseURL:         s.OllamaBaseURL,
		ApolloClientID:        s.ApolloClientID,
		HasOpenAIKey:          s.OpenAIAPIKey != "",
		HasAnthropicKey:       s.AnthropicAPIKey != "",
		HasGoogleKey:          s.GoogleAPIKey != "",
		HasApolloClientSecret: s.ApolloClientSecret != "",
	}
}
