package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// ClientFactory creates clients from a user's settings.
// Use this interface for dependency injection and testing.
type ClientFactory interface {
	// New resolves provider and model (request, then user settings, then server defaults)
	// and returns a ready client. Missing credentials yield ErrNotConfigured.
	New(ctx context.Context, settings *models.LLMSettings, provider, model string) (Client, error)
}

// Factory is the ClientFactory used by the server.
type Factory struct {
	cfg    config.LLMConfig
	logger *zap.Logger

	mu           sync.Mutex
	apolloTokens map[string]*TokenCache
}

// NewFactory creates a new factory.
func NewFactory(cfg config.LLMConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:          cfg,
		logger:       logger.Named("llm"),
		apolloTokens: make(map[string]*TokenCache),
	}
}

var _ ClientFactory = (*Factory)(nil)

func (f *Factory) New(ctx context.Context, settings *models.LLMSettings, provider, model string) (Client, error) {
	if settings == nil {
		settings = &models.LLMSettings{}
	}
	if provider == "" {
		provider = settings.DefaultProvider
	}
	if provider == "" {
		provider = f.cfg.DefaultProvider
	}
	if model == "" {
		model = settings.DefaultModel
	}
	if model == "" {
		model = f.cfg.DefaultModel
	}

	var (
		client Client
		err    error
	)
	switch provider {
	case ProviderOpenAI:
		if settings.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai API key is missing", ErrNotConfigured)
		}
		client, err = NewOpenAICompatibleClient(ProviderOpenAI, "", settings.OpenAIAPIKey, model, nil)
	case ProviderOllama:
		baseURL := settings.OllamaBaseURL
		if baseURL == "" {
			baseURL = f.cfg.OllamaBaseURL
		}
		// Ollama ignores the key but go-openai always sends one.
		client, err = NewOpenAICompatibleClient(ProviderOllama, baseURL, "ollama", model, nil)
	case ProviderAnthropic:
		client, err = NewAnthropicClient(settings.AnthropicAPIKey, model)
	case ProviderGoogle:
		client, err = NewGoogleClient(ctx, settings.GoogleAPIKey, model)
	case ProviderApollo:
		if settings.ApolloClientID == "" || settings.ApolloClientSecret == "" || f.cfg.ApolloTokenURL == "" {
			return nil, fmt.Errorf("%w: apollo client credentials are missing", ErrNotConfigured)
		}
		client, err = NewApolloClient(f.cfg.ApolloBaseURL, model, f.apolloTokenCache(settings), f.cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Created LLM client", zap.String("provider", provider), zap.String("model", model))
	return NewInstrumentedClient(client, f.logger), nil
}

// apolloTokenCache returns the cache for the settings' client id, replacing it when the secret changed.
func (f *Factory) apolloTokenCache(settings *models.LLMSettings) *TokenCache {
	key := settings.ApolloClientID + "\x00" + settings.ApolloClientSecret

	f.mu.Lock()
	defer f.mu.Unlock()

	if cache, ok := f.apolloTokens[key]; ok {
		return cache
	}
	cache := NewClientCredentialsCache(settings.ApolloClientID, settings.ApolloClientSecret, f.cfg.ApolloTokenURL)
	f.apolloTokens[key] = cache
	return cache
}
