package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// LLMSettingsUpdate changes a user's LLM settings. Nil fields are left unchanged;
// an empty secret clears it.
type LLMSettingsUpdate struct {
	DefaultProvider    *string `json:"default_provider"`
	DefaultModel       *string `json:"default_model"`
	OllamaBaseURL      *string `json:"ollama_base_url"`
	ApolloClientID     *string `json:"apollo_client_id"`
	OpenAIAPIKey       *string `json:"openai_api_key"`
	AnthropicAPIKey    *string `json:"anthropic_api_key"`
	GoogleAPIKey       *string `json:"google_api_key"`
	ApolloClientSecret *string `json:"apollo_client_secret"`
}

// LLMSettingsService reads and writes per-user LLM provider settings.
type LLMSettingsService interface {
	// Get returns the secret-free view of the user's settings.
	Get(ctx context.Context, userID int64) (models.LLMSettingsView, error)
	Update(ctx context.Context, userID int64, update *LLMSettingsUpdate) (models.LLMSettingsView, error)
	// Resolve returns the full settings including secrets, for building clients.
	Resolve(ctx context.Context, userID int64) (*models.LLMSettings, error)
}

type llmSettingsService struct {
	repo   repositories.LLMSettingsRepository
	logger *zap.Logger
}

// NewLLMSettingsService creates an LLMSettingsService.
func NewLLMSettingsService(repo repositories.LLMSettingsRepository, logger *zap.Logger) LLMSettingsService {
	return &llmSettingsService{repo: repo, logger: logger.Named("llm_settings")}
}

var _ LLMSettingsService = (*llmSettingsService)(nil)

func (s *llmSettingsService) Resolve(ctx context.Context, userID int64) (*models.LLMSettings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &models.LLMSettings{UserID: userID}
	}
	return settings, nil
}

func (s *llmSettingsService) Get(ctx context.Context, userID int64) (models.LLMSettingsView, error) {
	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return models.LLMSettingsView{}, err
	}
	return settings.View(), nil
}

func (s *llmSettingsService) Update(ctx context.Context, userID int64, update *LLMSettingsUpdate) (models.LLMSettingsView, error) {
	if update.DefaultProvider != nil {
		p := strings.TrimSpace(*update.DefaultProvider)
		if p != "" && !models.IsValidProvider(p) {
			return models.LLMSettingsView{}, apperrors.Validation("unknown provider %q", p)
		}
	}

	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return models.LLMSettingsView{}, err
	}

	fields := []struct {
		value *string
		dst   *string
	}{
		{update.DefaultProvider, &settings.DefaultProvider},
		{update.DefaultModel, &settings.DefaultModel},
		{update.OllamaBaseURL, &settings.OllamaBaseURL},
		{update.ApolloClientID, &settings.ApolloClientID},
		{update.OpenAIAPIKey, &settings.OpenAIAPIKey},
		{update.AnthropicAPIKey, &settings.AnthropicAPIKey},
		{update.GoogleAPIKey, &settings.GoogleAPIKey},
		{update.ApolloClientSecret, &settings.ApolloClientSecret},
	}
	for _, f := range fields {
		if f.value != nil {
			*f.dst = strings.TrimSpace(*f.value)
		}
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return models.LLMSettingsView{}, err
	}
	s.logger.Info("Updated LLM settings", zap.Int64("user_id", userID), zap.String("provider", settings.DefaultProvider))
	return settings.View(), nil
}
