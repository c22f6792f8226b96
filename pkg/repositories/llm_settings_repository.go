package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/crypto"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// LLMSettingsRepository stores per-user LLM provider settings.
// Secrets are sealed before storage and opened after retrieval.
type LLMSettingsRepository interface {
	// Get returns nil, nil if the user has no settings yet.
	Get(ctx context.Context, userID int64) (*models.LLMSettings, error)
	Upsert(ctx context.Context, settings *models.LLMSettings) error
}

type llmSettingsRepository struct {
	box *crypto.SecretBox
}

// NewLLMSettingsRepository creates a new LLMSettingsRepository.
func NewLLMSettingsRepository(box *crypto.SecretBox) LLMSettingsRepository {
	return &llmSettingsRepository{box: box}
}

var _ LLMSettingsRepository = (*llmSettingsRepository)(nil)

func (r *llmSettingsRepository) Get(ctx context.Context, userID int64) (*models.LLMSettings, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	var (
		s                                      models.LLMSettings
		provider, model, ollamaURL, apolloID   *string
		openaiKey, anthropicKey, googleKey, as *string
	)
	err = q.QueryRow(ctx, `
		SELECT id, user_id, default_provider, default_model, openai_api_key, anthropic_api_key,
		       google_api_key, ollama_base_url, apollo_client_id, apollo_client_secret,
		       created_at, updated_at
		FROM llm_settings WHERE user_id = $1`, userID,
	).Scan(&s.ID, &s.UserID, &provider, &model, &openaiKey, &anthropicKey,
		&googleKey, &ollamaURL, &apolloID, &as, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query llm settings: %w", err)
	}

	s.DefaultProvider = derefString(provider)
	s.DefaultModel = derefString(model)
	s.OllamaBaseURL = derefString(ollamaURL)
	s.ApolloClientID = derefString(apolloID)

	secrets := []struct {
		sealed *string
		dst    *string
		name   string
	}{
		{openaiKey, &s.OpenAIAPIKey, "openai key"},
		{anthropicKey, &s.AnthropicAPIKey, "anthropic key"},
		{googleKey, &s.GoogleAPIKey, "google key"},
		{as, &s.ApolloClientSecret, "apollo client secret"},
	}
	for _, sec := range secrets {
		plain, err := r.box.Open(derefString(sec.sealed))
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", sec.name, err)
		}
		*sec.dst = plain
	}

	return &s, nil
}

func (r *llmSettingsRepository) Upsert(ctx context.Context, s *models.LLMSettings) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	sealed := make([]*string, 0, 4)
	for _, plain := range []string{s.OpenAIAPIKey, s.AnthropicAPIKey, s.GoogleAPIKey, s.ApolloClientSecret} {
		v, err := r.box.Seal(plain)
		if err != nil {
			return fmt.Errorf("encrypt llm secret: %w", err)
		}
		sealed = append(sealed, nullString(v))
	}

	now := time.Now()
	err = q.QueryRow(ctx, `
		INSERT INTO llm_settings (user_id, default_provider, default_model, openai_api_key, anthropic_api_key,
		                          google_api_key, ollama_base_url, apollo_client_id, apollo_client_secret,
		                          created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id) DO UPDATE SET
		    default_provider = EXCLUDED.default_provider,
		    default_model = EXCLUDED.default_model,
		    openai_api_key = EXCLUDED.openai_api_key,
		    anthropic_api_key = EXCLUDED.anthropic_api_key,
		    google_api_key = EXCLUDED.google_api_key,
		    ollama_base_url = EXCLUDED.ollama_base_url,
		    apollo_client_id = EXCLUDED.apollo_client_id,
		    apollo_client_secret = EXCLUDED.apollo_client_secret,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`,
		s.UserID, nullString(s.DefaultProvider), nullString(s.DefaultModel),
		sealed[0], sealed[1], sealed[2],
		nullString(s.OllamaBaseURL), nullString(s.ApolloClientID), sealed[3], now,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return apperrors.FromPg(err, fmt.Sprintf("save llm settings for user %d", s.UserID))
	}
	return nil
}
