package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

type mockLLMSettingsRepository struct {
	settings  map[int64]models.LLMSettings
	upsertErr error
	upserts   int
}

func newMockLLMSettingsRepository() *mockLLMSettingsRepository {
	return &mockLLMSettingsRepository{settings: make(map[int64]models.LLMSettings)}
}

func (m *mockLLMSettingsRepository) Get(_ context.Context, userID int64) (*models.LLMSettings, error) {
	s, ok := m.settings[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockLLMSettingsRepository) Upsert(_ context.Context, settings *models.LLMSettings) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.settings[settings.UserID] = *settings
	return nil
}

func TestLLMSettingsService_DefaultsWhenUnset(t *testing.T) {
	svc := NewLLMSettingsService(newMockLLMSettingsRepository(), zap.NewNop())

	view, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.LLMSettingsView{}, view)

	settings, err := svc.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), settings.UserID)
}

func TestLLMSettingsService_UpdateKeepsAndClears(t *testing.T) {
	repo := newMockLLMSettingsRepository()
	svc := NewLLMSettingsService(repo, zap.NewNop())
	ctx := context.Background()

	view, err := svc.Update(ctx, 7, &LLMSettingsUpdate{
		DefaultProvider: ptr("anthropic"),
		DefaultModel:    ptr(" claude-sonnet "),
		AnthropicAPIKey: ptr("sk-ant-1"),
		OpenAIAPIKey:    ptr("sk-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", view.DefaultProvider)
	assert.Equal(t, "claude-sonnet", view.DefaultModel)
	assert.True(t, view.HasAnthropicKey)
	assert.True(t, view.HasOpenAIKey)

	// Nil fields are untouched; an empty string clears a secret.
	view, err = svc.Update(ctx, 7, &LLMSettingsUpdate{OpenAIAPIKey: ptr("")})
	require.NoError(t, err)
	assert.False(t, view.HasOpenAIKey)
	assert.True(t, view.HasAnthropicKey)
	assert.Equal(t, "anthropic", view.DefaultProvider)

	stored := repo.settings[7]
	assert.Equal(t, "sk-ant-1", stored.AnthropicAPIKey)
	assert.Equal(t, 2, repo.upserts)
}

func TestLLMSettingsService_RejectsUnknownProvider(t *testing.T) {
	repo := newMockLLMSettingsRepository()
	svc := NewLLMSettingsService(repo, zap.NewNop())

	_, err := svc.Update(context.Background(), 7, &LLMSettingsUpdate{DefaultProvider: ptr("cohere")})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Zero(t, repo.upserts)
}
