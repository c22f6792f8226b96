package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/llm"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/prompts"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// AnalysisRequest selects the model and the comment slot an analysis is written to.
type AnalysisRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Slot     int    `json:"slot"`
}

// AnalysisService asks a language model to assess catalog entries.
type AnalysisService interface {
	// AnalyzeProcessStep sends the step and its use cases to the user's model and
	// stores the answer in llm_comment_<slot>.
	AnalyzeProcessStep(ctx context.Context, userID, stepID int64, req AnalysisRequest) (*models.ProcessStep, error)
}

type analysisService struct {
	stepRepo repositories.ProcessStepRepository
	ucRepo   repositories.UseCaseRepository
	settings LLMSettingsService
	clients  llm.ClientFactory
	logger   *zap.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	stepRepo repositories.ProcessStepRepository,
	ucRepo repositories.UseCaseRepository,
	settings LLMSettingsService,
	clients llm.ClientFactory,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		stepRepo: stepRepo,
		ucRepo:   ucRepo,
		settings: settings,
		clients:  clients,
		logger:   logger.Named("analysis"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) AnalyzeProcessStep(ctx context.Context, userID, stepID int64, req AnalysisRequest) (*models.ProcessStep, error) {
	column, ok := models.LLMCommentColumn(req.Slot)
	if !ok {
		return nil, apperrors.Validation("slot must be between 1 and %d", models.LLMCommentSlots)
	}

	step, err := s.stepRepo.GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	useCases, err := s.ucRepo.List(ctx, repositories.UseCaseFilter{ProcessStepID: &stepID})
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.New(ctx, settings, req.Provider, req.Model)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	prompt := llm.Request{
		System: prompts.BuildProcessStepAnalysisSystemMessage(),
		Prompt: prompts.BuildProcessStepAnalysisPrompt(step, useCases),
	}
	answer, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze process step %s: %w", step.BIID, err)
	}

	answer = strings.TrimSpace(answer)
	if err := s.stepRepo.UpdateColumns(ctx, stepID, map[string]any{column: &answer}); err != nil {
		return nil, err
	}

	s.logger.Info("Stored process step analysis",
		zap.Int64("process_step_id", stepID),
		zap.String("column", column),
		zap.String("provider", client.Provider()),
		zap.String("model", client.Model()))
	return s.stepRepo.GetByID(ctx, stepID)
}
