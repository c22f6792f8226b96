package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// ProcessStepService provides CRUD for process steps.
type ProcessStepService interface {
	Create(ctx context.Context, step *models.ProcessStep) error
	Get(ctx context.Context, id int64) (*models.ProcessStep, error)
	// List returns all steps, or those of one area when areaID is set.
	List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error)
	Update(ctx context.Context, step *models.ProcessStep) error
	UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.ProcessStep, error)
	Delete(ctx context.Context, id int64) error
}

type processStepService struct {
	stepRepo repositories.ProcessStepRepository
	logger   *zap.Logger
}

// NewProcessStepService creates a ProcessStepService.
func NewProcessStepService(stepRepo repositories.ProcessStepRepository, logger *zap.Logger) ProcessStepService {
	return &processStepService{
		stepRepo: stepRepo,
		logger:   logger.Named("process_steps"),
	}
}

var _ ProcessStepService = (*processStepService)(nil)

func (s *processStepService) Create(ctx context.Context, step *models.ProcessStep) error {
	if err := normalizeProcessStep(step); err != nil {
		return err
	}
	if err := s.stepRepo.Create(ctx, step); err != nil {
		return err
	}
	s.logger.Info("Created process step", zap.Int64("step_id", step.ID), zap.String("bi_id", step.BIID))
	return nil
}

func (s *processStepService) Get(ctx context.Context, id int64) (*models.ProcessStep, error) {
	return s.stepRepo.GetByID(ctx, id)
}

func (s *processStepService) List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error) {
	return s.stepRepo.List(ctx, areaID)
}

func (s *processStepService) Update(ctx context.Context, step *models.ProcessStep) error {
	if err := normalizeProcessStep(step); err != nil {
		return err
	}
	return s.stepRepo.Update(ctx, step)
}

func (s *processStepService) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.ProcessStep, error) {
	fv, err := ProcessStepFields.Parse(field, raw)
	if err != nil {
		return nil, err
	}
	if err := s.stepRepo.UpdateColumns(ctx, id, map[string]any{fv.Field.Column: fv.Value}); err != nil {
		return nil, err
	}
	return s.stepRepo.GetByID(ctx, id)
}

func (s *processStepService) Delete(ctx context.Context, id int64) error {
	if err := s.stepRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted process step", zap.Int64("step_id", id))
	return nil
}

func normalizeProcessStep(step *models.ProcessStep) error {
	biID, name := normalizeText(&step.BIID), normalizeText(&step.Name)
	switch {
	case biID == nil:
		return apperrors.Validation("process step bi_id is required")
	case name == nil:
		return apperrors.Validation("process step name is required")
	case step.AreaID <= 0:
		return apperrors.Validation("process step area_id is required")
	}
	step.BIID, step.Name = *biID, *name
	for _, c := range models.ProcessStepTextColumns {
		f := step.TextField(c)
		*f = normalizeText(*f)
	}
	return nil
}
