package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// AreaService provides CRUD for business areas.
type AreaService interface {
	Create(ctx context.Context, area *models.Area) error
	Get(ctx context.Context, id int64) (*models.Area, error)
	List(ctx context.Context) ([]*models.Area, error)
	// Update replaces every editable field.
	Update(ctx context.Context, area *models.Area) error
	// UpdateField sets one field from the AreaFields registry.
	UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.Area, error)
	// Delete removes the area and, by cascade, its steps, use cases and links.
	Delete(ctx context.Context, id int64) error
}

type areaService struct {
	areaRepo repositories.AreaRepository
	logger   *zap.Logger
}

// NewAreaService creates an AreaService.
func NewAreaService(areaRepo repositories.AreaRepository, logger *zap.Logger) AreaService {
	return &areaService{
		areaRepo: areaRepo,
		logger:   logger.Named("areas"),
	}
}

var _ AreaService = (*areaService)(nil)

func (s *areaService) Create(ctx context.Context, area *models.Area) error {
	if err := normalizeArea(area); err != nil {
		return err
	}
	if err := s.areaRepo.Create(ctx, area); err != nil {
		return err
	}
	s.logger.Info("Created area", zap.Int64("area_id", area.ID), zap.String("name", area.Name))
	return nil
}

func (s *areaService) Get(ctx context.Context, id int64) (*models.Area, error) {
	return s.areaRepo.GetByID(ctx, id)
}

func (s *areaService) List(ctx context.Context) ([]*models.Area, error) {
	return s.areaRepo.List(ctx)
}

func (s *areaService) Update(ctx context.Context, area *models.Area) error {
	if err := normalizeArea(area); err != nil {
		return err
	}
	return s.areaRepo.Update(ctx, area)
}

func (s *areaService) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.Area, error) {
	fv, err := AreaFields.Parse(field, raw)
	if err != nil {
		return nil, err
	}
	if err := s.areaRepo.UpdateColumns(ctx, id, map[string]any{fv.Field.Column: fv.Value}); err != nil {
		return nil, err
	}
	return s.areaRepo.GetByID(ctx, id)
}

func (s *areaService) Delete(ctx context.Context, id int64) error {
	if err := s.areaRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted area", zap.Int64("area_id", id))
	return nil
}

func normalizeArea(area *models.Area) error {
	name := normalizeText(&area.Name)
	if name == nil {
		return apperrors.Validation("area name is required")
	}
	area.Name = *name
	area.Description = normalizeText(area.Description)
	return nil
}
