package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// UseCaseService provides CRUD for use cases and their tags.
type UseCaseService interface {
	// Create inserts the use case and assigns the tags given per category.
	Create(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error
	// Get returns the use case with its tags and relevance links in both directions.
	Get(ctx context.Context, id int64) (*models.UseCaseDetail, error)
	List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error)
	// Update replaces the editable fields. Tag categories absent from tags are left unchanged.
	Update(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error
	UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.UseCase, error)
	Delete(ctx context.Context, id int64) error
}

type useCaseService struct {
	ucRepo   repositories.UseCaseRepository
	linkRepo repositories.RelevanceRepository
	tags     TagNormalizer
	tx       database.TxRunner
	logger   *zap.Logger
}

// NewUseCaseService creates a UseCaseService.
func NewUseCaseService(
	ucRepo repositories.UseCaseRepository,
	linkRepo repositories.RelevanceRepository,
	tags TagNormalizer,
	tx database.TxRunner,
	logger *zap.Logger,
) UseCaseService {
	return &useCaseService{
		ucRepo:   ucRepo,
		linkRepo: linkRepo,
		tags:     tags,
		tx:       tx,
		logger:   logger.Named("use_cases"),
	}
}

var _ UseCaseService = (*useCaseService)(nil)

func (s *useCaseService) Create(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error {
	if err := normalizeUseCase(uc); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ucRepo.Create(ctx, uc); err != nil {
			return err
		}
		return s.assignTags(ctx, uc.ID, tags, NewTagCache())
	})
	if err != nil {
		return err
	}

	s.logger.Info("Created use case", zap.Int64("use_case_id", uc.ID), zap.String("bi_id", uc.BIID))
	return nil
}

func (s *useCaseService) Get(ctx context.Context, id int64) (*models.UseCaseDetail, error) {
	uc, err := s.ucRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.UseCaseDetail{UseCase: uc}
	queries := []struct {
		dst    *[]*models.RelevanceLink
		filter models.LinkFilter
	}{
		{&detail.AreaLinks, models.LinkFilter{Kind: models.LinkUseCaseArea, SourceID: &id}},
		{&detail.StepLinks, models.LinkFilter{Kind: models.LinkUseCaseStep, SourceID: &id}},
		{&detail.OutgoingLinks, models.LinkFilter{Kind: models.LinkUseCaseUseCase, SourceID: &id}},
		{&detail.IncomingLinks, models.LinkFilter{Kind: models.LinkUseCaseUseCase, TargetID: &id}},
	}
	for _, q := range queries {
		links, err := s.linkRepo.Query(ctx, q.filter)
		if err != nil {
			return nil, err
		}
		*q.dst = links
	}
	return detail, nil
}

func (s *useCaseService) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	return s.ucRepo.List(ctx, filter)
}

func (s *useCaseService) Update(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error {
	if err := normalizeUseCase(uc); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ucRepo.Update(ctx, uc); err != nil {
			return err
		}
		return s.assignTags(ctx, uc.ID, tags, NewTagCache())
	})
}

func (s *useCaseService) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.UseCase, error) {
	fv, err := UseCaseFields.Parse(field, raw)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if fv.Field.Type == FieldTags {
			// Confirms the use case exists before creating any tag.
			if _, err := s.ucRepo.GetByID(ctx, id); err != nil {
				return err
			}
			return s.assignTags(ctx, id, map[models.TagCategory]string{fv.Field.TagCategory: fv.Tags}, NewTagCache())
		}
		return s.ucRepo.UpdateColumns(ctx, id, map[string]any{fv.Field.Column: fv.Value})
	})
	if err != nil {
		return nil, err
	}
	return s.ucRepo.GetByID(ctx, id)
}

func (s *useCaseService) Delete(ctx context.Context, id int64) error {
	if err := s.ucRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted use case", zap.Int64("use_case_id", id))
	return nil
}

// assignTags replaces the use case's tags for every category present in tags.
func (s *useCaseService) assignTags(ctx context.Context, useCaseID int64, tags map[models.TagCategory]string, cache *TagCache) error {
	for _, category := range models.TagCategories {
		tagString, ok := tags[category]
		if !ok {
			continue
		}
		resolved, err := s.tags.GetOrCreate(ctx, tagString, category, cache)
		if err != nil {
			return err
		}
		if err := s.ucRepo.ReplaceTags(ctx, useCaseID, category, tagIDs(resolved)); err != nil {
			return err
		}
	}
	return nil
}

func tagIDs(tags []*models.Tag) []int64 {
	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

func normalizeUseCase(uc *models.UseCase) error {
	biID, name := normalizeText(&uc.BIID), normalizeText(&uc.Name)
	switch {
	case biID == nil:
		return apperrors.Validation("use case bi_id is required")
	case name == nil:
		return apperrors.Validation("use case name is required")
	case uc.ProcessStepID <= 0:
		return apperrors.Validation("use case process_step_id is required")
	}
	if err := validatePriority(uc.Priority); err != nil {
		return err
	}
	uc.BIID, uc.Name = *biID, *name
	for _, c := range models.UseCaseTextColumns {
		f := uc.TextField(c)
		*f = normalizeText(*f)
	}
	return nil
}
