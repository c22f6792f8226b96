package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// RelevanceService manages scored links between catalog entities.
type RelevanceService interface {
	// AddLink validates and inserts a link. Score outside [0,100] is ErrValidation,
	// a self-link on a self-typed kind is ErrSelfReference, a missing endpoint is
	// ErrNotFound and an existing pair is ErrDuplicate.
	AddLink(ctx context.Context, kind models.LinkKind, sourceID, targetID int64, score int, content *string) (*models.RelevanceLink, error)

	// UpdateLink applies the changes after validating them against the proposed endpoints.
	UpdateLink(ctx context.Context, kind models.LinkKind, id int64, update models.LinkUpdate) (*models.RelevanceLink, error)

	DeleteLink(ctx context.Context, kind models.LinkKind, id int64) error

	// DeleteAll removes every link of one kind and returns how many were removed.
	DeleteAll(ctx context.Context, kind models.LinkKind) (int64, error)

	QueryLinks(ctx context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error)
}

type relevanceService struct {
	linkRepo repositories.RelevanceRepository
	tx       database.TxRunner
	logger   *zap.Logger
}

// NewRelevanceService creates a RelevanceService.
func NewRelevanceService(linkRepo repositories.RelevanceRepository, tx database.TxRunner, logger *zap.Logger) RelevanceService {
	return &relevanceService{
		linkRepo: linkRepo,
		tx:       tx,
		logger:   logger.Named("relevance"),
	}
}

var _ RelevanceService = (*relevanceService)(nil)

func (s *relevanceService) AddLink(ctx context.Context, kind models.LinkKind, sourceID, targetID int64, score int, content *string) (*models.RelevanceLink, error) {
	info, err := linkInfo(kind)
	if err != nil {
		return nil, err
	}
	if err := validateScore(score); err != nil {
		return nil, err
	}

	link := &models.RelevanceLink{
		Kind:     kind,
		SourceID: sourceID,
		TargetID: targetID,
		Score:    score,
		Content:  normalizeText(content),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkEndpoints(ctx, info, sourceID, targetID, 0); err != nil {
			return err
		}
		return s.linkRepo.Create(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Added relevance link",
		zap.String("kind", string(kind)),
		zap.Int64("source_id", sourceID),
		zap.Int64("target_id", targetID),
		zap.Int("score", score))
	return link, nil
}

func (s *relevanceService) UpdateLink(ctx context.Context, kind models.LinkKind, id int64, update models.LinkUpdate) (*models.RelevanceLink, error) {
	info, err := linkInfo(kind)
	if err != nil {
		return nil, err
	}
	if update.Score != nil {
		if err := validateScore(*update.Score); err != nil {
			return nil, err
		}
	}

	var link *models.RelevanceLink
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.linkRepo.GetByID(ctx, kind, id)
		if err != nil {
			return err
		}

		proposed := *existing
		if update.SourceID != nil {
			proposed.SourceID = *update.SourceID
		}
		if update.TargetID != nil {
			proposed.TargetID = *update.TargetID
		}
		if update.Score != nil {
			proposed.Score = *update.Score
		}
		if update.Content != nil {
			proposed.Content = normalizeText(update.Content)
		}

		if proposed.SourceID != existing.SourceID || proposed.TargetID != existing.TargetID {
			if err := s.checkEndpoints(ctx, info, proposed.SourceID, proposed.TargetID, id); err != nil {
				return err
			}
		}

		if err := s.linkRepo.Update(ctx, &proposed); err != nil {
			return err
		}
		link = &proposed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *relevanceService) DeleteLink(ctx context.Context, kind models.LinkKind, id int64) error {
	if _, err := linkInfo(kind); err != nil {
		return err
	}
	return s.linkRepo.Delete(ctx, kind, id)
}

func (s *relevanceService) DeleteAll(ctx context.Context, kind models.LinkKind) (int64, error) {
	if _, err := linkInfo(kind); err != nil {
		return 0, err
	}

	var n int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.linkRepo.DeleteAll(ctx, kind)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Deleted all relevance links", zap.String("kind", string(kind)), zap.Int64("count", n))
	return n, nil
}

func (s *relevanceService) QueryLinks(ctx context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error) {
	if _, err := linkInfo(filter.Kind); err != nil {
		return nil, err
	}
	if filter.MinScore != nil && filter.MaxScore != nil && *filter.MinScore > *filter.MaxScore {
		return nil, apperrors.Validation("min_score %d is above max_score %d", *filter.MinScore, *filter.MaxScore)
	}
	return s.linkRepo.Query(ctx, filter)
}

// checkEndpoints enforces the self-link, existence and pair-uniqueness rules.
// selfID is the link being updated, ignored when looking for a conflicting pair.
func (s *relevanceService) checkEndpoints(ctx context.Context, info models.LinkKindInfo, sourceID, targetID, selfID int64) error {
	if info.SelfTyped() && sourceID == targetID {
		return apperrors.SelfReference("%s link cannot connect %s %d to itself", info.Kind, info.SourceType, sourceID)
	}

	ends := []struct {
		entity models.EntityType
		id     int64
	}{{info.SourceType, sourceID}, {info.TargetType, targetID}}
	for _, end := range ends {
		ok, err := s.linkRepo.EntityExists(ctx, end.entity, end.id)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NotFound("%s %d", end.entity, end.id)
		}
	}

	existing, err := s.linkRepo.GetByPair(ctx, info.Kind, sourceID, targetID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return apperrors.Duplicate("%s link %d -> %d already exists", info.Kind, sourceID, targetID)
	}
	return nil
}

func linkInfo(kind models.LinkKind) (models.LinkKindInfo, error) {
	info, ok := kind.Info()
	if !ok {
		return info, apperrors.Validation("unknown link kind %q", kind)
	}
	return info, nil
}
