package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// DashboardService aggregates catalog counts for the landing page.
type DashboardService interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

type dashboardService struct {
	repo   repositories.DashboardRepository
	logger *zap.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(repo repositories.DashboardRepository, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger.Named("dashboard")}
}

var _ DashboardService = (*dashboardService)(nil)

// Summary fills in zero counts for link kinds and priority buckets with no rows.
func (s *dashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, err
	}

	if summary.LinkCounts == nil {
		summary.LinkCounts = make(map[models.LinkKind]int)
	}
	for _, kind := range models.LinkKinds {
		if _, ok := summary.LinkCounts[kind]; !ok {
			summary.LinkCounts[kind] = 0
		}
	}

	if summary.PriorityCounts == nil {
		summary.PriorityCounts = make(map[string]int)
	}
	for _, bucket := range PriorityBuckets() {
		if _, ok := summary.PriorityCounts[bucket]; !ok {
			summary.PriorityCounts[bucket] = 0
		}
	}

	if summary.Areas == nil {
		summary.Areas = []*models.AreaSummary{}
	}
	return summary, nil
}

// PriorityBuckets returns the dashboard's priority keys: "1".."4" then unset.
func PriorityBuckets() []string {
	buckets := make([]string, 0, models.MaxPriority-models.MinPriority+2)
	for p := models.MinPriority; p <= models.MaxPriority; p++ {
		buckets = append(buckets, formatPriority(p))
	}
	return append(buckets, models.PriorityUnset)
}

func formatPriority(p int) string {
	return *formatInt(&p)
}
