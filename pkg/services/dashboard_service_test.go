package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

type mockDashboardRepository struct {
	summary *models.DashboardSummary
	err     error
}

func (m *mockDashboardRepository) Summary(context.Context) (*models.DashboardSummary, error) {
	return m.summary, m.err
}

func TestDashboardService_FillsMissingBuckets(t *testing.T) {
	repo := &mockDashboardRepository{summary: &models.DashboardSummary{
		AreaCount:      1,
		LinkCounts:     map[models.LinkKind]int{models.LinkStepStep: 4},
		PriorityCounts: map[string]int{"2": 3},
	}}
	svc := NewDashboardService(repo, zap.NewNop())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[models.LinkKind]int{
		models.LinkUseCaseArea:    0,
		models.LinkUseCaseStep:    0,
		models.LinkUseCaseUseCase: 0,
		models.LinkStepStep:       4,
	}, summary.LinkCounts)
	assert.Equal(t, map[string]int{"1": 0, "2": 3, "3": 0, "4": 0, models.PriorityUnset: 0}, summary.PriorityCounts)
	assert.NotNil(t, summary.Areas)
	assert.Empty(t, summary.Areas)
}

func TestDashboardService_PropagatesErrors(t *testing.T) {
	svc := NewDashboardService(&mockDashboardRepository{err: errors.New("connection refused")}, zap.NewNop())
	_, err := svc.Summary(context.Background())
	assert.Error(t, err)
}

func TestPriorityBuckets(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "unset"}, PriorityBuckets())
}
