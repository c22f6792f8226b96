package repositories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// DashboardRepository runs the aggregate queries behind the dashboard.
type DashboardRepository interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

type dashboardRepository struct{}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository() DashboardRepository {
	return &dashboardRepository{}
}

var _ DashboardRepository = (*dashboardRepository)(nil)

func (r *dashboardRepository) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	s := &models.DashboardSummary{
		LinkCounts:     make(map[models.LinkKind]int, len(models.LinkKinds)),
		PriorityCounts: map[string]int{models.PriorityUnset: 0},
		Areas:          []*models.AreaSummary{},
	}
	for p := models.MinPriority; p <= models.MaxPriority; p++ {
		s.PriorityCounts[strconv.Itoa(p)] = 0
	}

	err = q.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM areas),
		       (SELECT COUNT(*) FROM process_steps),
		       (SELECT COUNT(*) FROM use_cases),
		       (SELECT COUNT(*) FROM tags)`,
	).Scan(&s.AreaCount, &s.ProcessStepCount, &s.UseCaseCount, &s.TagCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	for _, kind := range models.LinkKinds {
		info, _ := kind.Info()
		var n int
		if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+info.Table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s links: %w", kind, err)
		}
		s.LinkCounts[kind] = n
	}

	rows, err := q.Query(ctx, `SELECT priority, COUNT(*) FROM use_cases GROUP BY priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to count priorities: %w", err)
	}
	for rows.Next() {
		var (
			priority *int
			n        int
		)
		if err := rows.Scan(&priority, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan priority count: %w", err)
		}
		if priority == nil {
			s.PriorityCounts[models.PriorityUnset] = n
		} else {
			s.PriorityCounts[strconv.Itoa(*priority)] = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating priority counts: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT a.id, a.name,
		       COUNT(DISTINCT ps.id),
		       COUNT(uc.id)
		FROM areas a
		LEFT JOIN process_steps ps ON ps.area_id = a.id
		LEFT JOIN use_cases uc ON uc.process_step_id = ps.id
		GROUP BY a.id, a.name
		ORDER BY a.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise areas: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.AreaSummary
		if err := rows.Scan(&a.ID, &a.Name, &a.StepCount, &a.UseCaseCount); err != nil {
			return nil, fmt.Errorf("failed to scan area summary: %w", err)
		}
		s.Areas = append(s.Areas, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating area summaries: %w", err)
	}

	return s, nil
}
