package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// ProcessStepRepository provides data access for process steps.
type ProcessStepRepository interface {
	Create(ctx context.Context, step *models.ProcessStep) error
	Update(ctx context.Context, step *models.ProcessStep) error
	UpdateColumns(ctx context.Context, id int64, columns map[string]any) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.ProcessStep, error)
	// GetByBIIDs returns the steps whose bi_id is in biIDs, keyed by bi_id.
	GetByBIIDs(ctx context.Context, biIDs []string) (map[string]*models.ProcessStep, error)
	// List returns steps ordered by bi_id. A nil areaID lists all steps.
	List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error)
	ListByAreas(ctx context.Context, areaIDs []int64) ([]*models.ProcessStep, error)
}

type processStepRepository struct{}

// NewProcessStepRepository creates a new ProcessStepRepository.
func NewProcessStepRepository() ProcessStepRepository {
	return &processStepRepository{}
}

var _ ProcessStepRepository = (*processStepRepository)(nil)

var processStepEditableColumns = columnSet([]string{"bi_id", "name", "area_id"}, models.ProcessStepTextColumns)

var processStepSelect = `
	SELECT ps.id, ps.bi_id, ps.name, ps.area_id, ps.` + strings.Join(models.ProcessStepTextColumns, ", ps.") + `,
	       ps.created_at, ps.updated_at, a.name,
	       (SELECT COUNT(*) FROM use_cases uc WHERE uc.process_step_id = ps.id)
	FROM process_steps ps
	JOIN areas a ON a.id = ps.area_id`

func (r *processStepRepository) Create(ctx context.Context, step *models.ProcessStep) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	cols := append([]string{"bi_id", "name", "area_id"}, models.ProcessStepTextColumns...)
	args := []any{step.BIID, step.Name, step.AreaID}
	for _, c := range models.ProcessStepTextColumns {
		args = append(args, *step.TextField(c))
	}
	now := time.Now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	query := fmt.Sprintf(`
		INSERT INTO process_steps (%s) VALUES (%s)
		RETURNING id, created_at, updated_at`, strings.Join(cols, ", "), placeholders(len(cols)))

	if err := q.QueryRow(ctx, query, args...).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt); err != nil {
		return apperrors.FromPg(err, "create process step "+step.BIID)
	}
	return nil
}

func (r *processStepRepository) Update(ctx context.Context, step *models.ProcessStep) error {
	columns := map[string]any{
		"bi_id":   step.BIID,
		"name":    step.Name,
		"area_id": step.AreaID,
	}
	for _, c := range models.ProcessStepTextColumns {
		columns[c] = *step.TextField(c)
	}
	return r.UpdateColumns(ctx, step.ID, columns)
}

func (r *processStepRepository) UpdateColumns(ctx context.Context, id int64, columns map[string]any) error {
	return updateColumns(ctx, "process_steps", id, columns, processStepEditableColumns)
}

func (r *processStepRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, "process_steps", id)
}

func (r *processStepRepository) GetByID(ctx context.Context, id int64) (*models.ProcessStep, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	step, err := scanProcessStep(q.QueryRow(ctx, processStepSelect+" WHERE ps.id = $1", id))
	if err != nil {
		return nil, apperrors.FromPg(err, fmt.Sprintf("process step %d", id))
	}
	return step, nil
}

func (r *processStepRepository) GetByBIIDs(ctx context.Context, biIDs []string) (map[string]*models.ProcessStep, error) {
	result := make(map[string]*models.ProcessStep, len(biIDs))
	if len(biIDs) == 0 {
		return result, nil
	}

	steps, err := r.query(ctx, processStepSelect+" WHERE ps.bi_id = ANY($1)", biIDs)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		result[s.BIID] = s
	}
	return result, nil
}

func (r *processStepRepository) List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error) {
	if areaID != nil {
		return r.query(ctx, processStepSelect+" WHERE ps.area_id = $1 ORDER BY ps.bi_id", *areaID)
	}
	return r.query(ctx, processStepSelect+" ORDER BY ps.bi_id")
}

func (r *processStepRepository) ListByAreas(ctx context.Context, areaIDs []int64) ([]*models.ProcessStep, error) {
	if len(areaIDs) == 0 {
		return []*models.ProcessStep{}, nil
	}
	return r.query(ctx, processStepSelect+" WHERE ps.area_id = ANY($1) ORDER BY a.name, ps.bi_id", areaIDs)
}

func (r *processStepRepository) query(ctx context.Context, query string, args ...any) ([]*models.ProcessStep, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query process steps: %w", err)
	}
	defer rows.Close()

	steps := []*models.ProcessStep{}
	for rows.Next() {
		step, err := scanProcessStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating process steps: %w", err)
	}
	return steps, nil
}

func scanProcessStep(row pgx.Row) (*models.ProcessStep, error) {
	var s models.ProcessStep
	dest := []any{&s.ID, &s.BIID, &s.Name, &s.AreaID}
	for _, c := range models.ProcessStepTextColumns {
		dest = append(dest, s.TextField(c))
	}
	dest = append(dest, &s.CreatedAt, &s.UpdatedAt, &s.AreaName, &s.UseCaseCount)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &s, nil
}
