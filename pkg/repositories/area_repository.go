package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// AreaRepository provides data access for business areas.
type AreaRepository interface {
	Create(ctx context.Context, area *models.Area) error
	Update(ctx context.Context, area *models.Area) error
	UpdateColumns(ctx context.Context, id int64, columns map[string]any) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Area, error)
	// GetByNames returns the areas whose name is in names, keyed by name.
	GetByNames(ctx context.Context, names []string) (map[string]*models.Area, error)
	List(ctx context.Context) ([]*models.Area, error)
}

type areaRepository struct{}

// NewAreaRepository creates a new AreaRepository.
func NewAreaRepository() AreaRepository {
	return &areaRepository{}
}

var _ AreaRepository = (*areaRepository)(nil)

var areaEditableColumns = columnSet([]string{"name", "description"})

func (r *areaRepository) Create(ctx context.Context, area *models.Area) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO areas (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = q.QueryRow(ctx, query, area.Name, area.Description, now, now).
		Scan(&area.ID, &area.CreatedAt, &area.UpdatedAt)
	if err != nil {
		return apperrors.FromPg(err, "create area "+area.Name)
	}
	return nil
}

func (r *areaRepository) Update(ctx context.Context, area *models.Area) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE areas SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at`

	err = q.QueryRow(ctx, query, area.ID, area.Name, area.Description, time.Now()).Scan(&area.UpdatedAt)
	if err != nil {
		return apperrors.FromPg(err, fmt.Sprintf("update area %d", area.ID))
	}
	return nil
}

func (r *areaRepository) UpdateColumns(ctx context.Context, id int64, columns map[string]any) error {
	return updateColumns(ctx, "areas", id, columns, areaEditableColumns)
}

func (r *areaRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, "areas", id)
}

const areaSelect = `
	SELECT a.id, a.name, a.description, a.created_at, a.updated_at,
	       (SELECT COUNT(*) FROM process_steps ps WHERE ps.area_id = a.id),
	       (SELECT COUNT(*) FROM use_cases uc
	          JOIN process_steps ps ON ps.id = uc.process_step_id
	         WHERE ps.area_id = a.id)
	FROM areas a`

func (r *areaRepository) GetByID(ctx context.Context, id int64) (*models.Area, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	area, err := scanArea(q.QueryRow(ctx, areaSelect+" WHERE a.id = $1", id))
	if err != nil {
		return nil, apperrors.FromPg(err, fmt.Sprintf("area %d", id))
	}
	return area, nil
}

func (r *areaRepository) GetByNames(ctx context.Context, names []string) (map[string]*models.Area, error) {
	result := make(map[string]*models.Area, len(names))
	if len(names) == 0 {
		return result, nil
	}

	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, areaSelect+" WHERE a.name = ANY($1)", names)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas by name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		result[area.Name] = area
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}
	return result, nil
}

func (r *areaRepository) List(ctx context.Context) ([]*models.Area, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, areaSelect+" ORDER BY a.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	areas := []*models.Area{}
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}
	return areas, nil
}

func scanArea(row pgx.Row) (*models.Area, error) {
	var a models.Area
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt, &a.StepCount, &a.UseCaseCount)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
