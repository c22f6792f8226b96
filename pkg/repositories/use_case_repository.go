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

// UseCaseFilter narrows a use case listing. Zero values match everything.
type UseCaseFilter struct {
	ProcessStepID *int64
	AreaID        *int64
	// Search matches bi_id or name, case-insensitive.
	Search string
	TagID  *int64
}

// UseCaseRepository provides data access for use cases and their tag assignments.
type UseCaseRepository interface {
	Create(ctx context.Context, uc *models.UseCase) error
	Update(ctx context.Context, uc *models.UseCase) error
	UpdateColumns(ctx context.Context, id int64, columns map[string]any) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.UseCase, error)
	// GetByBIIDs returns the use cases whose bi_id is in biIDs, keyed by bi_id, with tags loaded.
	GetByBIIDs(ctx context.Context, biIDs []string) (map[string]*models.UseCase, error)
	List(ctx context.Context, filter UseCaseFilter) ([]*models.UseCase, error)
	// ReplaceTags replaces the use case's tags in one category with tagIDs.
	ReplaceTags(ctx context.Context, useCaseID int64, category models.TagCategory, tagIDs []int64) error
}

type useCaseRepository struct{}

// NewUseCaseRepository creates a new UseCaseRepository.
func NewUseCaseRepository() UseCaseRepository {
	return &useCaseRepository{}
}

var _ UseCaseRepository = (*useCaseRepository)(nil)

var useCaseEditableColumns = columnSet([]string{"bi_id", "name", "process_step_id", "priority"}, models.UseCaseTextColumns)

var useCaseSelect = `
	SELECT uc.id, uc.bi_id, uc.name, uc.process_step_id, uc.priority, uc.` + strings.Join(models.UseCaseTextColumns, ", uc.") + `,
	       uc.created_at, uc.updated_at, ps.bi_id, ps.name, a.id, a.name
	FROM use_cases uc
	JOIN process_steps ps ON ps.id = uc.process_step_id
	JOIN areas a ON a.id = ps.area_id`

func (r *useCaseRepository) Create(ctx context.Context, uc *models.UseCase) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	cols := append([]string{"bi_id", "name", "process_step_id", "priority"}, models.UseCaseTextColumns...)
	args := []any{uc.BIID, uc.Name, uc.ProcessStepID, uc.Priority}
	for _, c := range models.UseCaseTextColumns {
		args = append(args, *uc.TextField(c))
	}
	now := time.Now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	query := fmt.Sprintf(`
		INSERT INTO use_cases (%s) VALUES (%s)
		RETURNING id, created_at, updated_at`, strings.Join(cols, ", "), placeholders(len(cols)))

	if err := q.QueryRow(ctx, query, args...).Scan(&uc.ID, &uc.CreatedAt, &uc.UpdatedAt); err != nil {
		return apperrors.FromPg(err, "create use case "+uc.BIID)
	}
	return nil
}

func (r *useCaseRepository) Update(ctx context.Context, uc *models.UseCase) error {
	columns := map[string]any{
		"bi_id":           uc.BIID,
		"name":            uc.Name,
		"process_step_id": uc.ProcessStepID,
		"priority":        uc.Priority,
	}
	for _, c := range models.UseCaseTextColumns {
		columns[c] = *uc.TextField(c)
	}
	return r.UpdateColumns(ctx, uc.ID, columns)
}

func (r *useCaseRepository) UpdateColumns(ctx context.Context, id int64, columns map[string]any) error {
	return updateColumns(ctx, "use_cases", id, columns, useCaseEditableColumns)
}

func (r *useCaseRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, "use_cases", id)
}

func (r *useCaseRepository) GetByID(ctx context.Context, id int64) (*models.UseCase, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	uc, err := scanUseCase(q.QueryRow(ctx, useCaseSelect+" WHERE uc.id = $1", id))
	if err != nil {
		return nil, apperrors.FromPg(err, fmt.Sprintf("use case %d", id))
	}
	if err := loadTags(ctx, q, []*models.UseCase{uc}); err != nil {
		return nil, err
	}
	return uc, nil
}

func (r *useCaseRepository) GetByBIIDs(ctx context.Context, biIDs []string) (map[string]*models.UseCase, error) {
	result := make(map[string]*models.UseCase, len(biIDs))
	if len(biIDs) == 0 {
		return result, nil
	}

	ucs, err := r.query(ctx, useCaseSelect+" WHERE uc.bi_id = ANY($1)", biIDs)
	if err != nil {
		return nil, err
	}
	for _, uc := range ucs {
		result[uc.BIID] = uc
	}
	return result, nil
}

func (r *useCaseRepository) List(ctx context.Context, filter UseCaseFilter) ([]*models.UseCase, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProcessStepID != nil {
		args = append(args, *filter.ProcessStepID)
		where = append(where, fmt.Sprintf("uc.process_step_id = $%d", len(args)))
	}
	if filter.AreaID != nil {
		args = append(args, *filter.AreaID)
		where = append(where, fmt.Sprintf("ps.area_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(uc.bi_id ILIKE $%d OR uc.name ILIKE $%d)", len(args), len(args)))
	}
	if filter.TagID != nil {
		args = append(args, *filter.TagID)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM use_case_tags t WHERE t.use_case_id = uc.id AND t.tag_id = $%d)", len(args)))
	}

	query := useCaseSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY uc.bi_id"

	return r.query(ctx, query, args...)
}

func (r *useCaseRepository) ReplaceTags(ctx context.Context, useCaseID int64, category models.TagCategory, tagIDs []int64) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		DELETE FROM use_case_tags
		WHERE use_case_id = $1
		  AND tag_id IN (SELECT id FROM tags WHERE category = $2)`, useCaseID, string(category))
	if err != nil {
		return apperrors.FromPg(err, "clear use case tags")
	}

	if len(tagIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, tagID := range tagIDs {
		batch.Queue(`INSERT INTO use_case_tags (use_case_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, useCaseID, tagID)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range tagIDs {
		if _, err := br.Exec(); err != nil {
			return apperrors.FromPg(err, "assign use case tag")
		}
	}
	return nil
}

func (r *useCaseRepository) query(ctx context.Context, query string, args ...any) ([]*models.UseCase, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query use cases: %w", err)
	}
	ucs := []*models.UseCase{}
	for rows.Next() {
		uc, err := scanUseCase(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ucs = append(ucs, uc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating use cases: %w", err)
	}

	if err := loadTags(ctx, q, ucs); err != nil {
		return nil, err
	}
	return ucs, nil
}

// loadTags fills Tags on every use case with one query.
func loadTags(ctx context.Context, q database.Querier, ucs []*models.UseCase) error {
	if len(ucs) == 0 {
		return nil
	}

	byID := make(map[int64]*models.UseCase, len(ucs))
	ids := make([]int64, 0, len(ucs))
	for _, uc := range ucs {
		uc.Tags = []*models.Tag{}
		byID[uc.ID] = uc
		ids = append(ids, uc.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT uct.use_case_id, t.id, t.name, t.category
		FROM use_case_tags uct
		JOIN tags t ON t.id = uct.tag_id
		WHERE uct.use_case_id = ANY($1)
		ORDER BY t.category, t.name`, ids)
	if err != nil {
		return fmt.Errorf("failed to query use case tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ucID int64
		var t models.Tag
		if err := rows.Scan(&ucID, &t.ID, &t.Name, &t.Category); err != nil {
			return fmt.Errorf("failed to scan use case tag: %w", err)
		}
		if uc := byID[ucID]; uc != nil {
			uc.Tags = append(uc.Tags, &t)
		}
	}
	return rows.Err()
}

func scanUseCase(row pgx.Row) (*models.UseCase, error) {
	var u models.UseCase
	dest := []any{&u.ID, &u.BIID, &u.Name, &u.ProcessStepID, &u.Priority}
	for _, c := range models.UseCaseTextColumns {
		dest = append(dest, u.TextField(c))
	}
	dest = append(dest, &u.CreatedAt, &u.UpdatedAt, &u.ProcessStepBIID, &u.ProcessStepName, &u.AreaID, &u.AreaName)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}
