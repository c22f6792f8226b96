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

// RelevanceRepository provides data access for the four relevance link tables.
// Every method takes the link kind; table and column names come from its descriptor.
type RelevanceRepository interface {
	Create(ctx context.Context, link *models.RelevanceLink) error
	Update(ctx context.Context, link *models.RelevanceLink) error
	Delete(ctx context.Context, kind models.LinkKind, id int64) error
	DeleteAll(ctx context.Context, kind models.LinkKind) (int64, error)
	GetByID(ctx context.Context, kind models.LinkKind, id int64) (*models.RelevanceLink, error)
	// GetByPair returns nil, nil when no link joins source and target.
	GetByPair(ctx context.Context, kind models.LinkKind, sourceID, targetID int64) (*models.RelevanceLink, error)
	Query(ctx context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error)
	// EntityExists reports whether a row with id exists in the entity's table.
	EntityExists(ctx context.Context, entity models.EntityType, id int64) (bool, error)
}

type relevanceRepository struct{}

// NewRelevanceRepository creates a new RelevanceRepository.
func NewRelevanceRepository() RelevanceRepository {
	return &relevanceRepository{}
}

var _ RelevanceRepository = (*relevanceRepository)(nil)

func kindInfo(kind models.LinkKind) (models.LinkKindInfo, error) {
	info, ok := kind.Info()
	if !ok {
		return info, apperrors.Validation("unknown link kind %q", kind)
	}
	return info, nil
}

// displayExpr is the human-readable label of an endpoint row under alias.
func displayExpr(alias string, e models.EntityType) string {
	if e == models.EntityArea {
		return alias + ".name"
	}
	return alias + ".bi_id || ' ' || " + alias + ".name"
}

func linkSelect(info models.LinkKindInfo) string {
	return fmt.Sprintf(`
		SELECT l.id, l.%s, l.%s, l.relevance_score, l.relevance_content, l.created_at, l.updated_at,
		       %s, %s
		FROM %s l
		JOIN %s s ON s.id = l.%s
		JOIN %s t ON t.id = l.%s`,
		info.SourceColumn, info.TargetColumn,
		displayExpr("s", info.SourceType),
		displayExpr("t", info.TargetType),
		info.Table,
		info.SourceType.Table(), info.SourceColumn,
		info.TargetType.Table(), info.TargetColumn,
	)
}

func (r *relevanceRepository) Create(ctx context.Context, link *models.RelevanceLink) error {
	info, err := kindInfo(link.Kind)
	if err != nil {
		return err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, relevance_score, relevance_content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`, info.Table, info.SourceColumn, info.TargetColumn)

	err = q.QueryRow(ctx, query, link.SourceID, link.TargetID, link.Score, link.Content, now, now).
		Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return apperrors.FromPg(err, fmt.Sprintf("create %s link %d->%d", link.Kind, link.SourceID, link.TargetID))
	}
	return nil
}

func (r *relevanceRepository) Update(ctx context.Context, link *models.RelevanceLink) error {
	info, err := kindInfo(link.Kind)
	if err != nil {
		return err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, relevance_score = $4, relevance_content = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at`, info.Table, info.SourceColumn, info.TargetColumn)

	err = q.QueryRow(ctx, query, link.ID, link.SourceID, link.TargetID, link.Score, link.Content, time.Now()).
		Scan(&link.UpdatedAt)
	if err != nil {
		return apperrors.FromPg(err, fmt.Sprintf("update %s link %d", link.Kind, link.ID))
	}
	return nil
}

func (r *relevanceRepository) Delete(ctx context.Context, kind models.LinkKind, id int64) error {
	info, err := kindInfo(kind)
	if err != nil {
		return err
	}
	return deleteByID(ctx, info.Table, id)
}

func (r *relevanceRepository) DeleteAll(ctx context.Context, kind models.LinkKind) (int64, error) {
	info, err := kindInfo(kind)
	if err != nil {
		return 0, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := q.Exec(ctx, "DELETE FROM "+info.Table)
	if err != nil {
		return 0, apperrors.FromPg(err, "delete all "+string(kind)+" links")
	}
	return tag.RowsAffected(), nil
}

func (r *relevanceRepository) GetByID(ctx context.Context, kind models.LinkKind, id int64) (*models.RelevanceLink, error) {
	info, err := kindInfo(kind)
	if err != nil {
		return nil, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	link, err := scanLink(q.QueryRow(ctx, linkSelect(info)+" WHERE l.id = $1", id), kind)
	if err != nil {
		return nil, apperrors.FromPg(err, fmt.Sprintf("%s link %d", kind, id))
	}
	return link, nil
}

func (r *relevanceRepository) GetByPair(ctx context.Context, kind models.LinkKind, sourceID, targetID int64) (*models.RelevanceLink, error) {
	info, err := kindInfo(kind)
	if err != nil {
		return nil, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := linkSelect(info) + fmt.Sprintf(" WHERE l.%s = $1 AND l.%s = $2", info.SourceColumn, info.TargetColumn)
	link, err := scanLink(q.QueryRow(ctx, query, sourceID, targetID), kind)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up %s link: %w", kind, err)
	}
	return link, nil
}

func (r *relevanceRepository) Query(ctx context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error) {
	info, err := kindInfo(filter.Kind)
	if err != nil {
		return nil, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.SourceID != nil {
		args = append(args, *filter.SourceID)
		where = append(where, fmt.Sprintf("l.%s = $%d", info.SourceColumn, len(args)))
	}
	if filter.TargetID != nil {
		args = append(args, *filter.TargetID)
		where = append(where, fmt.Sprintf("l.%s = $%d", info.TargetColumn, len(args)))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		where = append(where, fmt.Sprintf("l.relevance_score >= $%d", len(args)))
	}
	if filter.MaxScore != nil {
		args = append(args, *filter.MaxScore)
		where = append(where, fmt.Sprintf("l.relevance_score <= $%d", len(args)))
	}

	query := linkSelect(info)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY l.relevance_score DESC, l.id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s links: %w", filter.Kind, err)
	}
	defer rows.Close()

	links := []*models.RelevanceLink{}
	for rows.Next() {
		link, err := scanLink(rows, filter.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s link: %w", filter.Kind, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s links: %w", filter.Kind, err)
	}
	return links, nil
}

func (r *relevanceRepository) EntityExists(ctx context.Context, entity models.EntityType, id int64) (bool, error) {
	table := entity.Table()
	if table == "" {
		return false, apperrors.Validation("unknown entity type %q", entity)
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", entity, id, err)
	}
	return exists, nil
}

func scanLink(row pgx.Row, kind models.LinkKind) (*models.RelevanceLink, error) {
	l := models.RelevanceLink{Kind: kind}
	err := row.Scan(&l.ID, &l.SourceID, &l.TargetID, &l.Score, &l.Content, &l.CreatedAt, &l.UpdatedAt,
		&l.SourceName, &l.TargetName)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
