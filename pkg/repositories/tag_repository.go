package repositories

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// TagRepository provides data access for categorized tags.
type TagRepository interface {
	// GetByNames returns existing tags of one category whose name is in names.
	GetByNames(ctx context.Context, category models.TagCategory, names []string) ([]*models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	// List returns tags ordered by name. An empty category lists all.
	List(ctx context.Context, category models.TagCategory) ([]*models.Tag, error)
}

type tagRepository struct{}

// NewTagRepository creates a new TagRepository.
func NewTagRepository() TagRepository {
	return &tagRepository{}
}

var _ TagRepository = (*tagRepository)(nil)

func (r *tagRepository) GetByNames(ctx context.Context, category models.TagCategory, names []string) ([]*models.Tag, error) {
	if len(names) == 0 {
		return []*models.Tag{}, nil
	}
	return r.query(ctx, `
		SELECT id, name, category FROM tags
		WHERE category = $1 AND name = ANY($2)`, string(category), names)
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `INSERT INTO tags (name, category) VALUES ($1, $2) RETURNING id`,
		tag.Name, string(tag.Category)).Scan(&tag.ID)
	if err != nil {
		return apperrors.FromPg(err, fmt.Sprintf("create tag %s/%s", tag.Category, tag.Name))
	}
	return nil
}

func (r *tagRepository) List(ctx context.Context, category models.TagCategory) ([]*models.Tag, error) {
	if category == "" {
		return r.query(ctx, `SELECT id, name, category FROM tags ORDER BY category, name`)
	}
	return r.query(ctx, `SELECT id, name, category FROM tags WHERE category = $1 ORDER BY name`, string(category))
}

func (r *tagRepository) query(ctx context.Context, query string, args ...any) ([]*models.Tag, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []*models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}
