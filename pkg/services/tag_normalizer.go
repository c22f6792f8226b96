package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// TagCache remembers tags resolved during one transaction so a name seen on many
// rows is looked up or created once. Not safe for concurrent use; one per transaction.
type TagCache struct {
	tags map[tagKey]*models.Tag
}

type tagKey struct {
	category models.TagCategory
	name     string
}

// NewTagCache creates an empty cache.
func NewTagCache() *TagCache {
	return &TagCache{tags: make(map[tagKey]*models.Tag)}
}

func (c *TagCache) get(category models.TagCategory, name string) (*models.Tag, bool) {
	t, ok := c.tags[tagKey{category, name}]
	return t, ok
}

func (c *TagCache) put(t *models.Tag) {
	c.tags[tagKey{t.Category, t.Name}] = t
}

// Len returns the number of cached tags.
func (c *TagCache) Len() int {
	return len(c.tags)
}

// TagNormalizer resolves comma-separated tag strings into stored tags.
type TagNormalizer interface {
	// GetOrCreate returns the tags named in tagString, creating missing ones.
	// The cache must belong to the caller's current transaction.
	GetOrCreate(ctx context.Context, tagString string, category models.TagCategory, cache *TagCache) ([]*models.Tag, error)
}

type tagNormalizer struct {
	tagRepo repositories.TagRepository
	logger  *zap.Logger
}

// NewTagNormalizer creates a TagNormalizer.
func NewTagNormalizer(tagRepo repositories.TagRepository, logger *zap.Logger) TagNormalizer {
	return &tagNormalizer{
		tagRepo: tagRepo,
		logger:  logger.Named("tags"),
	}
}

var _ TagNormalizer = (*tagNormalizer)(nil)

// SplitTags splits on commas, trims, drops blanks and removes repeats, keeping first-seen order.
func SplitTags(tagString string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(tagString, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func (n *tagNormalizer) GetOrCreate(ctx context.Context, tagString string, category models.TagCategory, cache *TagCache) ([]*models.Tag, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown tag category %q", category)
	}

	names := SplitTags(tagString)
	if len(names) == 0 {
		return []*models.Tag{}, nil
	}

	var uncached []string
	for _, name := range names {
		if _, ok := cache.get(category, name); !ok {
			uncached = append(uncached, name)
		}
	}

	if len(uncached) > 0 {
		existing, err := n.tagRepo.GetByNames(ctx, category, uncached)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s tags: %w", category, err)
		}
		for _, t := range existing {
			cache.put(t)
		}

		for _, name := range uncached {
			if _, ok := cache.get(category, name); ok {
				continue
			}
			tag := &models.Tag{Name: name, Category: category}
			if err := n.tagRepo.Create(ctx, tag); err != nil {
				return nil, fmt.Errorf("failed to create %s tag %q: %w", category, name, err)
			}
			n.logger.Debug("Created tag", zap.String("category", string(category)), zap.String("name", name))
			cache.put(tag)
		}
	}

	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		t, _ := cache.get(category, name)
		tags = append(tags, t)
	}
	return tags, nil
}
