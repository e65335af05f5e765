package search

import (
	"context"
	"fmt"

	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
)

// StoreIndex implements Index directly over the document store with
// pattern matching on title, description and tags. It reads live data, so
// no separate index-feed step is needed.
type StoreIndex struct {
	db *gorm.DB
}

// NewStoreIndex creates a store-backed search index.
func NewStoreIndex(db *gorm.DB) *StoreIndex {
	return &StoreIndex{db: db}
}

// Search matches published public templates against the query. GORM's
// default scope already excludes soft-deleted rows.
func (s *StoreIndex) Search(ctx context.Context, query string, limit int) ([]models.Template, error) {
	pattern := "%" + query + "%"

	var templates []models.Template
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("status = ? AND is_public = ?", models.TplStatusPublished, true).
		Where(
			s.db.Where("title LIKE ?", pattern).
				Or("description LIKE ?", pattern).
				Or("id IN (?)", s.db.Model(&models.TemplateTag{}).Select("template_id").Where("tag LIKE ?", pattern)),
		).
		Order("usage_count DESC, updated_at DESC").
		Limit(limit).
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("search templates: %w", err)
	}
	return templates, nil
}

// PopularTags aggregates tag frequency across published public templates.
func (s *StoreIndex) PopularTags(ctx context.Context, limit int) ([]TagCount, error) {
	var tags []TagCount
	err := s.db.WithContext(ctx).
		Model(&models.TemplateTag{}).
		Select("template_tags.tag AS tag, COUNT(*) AS count").
		Joins("JOIN templates ON templates.id = template_tags.template_id").
		Where("templates.status = ? AND templates.is_public = ? AND templates.deleted_at IS NULL",
			models.TplStatusPublished, true).
		Group("template_tags.tag").
		Order("count DESC, tag ASC").
		Limit(limit).
		Scan(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate tags: %w", err)
	}
	return tags, nil
}
