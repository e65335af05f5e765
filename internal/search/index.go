// Package search wraps the search-index collaborator behind a small
// interface and fronts it with the validating query facade. Ranking is the
// collaborator's concern; the facade only trims input, bounds limits,
// restricts results to published non-deleted templates, and records
// search analytics.
package search

import (
	"context"

	"github.com/promptdeck/promptdeck/internal/models"
)

// TagCount is one entry of a tag frequency aggregation.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// Index is the search collaborator consumed by the facade. Implementations
// must only ever return published, non-deleted templates.
type Index interface {
	// Search returns templates matching the (already validated) query,
	// best match first.
	Search(ctx context.Context, query string, limit int) ([]models.Template, error)

	// PopularTags returns the most frequent tags across published
	// templates, most frequent first.
	PopularTags(ctx context.Context, limit int) ([]TagCount, error)
}
