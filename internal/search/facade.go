package search

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/models"
)

// ErrInvalidQuery is returned when the trimmed query is shorter than the
// minimum length.
var ErrInvalidQuery = errors.New("query must be at least 2 characters")

// MinQueryLength is the minimum trimmed query length accepted, in characters.
const MinQueryLength = 2

// Facade validates and forwards queries to the search index, recording a
// search usage event when the caller is identified.
type Facade struct {
	index        Index
	recorder     analytics.Recorder
	maxLimit     int
	defaultLimit int
}

// NewFacade creates a search query facade.
func NewFacade(index Index, recorder analytics.Recorder, maxLimit, defaultLimit int) *Facade {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Facade{
		index:        index,
		recorder:     recorder,
		maxLimit:     maxLimit,
		defaultLimit: defaultLimit,
	}
}

// Search trims and validates the query, bounds the limit and delegates to
// the index. actorID may be nil for anonymous callers; an analytics event
// is recorded only for identified ones, after the search has succeeded.
func (f *Facade) Search(ctx context.Context, actorID *uuid.UUID, query string, limit int) ([]models.Template, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		return nil, ErrInvalidQuery
	}

	limit = f.boundLimit(limit)

	results, err := f.index.Search(ctx, trimmed, limit)
	if err != nil {
		return nil, err
	}

	if actorID != nil {
		f.recorder.Record(ctx, analytics.Event{
			UserID: actorID,
			Action: analytics.ActionSearch,
			Metadata: map[string]interface{}{
				"query":        trimmed,
				"result_count": len(results),
			},
		})
	}

	return results, nil
}

// PopularTags delegates tag aggregation to the index.
func (f *Facade) PopularTags(ctx context.Context, limit int) ([]TagCount, error) {
	return f.index.PopularTags(ctx, f.boundLimit(limit))
}

func (f *Facade) boundLimit(limit int) int {
	if limit <= 0 {
		return f.defaultLimit
	}
	if limit > f.maxLimit {
		return f.maxLimit
	}
	return limit
}
