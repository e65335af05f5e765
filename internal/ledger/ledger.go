// Package ledger owns fork-lineage records, favorite membership and the
// cached counter columns on templates. It is the only writer of those
// counters, and it never reads a counter value in order to write it back:
// every mutation is a single atomic column update at the storage layer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCounterUpdate is returned when a counter mutation keeps failing after
// the retry budget is exhausted. The ledger record itself is already
// durable at that point; the counter can be reconciled offline.
var ErrCounterUpdate = errors.New("counter update failed")

const (
	counterAttempts = 3
	retryBackoff    = 50 * time.Millisecond
)

// Ledger maintains relationship records and derived counters.
type Ledger struct {
	db *gorm.DB
}

// New creates a new Ledger.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// AddFavorite inserts a (template, user) favorite pair. Inserting an
// existing pair is a no-op; the counter moves only when a row was
// actually created. Returns whether the pair was newly added.
func (l *Ledger) AddFavorite(ctx context.Context, templateID, userID uuid.UUID) (bool, error) {
	fav := models.Favorite{TemplateID: templateID, UserID: userID}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav)
	if res.Error != nil {
		return false, fmt.Errorf("insert favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := l.adjustCounter(ctx, templateID, "favorite_count", +1); err != nil {
		return true, err
	}
	return true, nil
}

// RemoveFavorite deletes a favorite pair. Removing a non-existent pair is
// a no-op; the counter moves only when a row was actually deleted and
// never drops below zero.
func (l *Ledger) RemoveFavorite(ctx context.Context, templateID, userID uuid.UUID) (bool, error) {
	res := l.db.WithContext(ctx).
		Where("template_id = ? AND user_id = ?", templateID, userID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, fmt.Errorf("delete favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := l.adjustCounter(ctx, templateID, "favorite_count", -1); err != nil {
		return true, err
	}
	return true, nil
}

// IsFavorite reports whether the user has favorited the template.
func (l *Ledger) IsFavorite(ctx context.Context, templateID, userID uuid.UUID) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("template_id = ? AND user_id = ?", templateID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return count > 0, nil
}

// CreateForkRecord inserts the lineage record using the given handle,
// which may be a transaction shared with the forked template's creation.
func (l *Ledger) CreateForkRecord(db *gorm.DB, originID, forkedID, userID uuid.UUID) (*models.Fork, error) {
	record := models.Fork{
		OriginID: originID,
		ForkedID: forkedID,
		UserID:   userID,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert fork record: %w", err)
	}
	return &record, nil
}

// IncrementForkCount bumps the origin's cached fork counter. The update is
// atomic at the storage layer and retried on transient failure; losing the
// race against concurrent forks of the same origin is impossible because
// no fork-count value is ever read back in.
func (l *Ledger) IncrementForkCount(ctx context.Context, originID uuid.UUID) error {
	return l.adjustCounter(ctx, originID, "fork_count", +1)
}

// RecordFork inserts the Fork record and increments the origin's fork
// count. The record is the source of truth; if the counter increment keeps
// failing the record still stands and ErrCounterUpdate is surfaced.
func (l *Ledger) RecordFork(ctx context.Context, originID, forkedID, userID uuid.UUID) (*models.Fork, error) {
	record, err := l.CreateForkRecord(l.db.WithContext(ctx), originID, forkedID, userID)
	if err != nil {
		return nil, err
	}
	if err := l.IncrementForkCount(ctx, originID); err != nil {
		return record, err
	}
	return record, nil
}

// IncrementUsage bumps the template's cached usage counter.
func (l *Ledger) IncrementUsage(ctx context.Context, templateID uuid.UUID) error {
	return l.adjustCounter(ctx, templateID, "usage_count", +1)
}

// ForksByOrigin returns the lineage records for an origin template, newest
// first. Records survive soft deletion of either endpoint.
func (l *Ledger) ForksByOrigin(ctx context.Context, originID uuid.UUID) ([]models.Fork, error) {
	var records []models.Fork
	err := l.db.WithContext(ctx).
		Where("origin_id = ?", originID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query fork records: %w", err)
	}
	return records, nil
}

// FavoriteCount reads the cached favorite counter column.
func (l *Ledger) FavoriteCount(ctx context.Context, templateID uuid.UUID) (int64, error) {
	return l.readCounter(ctx, templateID, "favorite_count")
}

// ForkCount reads the cached fork counter column.
func (l *Ledger) ForkCount(ctx context.Context, templateID uuid.UUID) (int64, error) {
	return l.readCounter(ctx, templateID, "fork_count")
}

// UsageCount reads the cached usage counter column.
func (l *Ledger) UsageCount(ctx context.Context, templateID uuid.UUID) (int64, error) {
	return l.readCounter(ctx, templateID, "usage_count")
}

// readCounter reads a counter column directly; counts are never recomputed
// by scanning related rows. Soft-deleted templates stay readable here so
// bookkeeping keeps working for audit paths.
func (l *Ledger) readCounter(ctx context.Context, templateID uuid.UUID, column string) (int64, error) {
	var value int64
	err := l.db.WithContext(ctx).Model(&models.Template{}).Unscoped().
		Select(column).
		Where("id = ?", templateID).
		Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", column, err)
	}
	return value, nil
}

// adjustCounter applies an atomic delta to a counter column, retrying a
// small fixed number of times. Decrements are guarded at the storage layer
// so a counter never drops below zero.
func (l *Ledger) adjustCounter(ctx context.Context, templateID uuid.UUID, column string, delta int) error {
	var lastErr error
	for attempt := 1; attempt <= counterAttempts; attempt++ {
		query := l.db.WithContext(ctx).Model(&models.Template{}).Unscoped().
			Where("id = ?", templateID)
		if delta < 0 {
			query = query.Where(column+" > 0")
		}

		res := query.UpdateColumn(column, gorm.Expr(column+" + ?", delta))
		if res.Error == nil {
			return nil
		}
		lastErr = res.Error

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %s on %s: %v", ErrCounterUpdate, column, templateID, lastErr)
}
