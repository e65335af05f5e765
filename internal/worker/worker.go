// Package worker drains queued usage events into the document store when
// the analytics transport is Valkey-backed.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/promptdeck/promptdeck/internal/analytics"
	"gorm.io/gorm"
)

// Worker persists usage events popped from the Valkey list.
type Worker struct {
	db     *gorm.DB
	source *analytics.ValkeyRecorder
	logger *slog.Logger
}

// New creates a new analytics drain worker.
func New(db *gorm.DB, source *analytics.ValkeyRecorder, logger *slog.Logger) *Worker {
	return &Worker{db: db, source: source, logger: logger}
}

// Start runs the drain loop until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Analytics worker started", "stream_key", w.source.Key())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Analytics worker stopping")
			return nil
		default:
		}

		ev, err := w.source.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue // empty queue, poll again
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("Failed to pop usage event", "error", err)
			continue
		}

		if err := analytics.Persist(w.db.WithContext(ctx), *ev); err != nil {
			// Events are analytics facts, not source of truth; a failed
			// persist is logged and the event dropped rather than
			// blocking the drain loop.
			w.logger.Error("Failed to persist usage event", "action", ev.Action, "error", err)
		}
	}
}
