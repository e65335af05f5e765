// Package analytics appends immutable usage events. Recording is
// fire-and-forget: a failed analytics write is logged and swallowed, never
// propagated to the user-facing operation that triggered it. Callers record
// only after the primary operation is known to have succeeded.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
)

// Usage action kinds
const (
	ActionView   = "view"
	ActionSearch = "search"
	ActionFork   = "fork"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionCreate = "create"
)

// Event is a single usage fact to record.
type Event struct {
	TemplateID *uuid.UUID             `json:"template_id,omitempty"`
	UserID     *uuid.UUID             `json:"user_id,omitempty"`
	Action     string                 `json:"action"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Recorder appends usage events.
type Recorder interface {
	// Record appends an event. It never returns an error: failures are
	// logged by the implementation.
	Record(ctx context.Context, ev Event)

	// Close releases transport resources.
	Close() error
}

// StoreRecorder writes events directly to the document store.
type StoreRecorder struct {
	db *gorm.DB
}

// NewStoreRecorder creates a recorder that persists events synchronously.
func NewStoreRecorder(db *gorm.DB) *StoreRecorder {
	return &StoreRecorder{db: db}
}

// Record appends the event to the usage_events table.
func (r *StoreRecorder) Record(ctx context.Context, ev Event) {
	if err := Persist(r.db.WithContext(ctx), ev); err != nil {
		slog.Error("Failed to record usage event", "action", ev.Action, "error", err)
	}
}

// Close implements Recorder.
func (r *StoreRecorder) Close() error { return nil }

// Persist converts an Event into a UsageEvent row and writes it. Unlike
// Record, failures are returned so the drain worker can log them itself.
func Persist(db *gorm.DB, ev Event) error {
	metadataJSON := "{}"
	if len(ev.Metadata) > 0 {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			// The event is still worth keeping; only the payload is dropped.
			slog.Error("Failed to marshal usage event metadata", "action", ev.Action, "error", err)
		} else {
			metadataJSON = string(b)
		}
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	row := models.UsageEvent{
		TemplateID:   ev.TemplateID,
		UserID:       ev.UserID,
		Action:       ev.Action,
		MetadataJSON: metadataJSON,
		Timestamp:    ts,
	}
	return db.Create(&row).Error
}
