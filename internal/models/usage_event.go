package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageEvent is an immutable analytics fact. Events are append-only:
// the engine never updates or deletes them, and they are never used to
// recompute the counter columns on Template.
type UsageEvent struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	TemplateID   *uuid.UUID `gorm:"type:text;index" json:"template_id,omitempty"`
	UserID       *uuid.UUID `gorm:"type:text;index" json:"user_id,omitempty"`
	Action       string     `gorm:"not null;index" json:"action"` // view, search, fork, update, delete, create
	MetadataJSON string     `gorm:"type:text" json:"metadata_json"`
	Timestamp    time.Time  `gorm:"not null;index" json:"timestamp"`
}
