package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fork is a lineage edge from an origin template to a derivative created
// by the fork operation. Rows are append-only: never updated or deleted,
// even after either template is soft-deleted. The fork ledger is the
// source of truth for the origin's fork count; the counter column on
// Template is a cached derivation.
type Fork struct {
	ID       uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	OriginID uuid.UUID `gorm:"type:text;not null;index" json:"origin_id"`
	ForkedID uuid.UUID `gorm:"type:text;not null;uniqueIndex" json:"forked_id"`
	UserID   uuid.UUID `gorm:"type:text;not null;index" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName ensures GORM uses the "forks" table
func (Fork) TableName() string {
	return "forks"
}

// BeforeCreate hook to generate UUID
func (f *Fork) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
