package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateTag is a single tag attached to a template. One row per
// (template, tag) pair so tag frequency can be aggregated in SQL.
type TemplateTag struct {
	ID         uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	TemplateID uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_tpl_tag" json:"template_id"`
	Tag        string    `gorm:"not null;uniqueIndex:idx_tpl_tag;index" json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (tt *TemplateTag) BeforeCreate(tx *gorm.DB) error {
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	return nil
}
