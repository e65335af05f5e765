package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite marks a user's membership in a template's favorite set.
// The composite primary key makes existence binary: the same pair can
// never be inserted twice, and removal deletes the row outright.
type Favorite struct {
	TemplateID uuid.UUID `gorm:"type:text;primaryKey" json:"template_id"`
	UserID     uuid.UUID `gorm:"type:text;primaryKey" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName ensures GORM uses the "favorites" table
func (Favorite) TableName() string {
	return "favorites"
}
