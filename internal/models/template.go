package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateStatus represents the publication state of a template
type TemplateStatus string

const (
	TplStatusDraft     TemplateStatus = "draft"
	TplStatusPublished TemplateStatus = "published"
)

// Template represents a prompt/agent configuration document.
// The three counter columns are cached derivations maintained by the
// relationship ledger through atomic column updates; they are never
// written through this struct.
type Template struct {
	ID            uuid.UUID      `gorm:"type:text;primary_key" json:"id"`
	OwnerID       uuid.UUID      `gorm:"type:text;not null;index" json:"owner_id"`
	Owner         User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `json:"description"`
	Status        TemplateStatus `gorm:"not null;default:'draft'" json:"status"`
	IsPublic      bool           `gorm:"not null;default:false" json:"is_public"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	ForkCount     int64          `gorm:"not null;default:0" json:"fork_count"`
	FavoriteCount int64          `gorm:"not null;default:0" json:"favorite_count"`
	UsageCount    int64          `gorm:"not null;default:0" json:"usage_count"`
	ParentID      *uuid.UUID     `gorm:"type:text;index" json:"parent_id,omitempty"`
	ConfigJSON    string         `gorm:"type:text;not null" json:"config_json"`
	Tags          []TemplateTag  `gorm:"foreignKey:TemplateID" json:"tags,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName ensures GORM uses the "templates" table
func (Template) TableName() string {
	return "templates"
}

// BeforeCreate hook to generate UUID
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
