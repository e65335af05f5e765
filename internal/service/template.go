package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/ledger"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/notify"
	"gorm.io/gorm"
)

// TemplateService owns template lifecycle transitions and ownership
// enforcement. Relationship records and counters belong to the ledger;
// usage events belong to the analytics recorder.
type TemplateService struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	recorder analytics.Recorder
	broker   *notify.Broker
}

// New creates a new TemplateService.
func New(db *gorm.DB, l *ledger.Ledger, rec analytics.Recorder, broker *notify.Broker) *TemplateService {
	return &TemplateService{db: db, ledger: l, recorder: rec, broker: broker}
}

// Ledger exposes the relationship ledger for boundary handlers.
func (s *TemplateService) Ledger() *ledger.Ledger {
	return s.ledger
}

// Create validates and persists a new draft template owned by the principal.
func (s *TemplateService) Create(ctx context.Context, principal uuid.UUID, req CreateRequest) (*models.Template, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &ValidationError{Message: "title is required"}
	}
	if len(req.Config) == 0 {
		return nil, &ValidationError{Message: "configuration payload is required"}
	}
	if !json.Valid(req.Config) {
		return nil, &ValidationError{Message: "configuration payload must be valid JSON"}
	}

	tpl := models.Template{
		OwnerID:     principal,
		Title:       title,
		Description: req.Description,
		Status:      models.TplStatusDraft,
		IsPublic:    req.IsPublic,
		Version:     1,
		ConfigJSON:  string(req.Config),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tpl).Error; err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		return replaceTags(tx, tpl.ID, req.Tags)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &tpl.ID,
		UserID:     &principal,
		Action:     analytics.ActionCreate,
		Metadata:   map[string]interface{}{"title": tpl.Title},
	})

	return s.reload(ctx, tpl.ID)
}

// Get returns a template by ID and records a view event on the default
// path. Soft-deleted templates are visible only when the caller explicitly
// requests them for audit and is the owner or an admin.
func (s *TemplateService) Get(ctx context.Context, id uuid.UUID, opts ReadOptions) (*models.Template, error) {
	var tpl models.Template
	err := s.db.WithContext(ctx).Unscoped().Preload("Tags").Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if tpl.DeletedAt.Valid {
		audit := opts.IncludeDeleted && opts.Requester != nil &&
			(*opts.Requester == tpl.OwnerID || opts.RequesterAdmin)
		if !audit {
			return nil, ErrNotFound
		}
		// Audit reads do not count as usage.
		return &tpl, nil
	}

	if err := s.ledger.IncrementUsage(ctx, tpl.ID); err != nil {
		slog.Error("Failed to bump usage counter", "template_id", tpl.ID, "error", err)
	}
	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &tpl.ID,
		UserID:     opts.Requester,
		Action:     analytics.ActionView,
	})

	return &tpl, nil
}

// List returns the principal's own templates, newest first.
func (s *TemplateService) List(ctx context.Context, principal uuid.UUID) ([]models.Template, error) {
	var templates []models.Template
	err := s.db.WithContext(ctx).Preload("Tags").
		Where("owner_id = ?", principal).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Update applies a partial patch to an owned template, incrementing the
// version by exactly one. Fields absent from the patch stay unchanged;
// identity, ownership, timestamps and counters are not patchable.
func (s *TemplateService) Update(ctx context.Context, principal uuid.UUID, id uuid.UUID, patch PatchRequest) (*models.Template, error) {
	if _, err := s.fetchOwned(ctx, principal, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, &ValidationError{Message: "title cannot be empty"}
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Config != nil {
		if !json.Valid(patch.Config) {
			return nil, &ValidationError{Message: "configuration payload must be valid JSON"}
		}
		updates["config_json"] = string(patch.Config)
	}
	if patch.IsPublic != nil {
		updates["is_public"] = *patch.IsPublic
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Template{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update template: %w", res.Error)
		}
		// A concurrent soft delete between the ownership read and this
		// write leaves zero rows matched; that race surfaces as NotFound.
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if patch.Tags != nil {
			return replaceTags(tx, id, *patch.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &id,
		UserID:     &principal,
		Action:     analytics.ActionUpdate,
		Metadata:   map[string]interface{}{"version": updated.Version},
	})
	s.broker.Publish(notify.TemplateEvent{
		TemplateID: id,
		Kind:       notify.EventUpdated,
		Version:    updated.Version,
	})

	return updated, nil
}

// Delete soft-deletes an owned template. Fork and favorite ledger rows are
// left untouched.
func (s *TemplateService) Delete(ctx context.Context, principal uuid.UUID, id uuid.UUID) error {
	if _, err := s.fetchOwned(ctx, principal, id); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Template{})
	if res.Error != nil {
		return fmt.Errorf("delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &id,
		UserID:     &principal,
		Action:     analytics.ActionDelete,
	})
	s.broker.Publish(notify.TemplateEvent{TemplateID: id, Kind: notify.EventDeleted})

	return nil
}

// Clone copies an existing template into a new private draft owned by the
// caller, with overrides merged over the origin's content. Cloning leaves
// the origin's fork count untouched: lineage counters belong to fork only.
func (s *TemplateService) Clone(ctx context.Context, principal *uuid.UUID, id uuid.UUID, req CloneRequest) (*models.Template, error) {
	if principal == nil {
		// No placeholder identity is ever synthesized for anonymous clones.
		return nil, ErrUnauthorized
	}

	origin, err := s.fetchLive(ctx, id)
	if err != nil {
		return nil, err
	}

	configJSON, err := mergeConfig(origin.ConfigJSON, req.Config)
	if err != nil {
		return nil, &ValidationError{Message: "override configuration must be valid JSON"}
	}

	title := origin.Title
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		title = strings.TrimSpace(*req.Title)
	}
	description := origin.Description
	if req.Description != nil {
		description = *req.Description
	}

	clone := models.Template{
		OwnerID:     *principal,
		Title:       title,
		Description: description,
		Status:      models.TplStatusDraft,
		IsPublic:    false,
		Version:     1,
		ParentID:    &origin.ID,
		ConfigJSON:  configJSON,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clone).Error; err != nil {
			return fmt.Errorf("create clone: %w", err)
		}
		return replaceTags(tx, clone.ID, tagNames(origin.Tags))
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &clone.ID,
		UserID:     principal,
		Action:     analytics.ActionCreate,
		Metadata:   map[string]interface{}{"cloned_from": origin.ID.String()},
	})

	return s.reload(ctx, clone.ID)
}

// Fork creates a derivative of an existing template owned by the caller,
// recording the lineage edge in the same transaction as the new row. The
// origin's fork counter is bumped after commit; if that increment exhausts
// its retries the fork still stands, because the ledger record is the
// source of truth and the counter is reconcilable offline.
func (s *TemplateService) Fork(ctx context.Context, principal *uuid.UUID, id uuid.UUID) (*models.Template, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	origin, err := s.fetchLive(ctx, id)
	if err != nil {
		return nil, err
	}

	forked := models.Template{
		OwnerID:     *principal,
		Title:       origin.Title,
		Description: origin.Description,
		Status:      models.TplStatusDraft,
		IsPublic:    false,
		Version:     1,
		ParentID:    &origin.ID,
		ConfigJSON:  origin.ConfigJSON,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&forked).Error; err != nil {
			return fmt.Errorf("create fork: %w", err)
		}
		if err := replaceTags(tx, forked.ID, tagNames(origin.Tags)); err != nil {
			return err
		}
		_, err := s.ledger.CreateForkRecord(tx, origin.ID, forked.ID, *principal)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledger.IncrementForkCount(ctx, origin.ID); err != nil {
		slog.Error("Fork counter increment failed after retries",
			"origin_id", origin.ID, "forked_id", forked.ID, "error", err)
	}

	s.recorder.Record(ctx, analytics.Event{
		TemplateID: &origin.ID,
		UserID:     principal,
		Action:     analytics.ActionFork,
		Metadata:   map[string]interface{}{"forked_id": forked.ID.String()},
	})

	return s.reload(ctx, forked.ID)
}

// Publish moves an owned template to the published state and lists it
// publicly. Publishing an already-published template is a no-op.
func (s *TemplateService) Publish(ctx context.Context, principal uuid.UUID, id uuid.UUID) (*models.Template, error) {
	return s.setStatus(ctx, principal, id, models.TplStatusPublished, true, notify.EventPublished)
}

// Unpublish moves an owned template back to draft and delists it.
func (s *TemplateService) Unpublish(ctx context.Context, principal uuid.UUID, id uuid.UUID) (*models.Template, error) {
	return s.setStatus(ctx, principal, id, models.TplStatusDraft, false, notify.EventUnpublished)
}

func (s *TemplateService) setStatus(ctx context.Context, principal uuid.UUID, id uuid.UUID, status models.TemplateStatus, public bool, kind string) (*models.Template, error) {
	tpl, err := s.fetchOwned(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if tpl.Status == status {
		return tpl, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Template{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "is_public": public})
	if res.Error != nil {
		return nil, fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.broker.Publish(notify.TemplateEvent{TemplateID: id, Kind: kind})
	return s.reload(ctx, id)
}

// fetchLive loads a non-deleted template with tags, for use as a fork or
// clone source.
func (s *TemplateService) fetchLive(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	err := s.db.WithContext(ctx).Preload("Tags").Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// fetchOwned loads a non-deleted template and enforces ownership. The
// check is read-then-decide: no lock is held into the subsequent write.
func (s *TemplateService) fetchOwned(ctx context.Context, principal uuid.UUID, id uuid.UUID) (*models.Template, error) {
	tpl, err := s.fetchLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.OwnerID != principal {
		return nil, ErrForbidden
	}
	return tpl, nil
}

func (s *TemplateService) reload(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	if err := s.db.WithContext(ctx).Unscoped().Preload("Tags").Where("id = ?", id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// replaceTags swaps a template's tag rows for the given set. Tags are
// trimmed and de-duplicated; empty entries are dropped.
func replaceTags(tx *gorm.DB, templateID uuid.UUID, tags []string) error {
	if err := tx.Where("template_id = ?", templateID).Delete(&models.TemplateTag{}).Error; err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}

	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		if err := tx.Create(&models.TemplateTag{TemplateID: templateID, Tag: tag}).Error; err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
	}
	return nil
}

func tagNames(tags []models.TemplateTag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Tag)
	}
	return names
}

// mergeConfig overlays override keys onto the base configuration. Both
// payloads are opaque to the engine; merging happens only at the top level
// and, when either side is not a JSON object, the override replaces the
// base wholesale.
func mergeConfig(base string, override json.RawMessage) (string, error) {
	if len(override) == 0 {
		return base, nil
	}
	if !json.Valid(override) {
		return "", fmt.Errorf("invalid override payload")
	}

	var baseMap, overrideMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(base), &baseMap); err != nil {
		return string(override), nil
	}
	if err := json.Unmarshal(override, &overrideMap); err != nil {
		return string(override), nil
	}

	for k, v := range overrideMap {
		baseMap[k] = v
	}

	merged, err := json.Marshal(baseMap)
	if err != nil {
		return "", err
	}
	return string(merged), nil
}
