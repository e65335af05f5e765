package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/ledger"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/notify"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupService(t *testing.T) (*TemplateService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Template{},
		&models.TemplateTag{},
		&models.Fork{},
		&models.Favorite{},
		&models.UsageEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	svc := New(db, ledger.New(db), analytics.NewStoreRecorder(db), notify.NewBroker())
	return svc, db
}

func mustCreate(t *testing.T, svc *TemplateService, owner uuid.UUID, title string) *models.Template {
	t.Helper()
	tpl, err := svc.Create(context.Background(), owner, CreateRequest{
		Title:  title,
		Config: json.RawMessage(`{"model":"base","temperature":0.7}`),
		Tags:   []string{"chat", "assistant"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return tpl
}

func strPtr(s string) *string { return &s }

func TestCreateValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	owner := uuid.New()

	var ve *ValidationError

	_, err := svc.Create(ctx, owner, CreateRequest{Title: "  ", Config: json.RawMessage(`{}`)})
	if !errors.As(err, &ve) {
		t.Errorf("blank title: expected validation error, got %v", err)
	}

	_, err = svc.Create(ctx, owner, CreateRequest{Title: "ok"})
	if !errors.As(err, &ve) {
		t.Errorf("missing config: expected validation error, got %v", err)
	}

	_, err = svc.Create(ctx, owner, CreateRequest{Title: "ok", Config: json.RawMessage(`{broken`)})
	if !errors.As(err, &ve) {
		t.Errorf("malformed config: expected validation error, got %v", err)
	}
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()

	tpl := mustCreate(t, svc, owner, "My Template")

	if tpl.Status != models.TplStatusDraft {
		t.Errorf("expected new template to be draft, got %s", tpl.Status)
	}
	if tpl.Version != 1 {
		t.Errorf("expected version 1, got %d", tpl.Version)
	}
	if tpl.OwnerID != owner {
		t.Errorf("expected owner %s, got %s", owner, tpl.OwnerID)
	}
	if len(tpl.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(tpl.Tags))
	}
	if tpl.ForkCount != 0 || tpl.FavoriteCount != 0 || tpl.UsageCount != 0 {
		t.Error("expected all counters to start at zero")
	}
}

func TestUpdateIncrementsVersion(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "original")

	updated, err := svc.Update(ctx, owner, tpl.ID, PatchRequest{Title: strPtr("renamed")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2 after first update, got %d", updated.Version)
	}
	if updated.Title != "renamed" {
		t.Errorf("expected title renamed, got %q", updated.Title)
	}

	updated, err = svc.Update(ctx, owner, tpl.ID, PatchRequest{Description: strPtr("v2")})
	if err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	if updated.Version != 3 {
		t.Errorf("expected version 3 after second update, got %d", updated.Version)
	}
	if updated.Title != "renamed" {
		t.Errorf("untouched field changed: title %q", updated.Title)
	}
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "mine")

	_, err := svc.Update(ctx, uuid.New(), tpl.ID, PatchRequest{Title: strPtr("stolen")})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-owner update, got %v", err)
	}

	got, err := svc.Get(ctx, tpl.ID, ReadOptions{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "mine" || got.Version != 1 {
		t.Error("rejected update must leave the template unchanged")
	}
}

func TestUpdateRejectsEmptyTitle(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "kept")

	var ve *ValidationError
	_, err := svc.Update(context.Background(), owner, tpl.ID, PatchRequest{Title: strPtr("   ")})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for blank title patch, got %v", err)
	}
}

func TestDeleteHidesTemplate(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "doomed")

	if err := svc.Delete(ctx, owner, tpl.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.Get(ctx, tpl.ID, ReadOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted template, got %v", err)
	}

	other := uuid.New()
	_, err := svc.Get(ctx, tpl.ID, ReadOptions{Requester: &other, IncludeDeleted: true})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner audit read, got %v", err)
	}

	// Owner can still audit the deleted row; the read is not counted as usage.
	got, err := svc.Get(ctx, tpl.ID, ReadOptions{Requester: &owner, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("owner audit read failed: %v", err)
	}
	if !got.DeletedAt.Valid {
		t.Error("audit read should expose the deletion timestamp")
	}
	if got.UsageCount != 0 {
		t.Errorf("audit read must not bump usage, got %d", got.UsageCount)
	}

	// The row survives physically.
	var raw models.Template
	if err := db.Unscoped().Where("id = ?", tpl.ID).First(&raw).Error; err != nil {
		t.Fatalf("soft-deleted row should remain in storage: %v", err)
	}
}

func TestDeleteRejectsNonOwner(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "safe")

	err := svc.Delete(context.Background(), uuid.New(), tpl.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGetRecordsUsage(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "popular")

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, tpl.ID, ReadOptions{}); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	reloaded, err := svc.Get(ctx, tpl.ID, ReadOptions{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if reloaded.UsageCount != 3 {
		t.Errorf("expected usage count 3 before this read, got %d", reloaded.UsageCount)
	}

	var events int64
	if err := db.Model(&models.UsageEvent{}).Where("action = ?", analytics.ActionView).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 4 {
		t.Errorf("expected 4 view events, got %d", events)
	}
}

func TestCloneProperties(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	origin := mustCreate(t, svc, alice, "base prompt")
	if _, err := svc.Publish(ctx, alice, origin.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	clone, err := svc.Clone(ctx, &bob, origin.ID, CloneRequest{
		Title:  strPtr("my copy"),
		Config: json.RawMessage(`{"temperature":0.2}`),
	})
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if clone.ID == origin.ID {
		t.Error("clone must get a fresh identity")
	}
	if clone.OwnerID != bob {
		t.Errorf("clone owner is %s, want %s", clone.OwnerID, bob)
	}
	if clone.Status != models.TplStatusDraft || clone.IsPublic {
		t.Error("clone must start as a private draft")
	}
	if clone.Version != 1 {
		t.Errorf("clone version should reset to 1, got %d", clone.Version)
	}
	if clone.ParentID == nil || *clone.ParentID != origin.ID {
		t.Error("clone must reference the origin as parent")
	}
	if len(clone.Tags) != len(origin.Tags) {
		t.Errorf("clone should copy origin tags, got %d want %d", len(clone.Tags), len(origin.Tags))
	}

	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(clone.ConfigJSON), &cfg); err != nil {
		t.Fatalf("clone config is not valid JSON: %v", err)
	}
	if cfg["temperature"] != 0.2 {
		t.Errorf("override key should win, got %v", cfg["temperature"])
	}
	if cfg["model"] != "base" {
		t.Errorf("non-overridden key should inherit, got %v", cfg["model"])
	}

	// Cloning never touches fork lineage.
	count, err := svc.Ledger().ForkCount(ctx, origin.ID)
	if err != nil {
		t.Fatalf("ForkCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("clone must not move the fork counter, got %d", count)
	}
}

func TestCloneMissingOriginLeavesNoTrace(t *testing.T) {
	svc, db := setupService(t)
	bob := uuid.New()

	_, err := svc.Clone(context.Background(), &bob, uuid.New(), CloneRequest{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing origin, got %v", err)
	}

	var templates int64
	if err := db.Model(&models.Template{}).Count(&templates).Error; err != nil {
		t.Fatalf("count templates: %v", err)
	}
	if templates != 0 {
		t.Errorf("failed clone must not create rows, found %d", templates)
	}
}

func TestCloneRequiresPrincipal(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "public thing")

	_, err := svc.Clone(context.Background(), nil, tpl.ID, CloneRequest{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for anonymous clone, got %v", err)
	}
}

func TestForkProperties(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	origin := mustCreate(t, svc, alice, "forkable")
	if _, err := svc.Publish(ctx, alice, origin.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	forked, err := svc.Fork(ctx, &bob, origin.ID)
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}

	if forked.OwnerID != bob {
		t.Errorf("fork owner is %s, want %s", forked.OwnerID, bob)
	}
	if forked.Status != models.TplStatusDraft || forked.IsPublic {
		t.Error("fork must start as a private draft")
	}
	if forked.Version != 1 {
		t.Errorf("fork version should reset to 1, got %d", forked.Version)
	}
	if forked.ParentID == nil || *forked.ParentID != origin.ID {
		t.Error("fork must reference the origin as parent")
	}
	if forked.ConfigJSON != origin.ConfigJSON {
		t.Error("fork must copy the origin config verbatim")
	}

	count, err := svc.Ledger().ForkCount(ctx, origin.ID)
	if err != nil {
		t.Fatalf("ForkCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected origin fork count 1, got %d", count)
	}

	var record models.Fork
	if err := db.Where("forked_id = ?", forked.ID).First(&record).Error; err != nil {
		t.Fatalf("fork record missing: %v", err)
	}
	if record.OriginID != origin.ID || record.UserID != bob {
		t.Error("fork record has wrong endpoints")
	}
}

func TestForkRequiresPrincipal(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "public thing")

	_, err := svc.Fork(context.Background(), nil, tpl.ID)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for anonymous fork, got %v", err)
	}
}

func TestPublishUnpublish(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	tpl := mustCreate(t, svc, owner, "draft")

	published, err := svc.Publish(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if published.Status != models.TplStatusPublished || !published.IsPublic {
		t.Error("publish should set published status and public listing")
	}

	// Publishing again is a no-op.
	again, err := svc.Publish(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("repeat Publish failed: %v", err)
	}
	if again.Status != models.TplStatusPublished {
		t.Error("repeat publish should keep published status")
	}

	reverted, err := svc.Unpublish(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	if reverted.Status != models.TplStatusDraft || reverted.IsPublic {
		t.Error("unpublish should revert to a private draft")
	}
}

func TestFavoriteRoundTrip(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	owner := uuid.New()
	fan := uuid.New()
	tpl := mustCreate(t, svc, owner, "nice")

	status, err := svc.Favorite(ctx, fan, tpl.ID)
	if err != nil {
		t.Fatalf("Favorite failed: %v", err)
	}
	if !status.IsFavorite || status.FavoriteCount != 1 {
		t.Errorf("after favorite: %+v", status)
	}

	// Repeat favoriting never double-counts.
	status, err = svc.Favorite(ctx, fan, tpl.ID)
	if err != nil {
		t.Fatalf("repeat Favorite failed: %v", err)
	}
	if status.FavoriteCount != 1 {
		t.Errorf("expected count 1 after repeat favorite, got %d", status.FavoriteCount)
	}

	status, err = svc.Unfavorite(ctx, fan, tpl.ID)
	if err != nil {
		t.Fatalf("Unfavorite failed: %v", err)
	}
	if status.IsFavorite || status.FavoriteCount != 0 {
		t.Errorf("after unfavorite: %+v", status)
	}

	// Anonymous status read reports membership false.
	status, err = svc.GetFavoriteStatus(ctx, nil, tpl.ID)
	if err != nil {
		t.Fatalf("GetFavoriteStatus failed: %v", err)
	}
	if status.IsFavorite {
		t.Error("anonymous caller can never have a favorite membership")
	}
}

func TestListReturnsOwnTemplatesOnly(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	mustCreate(t, svc, alice, "a1")
	mustCreate(t, svc, alice, "a2")
	mustCreate(t, svc, bob, "b1")

	templates, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates for alice, got %d", len(templates))
	}
	for _, tpl := range templates {
		if tpl.OwnerID != alice {
			t.Errorf("listed a template owned by %s", tpl.OwnerID)
		}
	}
}
