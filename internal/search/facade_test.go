package search

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSearch(t *testing.T) (*Facade, *gorm.DB) {
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
		&models.Template{},
		&models.TemplateTag{},
		&models.UsageEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	facade := NewFacade(NewStoreIndex(db), analytics.NewStoreRecorder(db), 10, 5)
	return facade, db
}

func seedTemplate(t *testing.T, db *gorm.DB, title string, published bool, usage int64, tags ...string) *models.Template {
	t.Helper()
	tpl := models.Template{
		OwnerID:    uuid.New(),
		Title:      title,
		Status:     models.TplStatusDraft,
		ConfigJSON: "{}",
		UsageCount: usage,
	}
	if published {
		tpl.Status = models.TplStatusPublished
		tpl.IsPublic = true
	}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	for _, tag := range tags {
		if err := db.Create(&models.TemplateTag{TemplateID: tpl.ID, Tag: tag}).Error; err != nil {
			t.Fatalf("failed to seed tag: %v", err)
		}
	}
	return &tpl
}

func TestSearchRejectsShortQuery(t *testing.T) {
	facade, _ := setupSearch(t)
	ctx := context.Background()

	// "é" is one character even though it is two bytes.
	for _, q := range []string{"", "a", "  a  ", " \t ", "é"} {
		_, err := facade.Search(ctx, nil, q, 10)
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("query %q: expected ErrInvalidQuery, got %v", q, err)
		}
	}

	for _, q := range []string{"ab", "éé"} {
		if _, err := facade.Search(ctx, nil, q, 10); err != nil {
			t.Errorf("two-character query %q should be accepted, got %v", q, err)
		}
	}
}

func TestSearchOnlyPublishedPublic(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	seedTemplate(t, db, "chatbot published", true, 0)
	seedTemplate(t, db, "chatbot draft", false, 0)
	deleted := seedTemplate(t, db, "chatbot removed", true, 0)
	if err := db.Delete(&models.Template{}, "id = ?", deleted.ID).Error; err != nil {
		t.Fatalf("failed to soft-delete: %v", err)
	}

	results, err := facade.Search(ctx, nil, "chatbot", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "chatbot published" {
		t.Errorf("unexpected result %q", results[0].Title)
	}
}

func TestSearchMatchesTags(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	seedTemplate(t, db, "untitled thing", true, 0, "summarization")
	seedTemplate(t, db, "other thing", true, 0, "translation")

	results, err := facade.Search(ctx, nil, "summar", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "untitled thing" {
		t.Fatalf("tag match failed: %d results", len(results))
	}
}

func TestSearchOrdersByUsage(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	seedTemplate(t, db, "agent low", true, 1)
	seedTemplate(t, db, "agent high", true, 100)
	seedTemplate(t, db, "agent mid", true, 10)

	results, err := facade.Search(ctx, nil, "agent", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title != "agent high" || results[2].Title != "agent low" {
		t.Errorf("results not ordered by usage: %q, %q, %q",
			results[0].Title, results[1].Title, results[2].Title)
	}
}

func TestSearchBoundsLimit(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		seedTemplate(t, db, "crowded space", true, 0)
	}

	// Over the max: clamped to 10.
	results, err := facade.Search(ctx, nil, "crowded", 500)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 10 {
		t.Errorf("expected max limit 10, got %d results", len(results))
	}

	// Omitted: default of 5.
	results, err = facade.Search(ctx, nil, "crowded", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected default limit 5, got %d results", len(results))
	}
}

func TestSearchRecordsEventForIdentifiedActor(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	seedTemplate(t, db, "tracked template", true, 0)

	if _, err := facade.Search(ctx, nil, "tracked", 10); err != nil {
		t.Fatalf("anonymous Search failed: %v", err)
	}
	actor := uuid.New()
	if _, err := facade.Search(ctx, &actor, "tracked", 10); err != nil {
		t.Fatalf("identified Search failed: %v", err)
	}

	var events []models.UsageEvent
	if err := db.Where("action = ?", analytics.ActionSearch).Find(&events).Error; err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 search event, got %d", len(events))
	}
	if events[0].UserID == nil || *events[0].UserID != actor {
		t.Error("search event should carry the actor id")
	}
}

func TestPopularTags(t *testing.T) {
	facade, db := setupSearch(t)
	ctx := context.Background()

	seedTemplate(t, db, "one", true, 0, "chat", "code")
	seedTemplate(t, db, "two", true, 0, "chat")
	seedTemplate(t, db, "three", false, 0, "chat") // draft, excluded

	tags, err := facade.PopularTags(ctx, 10)
	if err != nil {
		t.Fatalf("PopularTags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Tag != "chat" || tags[0].Count != 2 {
		t.Errorf("expected chat with count 2 first, got %+v", tags[0])
	}
	if tags[1].Tag != "code" || tags[1].Count != 1 {
		t.Errorf("expected code with count 1 second, got %+v", tags[1])
	}
}
