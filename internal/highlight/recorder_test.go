package highlight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mercato-local/marketplace/internal/antispam"
	"github.com/mercato-local/marketplace/internal/models"
)

func memoryOnlyManager(nowFn func() time.Time) *antispam.Manager {
	provider := func() antispam.SettingsConfig { return antispam.SettingsConfig{} }
	return antispam.NewManager(provider, nowFn, nil)
}

func TestRecord_SuppressesWithinWindow(t *testing.T) {
	db := openTestDB(t)
	store := seedStoreWithProduct(t, db, "seller@example.com", "Shop", models.PlanFreemium, 1, 0)

	now := time.Unix(1_700_000_100, 0).UTC()
	recorder := NewRecorder(db, memoryOnlyManager(func() time.Time { return now }), func() time.Time { return now })

	recorded, err := recorder.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9")
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !recorded {
		t.Fatalf("expected first impression recorded")
	}

	recorded, err = recorder.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9")
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if recorded {
		t.Fatalf("expected duplicate suppressed")
	}

	var count int64
	if errCount := db.Model(&models.HighlightImpression{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected exactly one stored row, got %d", count)
	}
}

func TestRecord_NewWindowRecordsAgain(t *testing.T) {
	db := openTestDB(t)
	store := seedStoreWithProduct(t, db, "seller@example.com", "Shop", models.PlanFreemium, 1, 0)

	current := time.Unix(1_700_000_100, 0).UTC()
	nowFn := func() time.Time { return current }
	recorder := NewRecorder(db, memoryOnlyManager(nowFn), nowFn)

	if _, err := recorder.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9"); err != nil {
		t.Fatalf("first record: %v", err)
	}

	current = current.Add(antispam.Window + time.Minute)
	recorded, err := recorder.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9")
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if !recorded {
		t.Fatalf("expected impression in new window recorded")
	}

	var count int64
	if errCount := db.Model(&models.HighlightImpression{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 2 {
		t.Fatalf("expected two stored rows, got %d", count)
	}
}

func TestRecord_UpdatesStoreCounters(t *testing.T) {
	db := openTestDB(t)
	store := seedStoreWithProduct(t, db, "seller@example.com", "Shop", models.PlanFreemium, 1, 0)

	now := time.Unix(1_700_000_100, 0).UTC()
	recorder := NewRecorder(db, memoryOnlyManager(func() time.Time { return now }), func() time.Time { return now })

	product := uint64(0)
	var firstProduct models.Product
	if errFind := db.Where("store_id = ?", store.ID).First(&firstProduct).Error; errFind != nil {
		t.Fatalf("find product: %v", errFind)
	}
	product = firstProduct.ID

	if _, err := recorder.Record(context.Background(), store.ID, &product, "featured", nil, "203.0.113.9"); err != nil {
		t.Fatalf("record: %v", err)
	}

	var updated models.Store
	if errFind := db.First(&updated, store.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if updated.TotalHighlightImpressions != 1 {
		t.Fatalf("expected counter 1, got %d", updated.TotalHighlightImpressions)
	}
	if updated.LastHighlightedAt == nil || !updated.LastHighlightedAt.Equal(now) {
		t.Fatalf("expected last_highlighted_at=%s, got %v", now, updated.LastHighlightedAt)
	}
}

// A process restart empties the in-memory limiter; the unique bucket column
// must still suppress the duplicate.
func TestRecord_DBBackstopAfterRestart(t *testing.T) {
	db := openTestDB(t)
	store := seedStoreWithProduct(t, db, "seller@example.com", "Shop", models.PlanFreemium, 1, 0)

	now := time.Unix(1_700_000_100, 0).UTC()
	first := NewRecorder(db, memoryOnlyManager(func() time.Time { return now }), func() time.Time { return now })
	if _, err := first.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9"); err != nil {
		t.Fatalf("first record: %v", err)
	}

	restarted := NewRecorder(db, memoryOnlyManager(func() time.Time { return now }), func() time.Time { return now })
	recorded, err := restarted.Record(context.Background(), store.ID, nil, "featured", nil, "203.0.113.9")
	if err != nil {
		t.Fatalf("record after restart: %v", err)
	}
	if recorded {
		t.Fatalf("expected DB backstop to suppress duplicate")
	}

	var updated models.Store
	if errFind := db.First(&updated, store.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if updated.TotalHighlightImpressions != 1 {
		t.Fatalf("expected counter unchanged at 1, got %d", updated.TotalHighlightImpressions)
	}
}

func TestRecord_UnknownStore(t *testing.T) {
	db := openTestDB(t)
	recorder := NewRecorder(db, nil, nil)
	if _, err := recorder.Record(context.Background(), 404, nil, "featured", nil, ""); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestDailyImpressionCounts(t *testing.T) {
	db := openTestDB(t)
	store := seedStoreWithProduct(t, db, "seller@example.com", "Shop", models.PlanFreemium, 1, 0)

	base := time.Now().UTC().Add(-2 * 24 * time.Hour)
	rows := []models.HighlightImpression{
		{StoreID: store.ID, Section: "featured", Bucket: "b1", CreatedAt: base},
		{StoreID: store.ID, Section: "featured", Bucket: "b2", CreatedAt: base.Add(time.Hour)},
		{StoreID: store.ID, Section: "new-arrivals", Bucket: "b3", CreatedAt: base.Add(24 * time.Hour)},
	}
	for i := range rows {
		if errCreate := db.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("create impression: %v", errCreate)
		}
	}

	counts, err := DailyImpressionCounts(context.Background(), db, store.ID, 7)
	if err != nil {
		t.Fatalf("daily counts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 aggregate rows, got %+v", counts)
	}
	if counts[0].Count != 2 || counts[0].Section != "featured" {
		t.Fatalf("expected 2 featured impressions on day one, got %+v", counts[0])
	}
}
