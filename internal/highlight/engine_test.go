package highlight

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mercato-local/marketplace/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(
		&models.Seller{}, &models.Store{}, &models.Product{},
		&models.HighlightConfiguration{}, &models.HighlightImpression{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func seedSeller(t *testing.T, db *gorm.DB, email string) *models.Seller {
	t.Helper()
	seller := models.Seller{Email: email, Password: "x"}
	if errCreate := db.Create(&seller).Error; errCreate != nil {
		t.Fatalf("create seller: %v", errCreate)
	}
	return &seller
}

func seedStoreWithProduct(t *testing.T, db *gorm.DB, email, name, plan string, weight float64, impressions int64) *models.Store {
	t.Helper()
	seller := seedSeller(t, db, email)
	store := models.Store{
		SellerID:                  seller.ID,
		Name:                      name,
		SubscriptionPlan:          plan,
		IsOpen:                    true,
		HighlightWeight:           weight,
		TotalHighlightImpressions: impressions,
		TrialNotificationsSent:    []byte("{}"),
	}
	if errCreate := db.Create(&store).Error; errCreate != nil {
		t.Fatalf("create store: %v", errCreate)
	}
	product := models.Product{StoreID: store.ID, Name: name + " product", Category: "food", IsActive: true}
	if errCreate := db.Create(&product).Error; errCreate != nil {
		t.Fatalf("create product: %v", errCreate)
	}
	return &store
}

func seedConfig(t *testing.T, db *gorm.DB, tier string, sortOrder int, sections string) {
	t.Helper()
	config := models.HighlightConfiguration{
		PlanType:  tier,
		Sections:  []byte(sections),
		SortOrder: sortOrder,
		IsActive:  true,
	}
	if errCreate := db.Create(&config).Error; errCreate != nil {
		t.Fatalf("create config: %v", errCreate)
	}
}

func TestCalculatedWeight_Floor(t *testing.T) {
	cases := []struct {
		base        float64
		impressions int64
		want        float64
	}{
		{1, 0, 1},
		{1, 500, 0.5},
		{1, 2000, 0.5}, // penalty capped at 0.5
		{5, 2000, 4.5},
		{0.2, 1_000_000, 0.1}, // floored
		{0, 0, 1},             // zero base defaults to 1
	}
	for _, tc := range cases {
		got := CalculatedWeight(tc.base, tc.impressions)
		if got != tc.want {
			t.Fatalf("CalculatedWeight(%v, %d) = %v, expected %v", tc.base, tc.impressions, got, tc.want)
		}
		if got < 0.1 {
			t.Fatalf("weight %v below floor", got)
		}
	}
}

func TestDistribute_TierMatchingAndPenalty(t *testing.T) {
	db := openTestDB(t)

	free := seedStoreWithProduct(t, db, "free@example.com", "Free Store", models.PlanFreemium, 1, 0)
	premium := seedStoreWithProduct(t, db, "prem@example.com", "Premium Store", models.PlanPremium, 5, 2000)

	seedConfig(t, db, models.PlanPremium, 40, `[{"name":"featured","slots":5,"max_display":10}]`)
	seedConfig(t, db, models.PlanFreemium, 10, `[{"name":"featured","slots":2,"max_display":10},{"name":"new-arrivals","slots":2,"max_display":6}]`)

	engine := NewEngine(db, nil)
	dist, err := engine.Distribute(context.Background())
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if dist.TotalSections != 2 {
		t.Fatalf("expected 2 sections, got %d", dist.TotalSections)
	}

	featured := dist.Sections["featured"]
	if len(featured) != 2 {
		t.Fatalf("expected both stores in featured, got %+v", featured)
	}

	weights := map[uint64]float64{}
	for _, placement := range featured {
		weights[placement.StoreID] = placement.CalculatedWeight
	}
	if weights[premium.ID] != 4.5 {
		t.Fatalf("expected premium weight 4.5 (base 5, capped penalty 0.5), got %v", weights[premium.ID])
	}
	if weights[free.ID] != 1 {
		t.Fatalf("expected freemium weight 1, got %v", weights[free.ID])
	}

	// Premium's tier is processed first, so it leads the accumulated section.
	if featured[0].StoreID != premium.ID {
		t.Fatalf("expected premium first in featured, got store %d", featured[0].StoreID)
	}

	arrivals := dist.Sections["new-arrivals"]
	if len(arrivals) != 1 || arrivals[0].StoreID != free.ID {
		t.Fatalf("expected only the freemium store in new-arrivals, got %+v", arrivals)
	}
}

func TestDistribute_TrialTierMatchesOverlayNotPlan(t *testing.T) {
	db := openTestDB(t)

	trialStore := seedStoreWithProduct(t, db, "trial@example.com", "Trial Store", models.PlanFreemium, 2, 0)
	end := time.Now().UTC().Add(5 * 24 * time.Hour)
	if errUpdate := db.Model(trialStore).Updates(map[string]any{"is_in_trial": true, "trial_end_date": end}).Error; errUpdate != nil {
		t.Fatalf("update store: %v", errUpdate)
	}
	seedStoreWithProduct(t, db, "paid@example.com", "Paid Store", models.PlanPro, 4, 0)

	seedConfig(t, db, models.TierTrial, 20, `[{"name":"rising","slots":3,"max_display":6}]`)

	engine := NewEngine(db, nil)
	dist, err := engine.Distribute(context.Background())
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	rising := dist.Sections["rising"]
	if len(rising) != 1 || rising[0].StoreID != trialStore.ID {
		t.Fatalf("expected only the trial store in rising, got %+v", rising)
	}
}

func TestDistribute_RecencyFairnessBeatsWeight(t *testing.T) {
	db := openTestDB(t)

	heavy := seedStoreWithProduct(t, db, "a@example.com", "Heavy", models.PlanPro, 4, 0)
	stale := seedStoreWithProduct(t, db, "b@example.com", "Stale", models.PlanPro, 1, 0)

	now := time.Now().UTC()
	recent := now.Add(-time.Hour)
	old := now.Add(-10 * time.Hour)
	if errUpdate := db.Model(heavy).Update("last_highlighted_at", recent).Error; errUpdate != nil {
		t.Fatalf("update heavy: %v", errUpdate)
	}
	if errUpdate := db.Model(stale).Update("last_highlighted_at", old).Error; errUpdate != nil {
		t.Fatalf("update stale: %v", errUpdate)
	}

	seedConfig(t, db, models.PlanPro, 30, `[{"name":"featured","slots":2,"max_display":10}]`)

	engine := NewEngine(db, func() time.Time { return now })
	dist, err := engine.Distribute(context.Background())
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	featured := dist.Sections["featured"]
	if len(featured) != 2 {
		t.Fatalf("expected 2 placements, got %+v", featured)
	}
	if featured[0].StoreID != stale.ID {
		t.Fatalf("expected the staler store first despite lower weight, got store %d", featured[0].StoreID)
	}
}

func TestDistribute_ClosedStoresAndInactiveProductsExcluded(t *testing.T) {
	db := openTestDB(t)

	closed := seedStoreWithProduct(t, db, "closed@example.com", "Closed", models.PlanPro, 4, 0)
	if errUpdate := db.Model(closed).Update("is_open", false).Error; errUpdate != nil {
		t.Fatalf("close store: %v", errUpdate)
	}

	inactive := seedStoreWithProduct(t, db, "inactive@example.com", "Inactive", models.PlanPro, 4, 0)
	if errUpdate := db.Model(&models.Product{}).Where("store_id = ?", inactive.ID).Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate product: %v", errUpdate)
	}

	seedConfig(t, db, models.PlanPro, 30, `[{"name":"featured","slots":5,"max_display":10}]`)

	engine := NewEngine(db, nil)
	dist, err := engine.Distribute(context.Background())
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(dist.Sections["featured"]) != 0 {
		t.Fatalf("expected no placements, got %+v", dist.Sections["featured"])
	}
}

func TestDiversify_NoAdjacentSameStore(t *testing.T) {
	entries := []Placement{
		{StoreID: 1, Category: "food"},
		{StoreID: 1, Category: "food"},
		{StoreID: 1, Category: "drinks"},
		{StoreID: 2, Category: "food"},
		{StoreID: 3, Category: "crafts"},
	}
	out := diversify(entries)
	if len(out) != len(entries) {
		t.Fatalf("diversify must not drop entries, got %d", len(out))
	}
	adjacent := 0
	for i := 1; i < len(out); i++ {
		if out[i].StoreID == out[i-1].StoreID {
			adjacent++
		}
	}
	// Three entries from store 1 out of five total: one adjacency is forced.
	if adjacent > 1 {
		t.Fatalf("expected at most 1 forced same-store adjacency, got %d in %+v", adjacent, out)
	}
}

func TestDistribute_MaxDisplayTruncates(t *testing.T) {
	db := openTestDB(t)

	for i, email := range []string{"s1@example.com", "s2@example.com", "s3@example.com"} {
		seedStoreWithProduct(t, db, email, string(rune('A'+i)), models.PlanPro, 4, 0)
	}
	seedConfig(t, db, models.PlanPro, 30, `[{"name":"featured","slots":3,"max_display":2}]`)

	engine := NewEngine(db, nil)
	dist, err := engine.Distribute(context.Background())
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(dist.Sections["featured"]) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(dist.Sections["featured"]))
	}
}
