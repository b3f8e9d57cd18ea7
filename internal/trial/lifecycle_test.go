package trial

import (
	"context"
	"errors"
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
	if errMigrate := db.AutoMigrate(&models.Seller{}, &models.Store{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func seedStore(t *testing.T, db *gorm.DB) *models.Store {
	t.Helper()
	seller := models.Seller{Email: "seller@example.com", Password: "x"}
	if errCreate := db.Create(&seller).Error; errCreate != nil {
		t.Fatalf("create seller: %v", errCreate)
	}
	store := models.Store{
		SellerID:               seller.ID,
		Name:                   "Corner Shop",
		SubscriptionPlan:       models.PlanFreemium,
		HighlightWeight:        1,
		TrialNotificationsSent: []byte("{}"),
	}
	if errCreate := db.Create(&store).Error; errCreate != nil {
		t.Fatalf("create store: %v", errCreate)
	}
	return &store
}

func TestActivate_SetsWindowAndWeight(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	now := time.Now().UTC()
	manager := NewManager(db, func() time.Time { return now })

	activated, err := manager.Activate(context.Background(), store.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.IsInTrial {
		t.Fatalf("expected trial active")
	}
	if activated.SubscriptionPlan != models.PlanFreemium {
		t.Fatalf("trial must not change the stored plan, got %q", activated.SubscriptionPlan)
	}
	if activated.HighlightWeight != 2 {
		t.Fatalf("expected highlight weight 2, got %v", activated.HighlightWeight)
	}
	wantEnd := now.Add(Duration)
	if activated.TrialEndDate == nil || absDuration(activated.TrialEndDate.Sub(wantEnd)) > time.Second {
		t.Fatalf("expected trial end %s, got %v", wantEnd, activated.TrialEndDate)
	}
}

func TestActivate_SecondCallRejected(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)
	manager := NewManager(db, nil)

	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if _, err := manager.Activate(context.Background(), store.ID); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestActivate_RejectedAfterExpiredTrial(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	past := time.Now().UTC().Add(-30 * 24 * time.Hour)
	manager := NewManager(db, func() time.Time { return past })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	sweeper := NewSweeper(db, nil, nil, nil)
	if errSweep := sweeper.SweepExpirations(context.Background()); errSweep != nil {
		t.Fatalf("expire: %v", errSweep)
	}

	// The trial flag is gone but trial_used stays set, so no second window.
	current := NewManager(db, nil)
	if _, err := current.Activate(context.Background(), store.ID); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed after expiry, got %v", err)
	}
}

func TestActivate_MissingStore(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db, nil)
	if _, err := manager.Activate(context.Background(), 404); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestConvertToPaid(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)
	manager := NewManager(db, nil)

	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	converted, err := manager.ConvertToPaid(context.Background(), store.SellerID, store.ID, 3, "sub_123")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converted.IsInTrial {
		t.Fatalf("expected trial cleared after conversion")
	}
	if converted.SubscriptionPlan != models.PlanPro {
		t.Fatalf("expected plan pro, got %q", converted.SubscriptionPlan)
	}
	if converted.HighlightWeight != 4 {
		t.Fatalf("expected weight 4, got %v", converted.HighlightWeight)
	}
	if converted.SubscriptionStatus != models.SubscriptionStatusActive {
		t.Fatalf("expected active status, got %q", converted.SubscriptionStatus)
	}
	if converted.ExternalSubscriptionID != "sub_123" {
		t.Fatalf("expected external id recorded, got %q", converted.ExternalSubscriptionID)
	}
}

func TestConvertToPaid_InvalidPlan(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)
	manager := NewManager(db, nil)
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := manager.ConvertToPaid(context.Background(), store.SellerID, store.ID, 9, "sub"); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestConvertToPaid_RequiresActiveTrial(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)
	manager := NewManager(db, nil)
	if _, err := manager.ConvertToPaid(context.Background(), store.SellerID, store.ID, 2, "sub"); !errors.Is(err, ErrNoActiveTrial) {
		t.Fatalf("expected ErrNoActiveTrial, got %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	now := time.Now().UTC()
	manager := NewManager(db, func() time.Time { return now })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	later := NewManager(db, func() time.Time { return now.Add(10 * 24 * time.Hour) })
	status, err := later.StatusFor(context.Background(), store.SellerID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Active || !status.Used {
		t.Fatalf("expected active used trial, got %+v", status)
	}
	if status.DaysRemaining != 5 {
		t.Fatalf("expected 5 days remaining, got %d", status.DaysRemaining)
	}
	if status.Limits.MaxProducts != -1 {
		t.Fatalf("expected unlimited products during trial, got %d", status.Limits.MaxProducts)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
