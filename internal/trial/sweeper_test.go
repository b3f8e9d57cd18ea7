package trial

import (
	"context"
	"testing"
	"time"

	"github.com/mercato-local/marketplace/internal/models"
)

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) Notify(_ context.Context, store *models.Store, stage string, _ int) error {
	n.calls = append(n.calls, stage)
	return nil
}

func TestSweepExpirations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	start := time.Now().UTC().Add(-20 * 24 * time.Hour)
	manager := NewManager(db, func() time.Time { return start })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	sweeper := NewSweeper(db, nil, nil, nil)
	if errSweep := sweeper.SweepExpirations(context.Background()); errSweep != nil {
		t.Fatalf("first pass: %v", errSweep)
	}

	var downgraded models.Store
	if errFind := db.First(&downgraded, store.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if downgraded.IsInTrial {
		t.Fatalf("expected trial cleared")
	}
	if downgraded.HighlightWeight != 1 {
		t.Fatalf("expected weight 1 after downgrade, got %v", downgraded.HighlightWeight)
	}
	if downgraded.SubscriptionPlan != models.PlanFreemium {
		t.Fatalf("expected freemium after downgrade, got %q", downgraded.SubscriptionPlan)
	}
	firstUpdate := downgraded.UpdatedAt

	if errSweep := sweeper.SweepExpirations(context.Background()); errSweep != nil {
		t.Fatalf("second pass: %v", errSweep)
	}
	var untouched models.Store
	if errFind := db.First(&untouched, store.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if !untouched.UpdatedAt.Equal(firstUpdate) {
		t.Fatalf("second pass must be a no-op")
	}
}

func TestSweepNotifications_AtMostOncePerStage(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	start := time.Now().UTC()
	manager := NewManager(db, func() time.Time { return start })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// 8 days into the trial: 7 whole days remain, only day7 should fire.
	sweepTime := start.Add(8 * 24 * time.Hour)
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(db, notifier, nil, func() time.Time { return sweepTime })

	if errSweep := sweeper.SweepNotifications(context.Background()); errSweep != nil {
		t.Fatalf("first pass: %v", errSweep)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != StageDay7 {
		t.Fatalf("expected exactly [day7], got %v", notifier.calls)
	}

	if errSweep := sweeper.SweepNotifications(context.Background()); errSweep != nil {
		t.Fatalf("second pass: %v", errSweep)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected no repeat delivery, got %v", notifier.calls)
	}
}

func TestSweepNotifications_LateSweepCatchesUpStages(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	start := time.Now().UTC()
	manager := NewManager(db, func() time.Time { return start })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Final half-day of the trial: all four stage thresholds are crossed.
	sweepTime := start.Add(Duration - 12*time.Hour)
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(db, notifier, nil, func() time.Time { return sweepTime })

	if errSweep := sweeper.SweepNotifications(context.Background()); errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}
	if len(notifier.calls) != 4 {
		t.Fatalf("expected all four stages, got %v", notifier.calls)
	}

	if errSweep := sweeper.SweepNotifications(context.Background()); errSweep != nil {
		t.Fatalf("repeat sweep: %v", errSweep)
	}
	if len(notifier.calls) != 4 {
		t.Fatalf("expected no repeats, got %v", notifier.calls)
	}
}

func TestSweepNotifications_SkipsExpiredTrials(t *testing.T) {
	db := openTestDB(t)
	store := seedStore(t, db)

	start := time.Now().UTC().Add(-20 * 24 * time.Hour)
	manager := NewManager(db, func() time.Time { return start })
	if _, err := manager.Activate(context.Background(), store.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	notifier := &recordingNotifier{}
	sweeper := NewSweeper(db, notifier, nil, nil)
	if errSweep := sweeper.SweepNotifications(context.Background()); errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("expired trials must not notify, got %v", notifier.calls)
	}
}
