package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/plans"

	"gorm.io/gorm"
)

// Duration is the trial window length.
const Duration = 15 * 24 * time.Hour

// ErrAlreadyUsed indicates the store has already consumed its trial.
var ErrAlreadyUsed = errors.New("trial: already used")

// ErrNoActiveTrial indicates no trial-active store matched the request.
var ErrNoActiveTrial = errors.New("trial: no active trial")

// ErrInvalidPlan indicates an unmapped checkout plan identifier.
var ErrInvalidPlan = errors.New("trial: invalid plan")

// Manager drives trial state transitions on stores.
type Manager struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewManager constructs a Manager. A nil nowFn defaults to time.Now.
func NewManager(db *gorm.DB, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{db: db, nowFn: nowFn}
}

// Activate starts the trial overlay on a store. The transition is guarded by
// a conditional update so double invocation is a rejected no-op rather than a
// window reset: only a store that has never used its trial can activate one.
// The subscription plan is left untouched; the trial is an overlay.
func (m *Manager) Activate(ctx context.Context, storeID uint64) (*models.Store, error) {
	now := m.nowFn().UTC()
	end := now.Add(Duration)

	res := m.db.WithContext(ctx).Model(&models.Store{}).
		Where("id = ? AND is_in_trial = ? AND trial_used = ?", storeID, false, false).
		Updates(map[string]any{
			"is_in_trial":              true,
			"trial_used":               true,
			"trial_start_date":         now,
			"trial_end_date":           end,
			"highlight_weight":         plans.TrialLimits().HighlightWeight,
			"trial_notifications_sent": "{}",
			"updated_at":               now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("trial: activate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var store models.Store
		if errFind := m.db.WithContext(ctx).First(&store, storeID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return nil, gorm.ErrRecordNotFound
			}
			return nil, fmt.Errorf("trial: activate lookup: %w", errFind)
		}
		return nil, ErrAlreadyUsed
	}

	var store models.Store
	if errFind := m.db.WithContext(ctx).First(&store, storeID).Error; errFind != nil {
		return nil, fmt.Errorf("trial: activate reload: %w", errFind)
	}
	return &store, nil
}

// ConvertToPaid ends the trial by moving the store onto a paid plan. The
// store must currently be trial-active and owned by the seller. Checkout plan
// identifiers map 2/3/4 to start/pro/premium with weights 3/4/5.
func (m *Manager) ConvertToPaid(ctx context.Context, sellerID, storeID uint64, checkoutPlanID int, externalSubscriptionID string) (*models.Store, error) {
	planName, ok := plans.FromCheckoutID(checkoutPlanID)
	if !ok {
		return nil, ErrInvalidPlan
	}

	now := m.nowFn().UTC()
	res := m.db.WithContext(ctx).Model(&models.Store{}).
		Where("id = ? AND seller_id = ? AND is_in_trial = ?", storeID, sellerID, true).
		Updates(map[string]any{
			"is_in_trial":              false,
			"subscription_plan":        planName,
			"subscription_status":      models.SubscriptionStatusActive,
			"external_subscription_id": externalSubscriptionID,
			"subscription_started_at":  now,
			"highlight_weight":         plans.LimitsFor(planName).HighlightWeight,
			"updated_at":               now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("trial: convert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoActiveTrial
	}

	var store models.Store
	if errFind := m.db.WithContext(ctx).First(&store, storeID).Error; errFind != nil {
		return nil, fmt.Errorf("trial: convert reload: %w", errFind)
	}
	return &store, nil
}

// Status summarizes the trial state of a store for the status endpoint.
type Status struct {
	Active         bool    // Whether the trial overlay is currently active.
	Used           bool    // Whether a trial was ever activated.
	DaysRemaining  int     // Whole days remaining, 0 on the final day.
	HoursRemaining float64 // Fractional hours remaining.
	EndsAt         *time.Time
	Limits         plans.Limits // Effective limits right now.
}

// StatusFor reports the trial state of the seller's first store.
func (m *Manager) StatusFor(ctx context.Context, sellerID uint64) (Status, error) {
	var store models.Store
	if errFind := m.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("id ASC").First(&store).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Status{}, gorm.ErrRecordNotFound
		}
		return Status{}, fmt.Errorf("trial: status lookup: %w", errFind)
	}

	now := m.nowFn().UTC()
	status := Status{Used: store.TrialUsed, Limits: plans.LimitsFor(store.SubscriptionPlan)}
	if store.TrialActive(now) {
		remaining := store.TrialEndDate.Sub(now)
		status.Active = true
		status.DaysRemaining = int(remaining / (24 * time.Hour))
		status.HoursRemaining = remaining.Hours()
		status.EndsAt = store.TrialEndDate
		status.Limits = plans.TrialLimits()
	}
	return status, nil
}
