package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription plan names, ordered freemium < start < pro < premium.
const (
	PlanFreemium = "freemium"
	PlanStart    = "start"
	PlanPro      = "pro"
	PlanPremium  = "premium"
)

// Subscription status values.
const (
	SubscriptionStatusNone   = "none"
	SubscriptionStatusActive = "active"
)

// Store represents a seller's storefront with its plan and trial state.
type Store struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SellerID uint64  `gorm:"not null;index"`         // Owning seller ID.
	Seller   *Seller `gorm:"foreignKey:SellerID"`    // Owning seller.

	Name        string `gorm:"type:varchar(255);not null"` // Store display name.
	Description string `gorm:"type:text"`                  // Store description.
	Category    string `gorm:"type:varchar(128);index"`    // Primary category.

	IsOpen bool `gorm:"not null;default:true"` // Whether the store is open for business.

	SubscriptionPlan       string     `gorm:"type:varchar(32);not null;default:'freemium';index"` // Active plan name.
	SubscriptionStatus     string     `gorm:"type:varchar(32);not null;default:'none'"`           // External subscription status.
	ExternalSubscriptionID string     `gorm:"type:varchar(255)"`                                  // Billing provider subscription ID.
	SubscriptionStartedAt  *time.Time `gorm:"type:timestamp"`                                     // Paid subscription start.

	IsInTrial      bool       `gorm:"not null;default:false;index"` // Whether a trial overlay is active.
	TrialUsed      bool       `gorm:"not null;default:false"`       // Whether a trial was ever activated.
	TrialStartDate *time.Time `gorm:"type:timestamp"`               // Trial activation timestamp.
	TrialEndDate   *time.Time `gorm:"type:timestamp;index"`         // Trial expiry timestamp.

	// TrialNotificationsSent maps notification stage name to a sent flag,
	// guaranteeing at-most-once delivery per stage.
	TrialNotificationsSent datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`

	HighlightWeight           float64    `gorm:"not null;default:1"` // Base placement weight (1-5).
	LastHighlightedAt         *time.Time `gorm:"type:timestamp"`     // Last time the store was shown in a section.
	TotalHighlightImpressions int64      `gorm:"not null;default:0"` // Lifetime impression counter.

	Products []Product `gorm:"foreignKey:StoreID"` // Store products.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TrialActive reports whether the store's trial overlay is active at t.
func (s *Store) TrialActive(t time.Time) bool {
	if s == nil || !s.IsInTrial || s.TrialEndDate == nil {
		return false
	}
	return s.TrialEndDate.After(t)
}
