package models

import (
	"time"

	"gorm.io/datatypes"
)

// TierTrial is the synthetic tier matching stores with an active trial
// overlay instead of a subscription plan name.
const TierTrial = "trial"

// HighlightConfiguration declares which home-page sections a plan tier is
// eligible for and how many slots each section grants that tier.
type HighlightConfiguration struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PlanType string `gorm:"type:varchar(32);not null;uniqueIndex"` // Tier name (plan name or "trial").

	// Sections is the ordered list of section entries this tier may fill,
	// each as {"name": ..., "slots": N, "max_display": M}.
	Sections datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`

	SortOrder int  `gorm:"not null;default:0"`    // Processing order (higher tiers first).
	IsActive  bool `gorm:"not null;default:true"` // Whether the configuration participates.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HighlightSection is one decoded entry of HighlightConfiguration.Sections.
type HighlightSection struct {
	Name       string `json:"name"`        // Section identifier.
	Slots      int    `json:"slots"`       // Candidates this tier may contribute per run.
	MaxDisplay int    `json:"max_display"` // Final display size cap for the section.
}
