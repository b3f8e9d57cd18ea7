package models

import "time"

// HighlightImpression is an append-only record of a store or product being
// shown in a home-page section. Rows are never updated or deleted.
type HighlightImpression struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StoreID   uint64  `gorm:"not null;index:idx_impressions_store_section"`                  // Shown store ID.
	ProductID *uint64 `gorm:"index"`                                                         // Shown product ID, if any.
	Section   string  `gorm:"type:varchar(64);not null;index:idx_impressions_store_section"` // Section name.

	ViewerID  *uint64 `gorm:"index"`            // Authenticated viewer ID, if any.
	IPAddress string  `gorm:"type:varchar(64)"` // Viewer IP, if known.

	// Bucket is the 5-minute anti-spam window key derived from
	// (store, product, section, ip, time bucket). The unique index makes
	// duplicate suppression atomic instead of check-then-act.
	Bucket string `gorm:"type:varchar(160);not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Impression timestamp.
}
