package models

import "time"

// Promotion represents a time-boxed discount campaign for a store.
type Promotion struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StoreID uint64 `gorm:"not null;index"`     // Owning store ID.
	Store   *Store `gorm:"foreignKey:StoreID"` // Owning store.

	Title           string  `gorm:"type:varchar(255);not null"`             // Promotion title.
	Description     string  `gorm:"type:text"`                              // Promotion description.
	DiscountPercent float64 `gorm:"type:decimal(5,2);not null;default:0"`   // Discount percentage.
	IsFlash         bool    `gorm:"not null;default:false"`                 // Flash promotion flag (plan gated).

	StartsAt time.Time `gorm:"not null"` // Promotion window start.
	EndsAt   time.Time `gorm:"not null"` // Promotion window end.

	IsActive bool `gorm:"not null;default:true"` // Whether the promotion is live.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
