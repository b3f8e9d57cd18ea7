package models

import "time"

// Coupon discount types.
const (
	CouponTypeFlat    = "flat"
	CouponTypePercent = "percent"
)

// Coupon represents a redeemable discount code issued by a store.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StoreID uint64 `gorm:"not null;index"`     // Owning store ID.
	Store   *Store `gorm:"foreignKey:StoreID"` // Owning store.

	Code          string  `gorm:"type:varchar(64);not null;uniqueIndex"` // Redemption code.
	Type          string  `gorm:"type:varchar(16);not null"`             // Discount type (flat or percent).
	Value         float64 `gorm:"type:decimal(10,2);not null;default:0"` // Discount value.
	MinOrderCents int64   `gorm:"not null;default:0"`                    // Minimum order value in cents.

	ExpiresAt  *time.Time `gorm:"type:timestamp"`     // Optional expiry.
	UsageLimit int        `gorm:"not null;default:0"` // Max redemptions (0 means unlimited).
	UsedCount  int        `gorm:"not null;default:0"` // Redemptions so far.

	IsActive bool `gorm:"not null;default:true"` // Whether the coupon can be redeemed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
