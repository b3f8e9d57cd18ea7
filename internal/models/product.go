package models

import "time"

// Product represents a sellable item belonging to exactly one store.
type Product struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StoreID uint64 `gorm:"not null;index"`      // Owning store ID.
	Store   *Store `gorm:"foreignKey:StoreID"`  // Owning store.

	Name        string  `gorm:"type:varchar(255);not null"` // Product name.
	Description string  `gorm:"type:text"`                  // Product description.
	Category    string  `gorm:"type:varchar(128);index"`    // Product category.
	PriceCents  int64   `gorm:"not null;default:0"`         // Price in cents.

	IsActive bool `gorm:"not null;default:true;index"` // Whether the product is listed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
