package models

import "time"

// Seller represents a marketplace seller account stored in the database.
type Seller struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Name     string `gorm:"type:text"`                      // Display name.
	Password string `gorm:"type:text;not null"`             // Hashed password.
	Phone    string `gorm:"type:varchar(32)"`               // Contact phone.

	Active   bool `gorm:"not null;default:true"`  // Whether the seller can sign in.
	Disabled bool `gorm:"not null;default:false"` // Explicit disable flag.

	Stores []Store `gorm:"foreignKey:SellerID"` // Owned stores.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
