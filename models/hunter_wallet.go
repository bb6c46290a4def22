// models/hunter_wallet.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// HunterWallet mirrors verified wallet addresses from the identity service.
// Table name: hunter_wallets
// Settlement resolves the payout address here; the sync worker keeps it fresh.
type HunterWallet struct {
	ID         string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"` // External user ID
	Chain      string    `gorm:"type:varchar(64);not null;index" json:"chain"`
	Address    string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"address"` // Primary lookup key
	IsVerified bool      `gorm:"not null" json:"is_verified"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	LastSeenAt time.Time `gorm:"not null" json:"last_seen_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}
