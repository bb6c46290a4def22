package models

import (
	"time"

	"gorm.io/gorm"
)

type AdSlotStatus string

const (
	AdSlotScheduled AdSlotStatus = "scheduled"
	AdSlotActive    AdSlotStatus = "active"
	AdSlotExpired   AdSlotStatus = "expired"
)

// AdSlot is a booked advertising placement. The scheduler flips status by
// the StartsAt/EndsAt window; only active slots are served.
type AdSlot struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	Slug         string       `gorm:"uniqueIndex;not null" json:"slug"`
	AdvertiserID string       `gorm:"index;not null" json:"advertiser_id"`
	Title        string       `gorm:"not null" json:"title"`
	CreativeURL  string       `gorm:"type:text;not null" json:"creative_url"`
	LinkURL      string       `gorm:"type:text" json:"link_url,omitempty"`
	StartsAt     time.Time    `gorm:"not null;index" json:"starts_at"`
	EndsAt       time.Time    `gorm:"not null;index" json:"ends_at"`
	Status       AdSlotStatus `gorm:"not null;default:'scheduled';index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
