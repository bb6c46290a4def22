package models

import "time"

type NotificationKind string

const (
	NotificationRewardPaid     NotificationKind = "reward_paid"
	NotificationCampaignDrained NotificationKind = "campaign_drained"
	NotificationReferralBonus  NotificationKind = "referral_bonus"
	NotificationGeneric        NotificationKind = "generic"
)

// Notification is a fire-and-forget user-facing message. Creation is
// best-effort — a failed insert never fails the request that triggered it.
type Notification struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string           `gorm:"index;not null" json:"user_id"`
	Kind      NotificationKind `gorm:"not null" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
