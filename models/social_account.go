package models

import "time"

// SocialPlatform identifies a linked third-party account
type SocialPlatform string

const (
	PlatformTwitter  SocialPlatform = "twitter"
	PlatformTelegram SocialPlatform = "telegram"
	PlatformDiscord  SocialPlatform = "discord"
)

// SocialAccount links a hunter to a platform identity after the connect flow.
// One account per (user, platform). Token refresh is handled upstream; we
// only store what the verifier needs.
type SocialAccount struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string         `gorm:"uniqueIndex:idx_user_platform;not null" json:"user_id"`
	Platform       SocialPlatform `gorm:"uniqueIndex:idx_user_platform;not null" json:"platform"`
	PlatformUserID string         `gorm:"not null" json:"platform_user_id"`
	Username       string         `json:"username,omitempty"`
	AccessToken    string         `gorm:"type:text" json:"-"`
	ConnectedAt    time.Time      `gorm:"autoCreateTime" json:"connected_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
