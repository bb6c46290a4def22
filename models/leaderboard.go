package models

import "time"

// LeaderboardEntry is a denormalized cache row rebuilt on a schedule from
// confirmed payouts. Reads never touch the submission/campaign tables.
type LeaderboardEntry struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	HunterID     string    `gorm:"uniqueIndex;not null" json:"hunter_id"`
	TotalEarned  Wei       `gorm:"type:numeric(78,0);not null" json:"total_earned"`
	CampaignsWon int       `gorm:"not null" json:"campaigns_won"`
	Rank         int       `gorm:"not null;index" json:"rank"`
	RebuiltAt    time.Time `gorm:"not null" json:"rebuilt_at"`
}
