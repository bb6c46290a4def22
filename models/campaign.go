package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignStatus indicates the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusFinished CampaignStatus = "finished"
	CampaignStatusRejected CampaignStatus = "rejected"
)

// TaskKind is the closed set of social tasks a campaign can require.
// The verifier switches exhaustively on this; unknown kinds fail verification.
type TaskKind string

const (
	TaskTwitterFollow  TaskKind = "twitter_follow"
	TaskTwitterRetweet TaskKind = "twitter_retweet"
	TaskTelegramJoin   TaskKind = "telegram_join"
	TaskDiscordJoin    TaskKind = "discord_join"
	TaskVisitLink      TaskKind = "visit_link"
)

// Campaign is a promoter-funded bounty pool. RemainingWR is the soft ledger
// of escrow funds still available to this campaign — it only decreases
// through settlement and must never go negative.
type Campaign struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	BannerURL      string         `gorm:"type:text" json:"banner_url,omitempty"`
	PromoterID     string         `gorm:"index;not null" json:"promoter_id"`
	PromoterWallet string         `gorm:"type:varchar(128);not null" json:"promoter_wallet"`
	Reward         Wei            `gorm:"type:numeric(78,0);not null" json:"reward"`
	RemainingWR    Wei            `gorm:"column:remaining_wr;type:numeric(78,0);not null" json:"remaining_wr"`
	Status         CampaignStatus `gorm:"not null;default:'active';index" json:"status"`

	Tasks        []CampaignTask        `gorm:"foreignKey:CampaignID" json:"tasks"`
	Participants []CampaignParticipant `gorm:"foreignKey:CampaignID" json:"participants,omitempty"`
	Transactions []CampaignTransaction `gorm:"foreignKey:CampaignID" json:"transactions,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CampaignTask is one required task. ResolvedTargetID caches the platform id
// behind the target URL (Discord guild id, Telegram chat id, Twitter user id)
// after first resolution so verification doesn't re-resolve the URL.
type CampaignTask struct {
	ID               string   `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID       string   `gorm:"index;not null" json:"campaign_id"`
	Kind             TaskKind `gorm:"not null" json:"kind"`
	Target           string   `gorm:"type:text;not null" json:"target"`
	ResolvedTargetID string   `json:"resolved_target_id,omitempty"`
	Ordinal          int      `gorm:"not null" json:"ordinal"`
}

// CampaignParticipant records a hunter who has been paid at least once on the
// campaign. (campaign_id, hunter_id) is unique, so membership is at-most-once.
type CampaignParticipant struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID  string    `gorm:"uniqueIndex:idx_campaign_hunter;not null" json:"campaign_id"`
	HunterID    string    `gorm:"uniqueIndex:idx_campaign_hunter;not null" json:"hunter_id"`
	FirstPaidAt time.Time `gorm:"autoCreateTime" json:"first_paid_at"`
}

// TransactionType distinguishes payouts from rescue drains
type TransactionType string

const (
	TransactionReward TransactionType = "reward"
	TransactionRescue TransactionType = "rescue"
)

// CampaignTransaction is the append-only on-chain transaction log
type CampaignTransaction struct {
	ID         string          `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID string          `gorm:"index;not null" json:"campaign_id"`
	Type       TransactionType `gorm:"not null" json:"type"`
	TxHash     string          `gorm:"not null" json:"tx_hash"`
	To         string          `gorm:"type:varchar(128);not null" json:"to"`
	Amount     Wei             `gorm:"type:numeric(78,0);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
