package models

import (
	"time"
)

// SubmissionStatus tracks task completion, not payout
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"   // not all tasks done
	SubmissionSubmitted SubmissionStatus = "submitted" // all tasks done, payable
)

// RewardStatus is the settlement state machine layered on top of the
// submission status. Transitions: none → pending_onchain → onchain_confirmed
// or failed. The pending_onchain write is the reservation that keeps two
// concurrent finalize calls from both paying out.
type RewardStatus string

const (
	RewardNone             RewardStatus = "none"
	RewardPendingOnchain   RewardStatus = "pending_onchain"
	RewardOnchainConfirmed RewardStatus = "onchain_confirmed"
	RewardFailed           RewardStatus = "failed"
)

// Submission is a hunter's task-completion record for one campaign.
// At most one exists per (hunter_id, campaign_id). Never deleted.
type Submission struct {
	ID         string           `gorm:"primaryKey;type:uuid" json:"id"`
	HunterID   string           `gorm:"uniqueIndex:idx_hunter_campaign;not null" json:"hunter_id"`
	CampaignID string           `gorm:"uniqueIndex:idx_hunter_campaign;not null" json:"campaign_id"`
	Status     SubmissionStatus `gorm:"not null;default:'pending'" json:"status"`

	// Rewarded may only ever flip to true once, guarded by RewardStatus.
	Rewarded     bool         `gorm:"not null;default:false" json:"rewarded"`
	RewardStatus RewardStatus `gorm:"not null;default:'none';index" json:"reward_status"`
	RewardTxHash string       `json:"reward_tx_hash,omitempty"`
	RewardError  string       `gorm:"type:text" json:"reward_error,omitempty"`

	Tasks []SubmissionTask `gorm:"foreignKey:SubmissionID" json:"tasks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionTask mirrors one CampaignTask with the hunter's verification flag
type SubmissionTask struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID   string     `gorm:"index;not null" json:"submission_id"`
	CampaignTaskID string     `gorm:"not null" json:"campaign_task_id"`
	Done           bool       `gorm:"not null;default:false" json:"done"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

// AllTasksDone reports whether every mirrored task has been verified
func (s *Submission) AllTasksDone() bool {
	if len(s.Tasks) == 0 {
		return false
	}
	for _, t := range s.Tasks {
		if !t.Done {
			return false
		}
	}
	return true
}
