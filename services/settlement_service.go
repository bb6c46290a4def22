// services/settlement_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bounty-marketplace/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementService pays out verified submissions from the escrow contract.
//
// finalize flow: preconditions → participant upsert → atomic reservation →
// payReward (+ rescue drain when the remainder can no longer cover a full
// reward) → durable submission/campaign updates → notifications. Every step
// persists before the next; there is no cross-document transaction, so the
// reconcile worker repairs anything stuck between on-chain success and the
// final submission write.
type SettlementService struct {
	DB            *gorm.DB
	Chain         ChainCaller
	Notifications *NotificationService
}

func NewSettlementService(db *gorm.DB, chain ChainCaller, notifications *NotificationService) *SettlementService {
	return &SettlementService{DB: db, Chain: chain, Notifications: notifications}
}

// FinalizeResult is returned to the HTTP layer on success (including the
// already-rewarded short circuit).
type FinalizeResult struct {
	Submission      *models.Submission `json:"submission"`
	Campaign        *models.Campaign   `json:"campaign"`
	TxHash          string             `json:"txHash"`
	AlreadyRewarded bool               `json:"alreadyRewarded"`
}

// Finalize settles the payout for one (hunter, campaign) pair.
//
// An already-rewarded submission returns the prior result with
// AlreadyRewarded set instead of an error: re-calling finalize must be safe.
func (s *SettlementService) Finalize(ctx context.Context, hunterID, campaignID string) (*FinalizeResult, error) {
	var sub models.Submission
	err := s.DB.WithContext(ctx).
		Preload("Tasks").
		Where("hunter_id = ? AND campaign_id = ?", hunterID, campaignID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotReady
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if sub.Status != models.SubmissionSubmitted || !sub.AllTasksDone() {
		return nil, ErrNotReady
	}

	if sub.Rewarded {
		campaign, _ := s.loadCampaign(ctx, campaignID)
		return &FinalizeResult{
			Submission:      &sub,
			Campaign:        campaign,
			TxHash:          sub.RewardTxHash,
			AlreadyRewarded: true,
		}, nil
	}

	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusActive {
		return nil, ErrCampaignUnavailable
	}
	if campaign.RemainingWR.Sign() <= 0 {
		return nil, ErrInsufficientFunds
	}

	hunterAddr, err := s.resolveWallet(ctx, hunterID)
	if err != nil {
		return nil, err
	}

	// Participants is the derived "ever paid" set; ON CONFLICT DO NOTHING
	// keeps membership at-most-once across retries.
	participant := models.CampaignParticipant{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		HunterID:   hunterID,
	}
	if err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&participant).Error; err != nil {
		return nil, fmt.Errorf("failed to record participant: %w", err)
	}

	// Reservation: a single conditional UPDATE both checks and flips state,
	// so two concurrent finalize calls cannot both reach the chain.
	res := s.DB.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND rewarded = ? AND reward_status <> ?",
			sub.ID, false, models.RewardPendingOnchain).
		Updates(map[string]interface{}{
			"reward_status": models.RewardPendingOnchain,
			"reward_error":  "",
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reserve payout: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race: either a concurrent call holds the reservation or
		// it already completed.
		var current models.Submission
		if err := s.DB.WithContext(ctx).First(&current, "id = ?", sub.ID).Error; err == nil && current.Rewarded {
			return &FinalizeResult{
				Submission:      &current,
				Campaign:        campaign,
				TxHash:          current.RewardTxHash,
				AlreadyRewarded: true,
			}, nil
		}
		return nil, ErrSettlementInFlight
	}
	sub.RewardStatus = models.RewardPendingOnchain

	txHash, settleErr := s.settle(ctx, campaign, &sub, hunterAddr)
	if settleErr != nil {
		s.markFailed(ctx, &sub, settleErr)
		return nil, settleErr
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"rewarded":       true,
			"reward_status":  models.RewardOnchainConfirmed,
			"reward_tx_hash": txHash,
			"updated_at":     now,
		}).Error; err != nil {
		// The transfer is on chain; the reconcile worker will converge the
		// record from the stored tx hash.
		log.Printf("❌ [SETTLE] paid but failed to persist submission %s: %v", sub.ID, err)
		return nil, fmt.Errorf("payout confirmed but failed to record submission: %w", err)
	}
	sub.Rewarded = true
	sub.RewardStatus = models.RewardOnchainConfirmed
	sub.RewardTxHash = txHash

	s.notifySettled(campaign, &sub)

	return &FinalizeResult{
		Submission: &sub,
		Campaign:   campaign,
		TxHash:     txHash,
	}, nil
}

// settle runs the pay-then-maybe-rescue sequence against the escrow contract
// and keeps the campaign ledger durable after each mutation.
//
// The hunter is paid the full nominal reward even when the tracked remainder
// is smaller: the ledger is soft and can lag real escrow deposits, so the
// chain itself is the arbiter of a genuinely unfunded transfer. The remainder
// is clamped at zero and any dust below one full reward is drained back to
// the promoter.
func (s *SettlementService) settle(ctx context.Context, campaign *models.Campaign, sub *models.Submission, hunterAddr common.Address) (string, error) {
	reward := campaign.Reward

	payHash, err := s.Chain.PayReward(ctx, hunterAddr, reward.BigInt())
	if err != nil {
		return "", &OnchainError{Op: "payReward", Err: err}
	}

	// Anchor the hash on the submission first: if we crash past this point
	// the reconcile worker can still prove the payout happened.
	if err := s.DB.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", sub.ID).
		Update("reward_tx_hash", payHash).Error; err != nil {
		log.Printf("⚠️ [SETTLE] failed to anchor tx hash on submission %s: %v", sub.ID, err)
	}
	sub.RewardTxHash = payHash

	if err := s.recordTransaction(ctx, campaign, models.TransactionReward, payHash, hunterAddr.Hex(), reward); err != nil {
		return "", err
	}

	campaign.RemainingWR = campaign.RemainingWR.SubClamped(reward)
	if err := s.saveCampaign(ctx, campaign); err != nil {
		return "", err
	}

	if campaign.RemainingWR.Sign() > 0 && campaign.RemainingWR.Cmp(reward) < 0 {
		// Dust left that can never cover another full reward: drain it back
		// to the promoter.
		remainder := campaign.RemainingWR
		rescueHash, err := s.Chain.RescueERC20(ctx, common.HexToAddress(campaign.PromoterWallet), remainder.BigInt())
		if err != nil {
			return "", &OnchainError{Op: "rescueERC20", Err: err}
		}
		if err := s.recordTransaction(ctx, campaign, models.TransactionRescue, rescueHash, campaign.PromoterWallet, remainder); err != nil {
			return "", err
		}
		campaign.RemainingWR = models.NewWei(0)
		if err := s.saveCampaign(ctx, campaign); err != nil {
			return "", err
		}
	}

	if campaign.RemainingWR.Sign() == 0 && campaign.Status == models.CampaignStatusActive {
		campaign.Status = models.CampaignStatusFinished
		if err := s.saveCampaign(ctx, campaign); err != nil {
			return "", err
		}
	}

	return payHash, nil
}

func (s *SettlementService) loadCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.DB.WithContext(ctx).
		Preload("Tasks").
		First(&campaign, "id = ?", campaignID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignUnavailable
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &campaign, nil
}

func (s *SettlementService) resolveWallet(ctx context.Context, hunterID string) (common.Address, error) {
	var wallet models.HunterWallet
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_verified = ? AND is_active = ?", hunterID, true, true).
		Order("updated_at DESC").
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.Address{}, ErrNoWallet
		}
		return common.Address{}, fmt.Errorf("failed to resolve wallet: %w", err)
	}
	return common.HexToAddress(wallet.Address), nil
}

func (s *SettlementService) recordTransaction(ctx context.Context, campaign *models.Campaign, txType models.TransactionType, hash, to string, amount models.Wei) error {
	record := models.CampaignTransaction{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Type:       txType,
		TxHash:     hash,
		To:         to,
		Amount:     amount,
	}
	if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record %s transaction: %w", txType, err)
	}
	campaign.Transactions = append(campaign.Transactions, record)
	return nil
}

func (s *SettlementService) saveCampaign(ctx context.Context, campaign *models.Campaign) error {
	if err := s.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{
			"remaining_wr": campaign.RemainingWR,
			"status":       campaign.Status,
		}).Error; err != nil {
		return fmt.Errorf("failed to persist campaign: %w", err)
	}
	return nil
}

func (s *SettlementService) markFailed(ctx context.Context, sub *models.Submission, cause error) {
	if err := s.DB.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"reward_status": models.RewardFailed,
			"reward_error":  cause.Error(),
		}).Error; err != nil {
		log.Printf("❌ [SETTLE] failed to record failure on submission %s: %v", sub.ID, err)
		return
	}
	sub.RewardStatus = models.RewardFailed
	sub.RewardError = cause.Error()
}

// notifySettled emits the hunter and promoter notifications. Best-effort:
// failures are logged, never returned.
func (s *SettlementService) notifySettled(campaign *models.Campaign, sub *models.Submission) {
	if s.Notifications == nil {
		return
	}
	s.Notifications.Create(sub.HunterID, models.NotificationRewardPaid,
		"Reward paid",
		fmt.Sprintf("You earned %s WR for completing \"%s\" (tx %s)", campaign.Reward.String(), campaign.Title, sub.RewardTxHash))

	body := fmt.Sprintf("%s WR paid to a hunter on \"%s\"", campaign.Reward.String(), campaign.Title)
	kind := models.NotificationRewardPaid
	if campaign.Status == models.CampaignStatusFinished {
		body += "; campaign budget exhausted, remaining funds returned"
		kind = models.NotificationCampaignDrained
	}
	s.Notifications.Create(campaign.PromoterID, kind, "Campaign payout", body)
}

// --- HTTP handlers ---

// FinalizeSubmission handles POST /submissions for the session hunter
func (s *SettlementService) FinalizeSubmission(c *fiber.Ctx) error {
	hunterID := c.Locals("user_id").(string)

	var req struct {
		CampaignID string `json:"campaignId"`
	}
	if err := c.BodyParser(&req); err != nil || req.CampaignID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "campaignId is required"})
	}

	result, err := s.Finalize(c.Context(), hunterID, req.CampaignID)
	if err != nil {
		return settlementErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"submission":      result.Submission,
		"campaign":        result.Campaign,
		"txHash":          result.TxHash,
		"alreadyRewarded": result.AlreadyRewarded,
	})
}

func settlementErrorResponse(c *fiber.Ctx, err error) error {
	var onchain *OnchainError
	switch {
	case errors.Is(err, ErrNotReady):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "not_ready", "detail": err.Error()})
	case errors.Is(err, ErrCampaignUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign_unavailable", "detail": err.Error()})
	case errors.Is(err, ErrInsufficientFunds):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient_funds", "detail": err.Error()})
	case errors.Is(err, ErrNoWallet):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no_wallet", "detail": err.Error()})
	case errors.Is(err, ErrSettlementInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "settlement_in_flight", "detail": err.Error()})
	case errors.As(err, &onchain):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "onchain_failure", "detail": onchain.Error()})
	default:
		log.Printf("❌ [SETTLE] unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
}
