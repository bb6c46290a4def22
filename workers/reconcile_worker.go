package workers

import (
	"context"
	"log"
	"time"

	"bounty-marketplace/models"
	"bounty-marketplace/services"

	"gorm.io/gorm"
)

// ReconcileWorker repairs submissions stuck in pending_onchain. A crash
// between the escrow call and the final submission write leaves the record
// holding a reservation forever; this worker converges it from the anchored
// transaction hash: confirmed receipt → rewarded, reverted receipt → failed,
// no hash at all → failed (nothing ever reached the chain).
type ReconcileWorker struct {
	DB    *gorm.DB
	Chain services.ChainCaller

	// StaleAfter is how long a reservation may sit before it is reconciled.
	// Must comfortably exceed one confirmation wait.
	StaleAfter time.Duration
}

func NewReconcileWorker(db *gorm.DB, chain services.ChainCaller) *ReconcileWorker {
	return &ReconcileWorker{
		DB:         db,
		Chain:      chain,
		StaleAfter: 5 * time.Minute,
	}
}

// Poll runs the reconcile pass on a fixed interval until ctx is done
func (w *ReconcileWorker) Poll(ctx context.Context, interval time.Duration) {
	log.Println("Starting settlement reconcile worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Settlement reconcile worker stopped.")
			return
		case <-ticker.C:
			if err := w.ReconcileOnce(ctx); err != nil {
				log.Printf("❌ [RECONCILE] pass failed: %v", err)
			}
		}
	}
}

// ReconcileOnce processes every stale pending_onchain submission once
func (w *ReconcileWorker) ReconcileOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-w.StaleAfter)

	var stuck []models.Submission
	err := w.DB.WithContext(ctx).
		Where("reward_status = ? AND updated_at < ?", models.RewardPendingOnchain, cutoff).
		Limit(100).
		Find(&stuck).Error
	if err != nil {
		return err
	}

	for i := range stuck {
		w.reconcileSubmission(ctx, &stuck[i])
	}
	return nil
}

func (w *ReconcileWorker) reconcileSubmission(ctx context.Context, sub *models.Submission) {
	if sub.RewardTxHash == "" {
		// Reservation taken but no transaction ever left the building.
		w.update(sub, map[string]interface{}{
			"reward_status": models.RewardFailed,
			"reward_error":  "reservation expired without an on-chain transaction",
		})
		log.Printf("🔧 [RECONCILE] submission %s failed: no transaction recorded", sub.ID)
		return
	}

	status, found, err := w.Chain.ReceiptStatus(ctx, sub.RewardTxHash)
	if err != nil {
		log.Printf("⚠️ [RECONCILE] receipt lookup for %s failed: %v", sub.RewardTxHash, err)
		return
	}
	if !found {
		// Still unmined or unknown to the node; try again next pass.
		return
	}

	if status == 1 {
		w.update(sub, map[string]interface{}{
			"rewarded":      true,
			"reward_status": models.RewardOnchainConfirmed,
			"reward_error":  "",
		})
		log.Printf("🔧 [RECONCILE] submission %s confirmed from receipt %s", sub.ID, sub.RewardTxHash)
	} else {
		w.update(sub, map[string]interface{}{
			"reward_status": models.RewardFailed,
			"reward_error":  "transaction " + sub.RewardTxHash + " reverted",
		})
		log.Printf("🔧 [RECONCILE] submission %s failed: receipt %s reverted", sub.ID, sub.RewardTxHash)
	}
}

func (w *ReconcileWorker) update(sub *models.Submission, fields map[string]interface{}) {
	if err := w.DB.Model(&models.Submission{}).
		Where("id = ? AND reward_status = ?", sub.ID, models.RewardPendingOnchain).
		Updates(fields).Error; err != nil {
		log.Printf("❌ [RECONCILE] failed to update submission %s: %v", sub.ID, err)
	}
}
