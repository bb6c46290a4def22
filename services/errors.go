// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Settlement failure kinds. Handlers map these to HTTP statuses with
// errors.Is; everything else surfaces as a 500.
var (
	// ErrNotReady: submission missing or tasks not fully verified yet.
	ErrNotReady = errors.New("submission is not ready for payout")

	// ErrAlreadyRewarded: idempotency short-circuit, treated as success-with-notice.
	ErrAlreadyRewarded = errors.New("submission already rewarded")

	// ErrSettlementInFlight: another finalize call holds the reservation.
	ErrSettlementInFlight = errors.New("settlement already in progress")

	// ErrCampaignUnavailable: campaign missing or no longer active.
	ErrCampaignUnavailable = errors.New("campaign not found or not active")

	// ErrInsufficientFunds: campaign balance exhausted.
	ErrInsufficientFunds = errors.New("campaign has no remaining funds")

	// ErrNoWallet: hunter has no verified wallet address to pay.
	ErrNoWallet = errors.New("no verified wallet for user")
)

// OnchainError wraps an RPC error, reverted transaction, or confirmation
// timeout from the escrow contract. Recorded on the submission as
// reward_error; never retried automatically.
type OnchainError struct {
	Op  string // "payReward" or "rescueERC20"
	Err error
}

func (e *OnchainError) Error() string {
	return fmt.Sprintf("on-chain %s failed: %v", e.Op, e.Err)
}

func (e *OnchainError) Unwrap() error { return e.Err }
