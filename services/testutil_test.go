package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"bounty-marketplace/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignTask{},
		&models.CampaignParticipant{},
		&models.CampaignTransaction{},
		&models.Submission{},
		&models.SubmissionTask{},
		&models.SocialAccount{},
		&models.HunterWallet{},
		&models.Notification{},
		&models.ChatMessage{},
		&models.LeaderboardEntry{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.AdSlot{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// chainCall records one on-chain invocation made against the fake
type chainCall struct {
	Method string
	To     common.Address
	Amount *big.Int
}

// fakeChain implements ChainCaller in memory
type fakeChain struct {
	mu       sync.Mutex
	calls    []chainCall
	payErr   error
	rescErr  error
	receipts map[string]uint64
	seq      int
}

func newFakeChain() *fakeChain {
	return &fakeChain{receipts: make(map[string]uint64)}
}

func (f *fakeChain) PayReward(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return "", f.payErr
	}
	f.seq++
	hash := fmt.Sprintf("0xpay%04d", f.seq)
	f.calls = append(f.calls, chainCall{Method: "payReward", To: to, Amount: new(big.Int).Set(amount)})
	f.receipts[hash] = 1
	return hash, nil
}

func (f *fakeChain) RescueERC20(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rescErr != nil {
		return "", f.rescErr
	}
	f.seq++
	hash := fmt.Sprintf("0xrescue%04d", f.seq)
	f.calls = append(f.calls, chainCall{Method: "rescueERC20", To: to, Amount: new(big.Int).Set(amount)})
	f.receipts[hash] = 1
	return hash, nil
}

func (f *fakeChain) ReceiptStatus(ctx context.Context, txHash string) (uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.receipts[txHash]
	return status, ok, nil
}

func (f *fakeChain) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// seedCampaign creates an active campaign with one visit_link task
func seedCampaign(t *testing.T, db *gorm.DB, reward, remaining int64) *models.Campaign {
	t.Helper()

	campaign := models.Campaign{
		ID:             uuid.NewString(),
		Slug:           "camp-" + uuid.NewString()[:8],
		Title:          "Follow and earn",
		PromoterID:     "promoter-1",
		PromoterWallet: "0x00000000000000000000000000000000000000aa",
		Reward:         models.NewWei(reward),
		RemainingWR:    models.NewWei(remaining),
		Status:         models.CampaignStatusActive,
	}
	campaign.Tasks = []models.CampaignTask{{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Kind:       models.TaskVisitLink,
		Target:     "https://example.com",
		Ordinal:    0,
	}}
	if err := db.Create(&campaign).Error; err != nil {
		t.Fatalf("failed to seed campaign: %v", err)
	}
	return &campaign
}

// seedSubmission creates a submission for hunter on campaign; done controls
// whether every task flag is verified.
func seedSubmission(t *testing.T, db *gorm.DB, campaign *models.Campaign, hunterID string, done bool) *models.Submission {
	t.Helper()

	status := models.SubmissionPending
	if done {
		status = models.SubmissionSubmitted
	}
	sub := models.Submission{
		ID:         uuid.NewString(),
		HunterID:   hunterID,
		CampaignID: campaign.ID,
		Status:     status,
	}
	for _, task := range campaign.Tasks {
		sub.Tasks = append(sub.Tasks, models.SubmissionTask{
			ID:             uuid.NewString(),
			SubmissionID:   sub.ID,
			CampaignTaskID: task.ID,
			Done:           done,
		})
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return &sub
}

func seedWallet(t *testing.T, db *gorm.DB, hunterID, address string) {
	t.Helper()

	wallet := models.HunterWallet{
		ID:         uuid.NewString(),
		UserID:     hunterID,
		Chain:      "worldchain",
		Address:    address,
		IsVerified: true,
		IsActive:   true,
	}
	if err := db.Create(&wallet).Error; err != nil {
		t.Fatalf("failed to seed wallet: %v", err)
	}
}
