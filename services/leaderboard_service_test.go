package services

import (
	"context"
	"testing"

	"bounty-marketplace/models"
)

func TestLeaderboardRebuild(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	// hunter A wins two campaigns (10 + 25), hunter B wins one (25).
	first := seedCampaign(t, db, 10, 100)
	second := seedCampaign(t, db, 25, 100)

	markRewarded := func(campaign *models.Campaign, hunterID string) {
		sub := seedSubmission(t, db, campaign, hunterID, true)
		db.Model(&models.Submission{}).Where("id = ?", sub.ID).
			Updates(map[string]interface{}{
				"rewarded":      true,
				"reward_status": models.RewardOnchainConfirmed,
			})
	}
	markRewarded(first, hunterA)
	markRewarded(second, hunterA)
	markRewarded(second, hunterB)

	// An unrewarded submission must not count.
	seedSubmission(t, db, first, "hunter-c", true)

	if err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	var entries []models.LeaderboardEntry
	if err := db.Order("rank ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	top := entries[0]
	if top.HunterID != hunterA || top.Rank != 1 {
		t.Fatalf("expected %s at rank 1, got %+v", hunterA, top)
	}
	if got := top.TotalEarned.String(); got != "35" {
		t.Fatalf("expected total 35, got %s", got)
	}
	if top.CampaignsWon != 2 {
		t.Fatalf("expected 2 campaigns won, got %d", top.CampaignsWon)
	}

	runner := entries[1]
	if runner.HunterID != hunterB || runner.Rank != 2 || runner.TotalEarned.String() != "25" {
		t.Fatalf("unexpected runner-up entry: %+v", runner)
	}
}

// Rebuild replaces the cache wholesale instead of appending to it.
func TestLeaderboardRebuildReplaces(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	campaign := seedCampaign(t, db, 10, 100)
	sub := seedSubmission(t, db, campaign, hunterA, true)
	db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		Update("rewarded", true)

	for i := 0; i < 3; i++ {
		if err := svc.Rebuild(context.Background()); err != nil {
			t.Fatalf("rebuild %d failed: %v", i, err)
		}
	}

	var count int64
	db.Model(&models.LeaderboardEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 entry after repeated rebuilds, got %d", count)
	}
}

func TestLeaderboardRebuildEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	if err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild on empty database failed: %v", err)
	}

	var count int64
	db.Model(&models.LeaderboardEntry{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected empty leaderboard, got %d entries", count)
	}
}
