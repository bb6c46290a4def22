// services/leaderboard_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"bounty-marketplace/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaderboardService maintains a denormalized ranking cache so reads never
// aggregate over submissions.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// StartRebuildScheduler rebuilds the cache every 5 minutes
func (s *LeaderboardService) StartRebuildScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := s.Rebuild(context.Background()); err != nil {
				log.Printf("[Leaderboard] rebuild failed: %v", err)
			}
		}),
	)
}

type leaderboardRow struct {
	HunterID string
	Total    string
	Won      int
}

// Rebuild recomputes every hunter's confirmed earnings and replaces the cache
func (s *LeaderboardService) Rebuild(ctx context.Context) error {
	var rows []leaderboardRow
	err := s.DB.WithContext(ctx).
		Model(&models.Submission{}).
		Select("submissions.hunter_id AS hunter_id, SUM(campaigns.reward) AS total, COUNT(*) AS won").
		Joins("JOIN campaigns ON campaigns.id = submissions.campaign_id").
		Where("submissions.rewarded = ?", true).
		Group("submissions.hunter_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate payouts: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	now := time.Now()
	for _, row := range rows {
		total, err := models.ParseWei(row.Total)
		if err != nil {
			return fmt.Errorf("bad aggregate for hunter %s: %w", row.HunterID, err)
		}
		entries = append(entries, models.LeaderboardEntry{
			ID:           uuid.NewString(),
			HunterID:     row.HunterID,
			TotalEarned:  total,
			CampaignsWon: row.Won,
			RebuiltAt:    now,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TotalEarned.Cmp(entries[j].TotalEarned) > 0
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}

// GetLeaderboard handles GET /leaderboard
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("rank ASC").Limit(100).Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	return c.JSON(entries)
}
