// services/submission_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bounty-marketplace/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{DB: db}
}

// EnsureSubmission returns the hunter's submission for a campaign, creating
// it (with one mirrored task row per campaign task) on first contact.
func (s *SubmissionService) EnsureSubmission(ctx context.Context, hunterID string, campaign *models.Campaign) (*models.Submission, error) {
	var sub models.Submission
	err := s.DB.WithContext(ctx).
		Preload("Tasks").
		Where("hunter_id = ? AND campaign_id = ?", hunterID, campaign.ID).
		First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	sub = models.Submission{
		ID:         uuid.NewString(),
		HunterID:   hunterID,
		CampaignID: campaign.ID,
		Status:     models.SubmissionPending,
	}
	for _, task := range campaign.Tasks {
		sub.Tasks = append(sub.Tasks, models.SubmissionTask{
			ID:             uuid.NewString(),
			SubmissionID:   sub.ID,
			CampaignTaskID: task.ID,
		})
	}
	if err := s.DB.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return &sub, nil
}

// MarkTaskDone flips one task flag and promotes the submission to
// "submitted" once every task is done.
func (s *SubmissionService) MarkTaskDone(ctx context.Context, sub *models.Submission, campaignTaskID string) error {
	now := time.Now()
	for i := range sub.Tasks {
		if sub.Tasks[i].CampaignTaskID != campaignTaskID {
			continue
		}
		if sub.Tasks[i].Done {
			return nil
		}
		sub.Tasks[i].Done = true
		sub.Tasks[i].VerifiedAt = &now
		if err := s.DB.WithContext(ctx).
			Model(&models.SubmissionTask{}).
			Where("id = ?", sub.Tasks[i].ID).
			Updates(map[string]interface{}{"done": true, "verified_at": now}).Error; err != nil {
			return fmt.Errorf("failed to persist task flag: %w", err)
		}
		break
	}

	if sub.Status == models.SubmissionPending && sub.AllTasksDone() {
		if err := s.DB.WithContext(ctx).
			Model(&models.Submission{}).
			Where("id = ?", sub.ID).
			Update("status", models.SubmissionSubmitted).Error; err != nil {
			return fmt.Errorf("failed to promote submission: %w", err)
		}
		sub.Status = models.SubmissionSubmitted
	}
	return nil
}

// submissionTaskView merges a campaign task definition with the hunter's flag
type submissionTaskView struct {
	TaskID     string          `json:"task_id"`
	Kind       models.TaskKind `json:"kind"`
	Target     string          `json:"target"`
	Ordinal    int             `json:"ordinal"`
	Done       bool            `json:"done"`
	VerifiedAt *time.Time      `json:"verified_at,omitempty"`
}

// GetSubmissionStatus handles GET /submissions?campaignId=, returning the
// campaign task definitions merged with the session hunter's flags.
func (s *SubmissionService) GetSubmissionStatus(c *fiber.Ctx) error {
	hunterID := c.Locals("user_id").(string)
	campaignID := c.Query("campaignId")
	if campaignID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "campaignId query parameter is required"})
	}

	var campaign models.Campaign
	if err := s.DB.Preload("Tasks").First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var sub models.Submission
	hasSubmission := true
	err := s.DB.Preload("Tasks").
		Where("hunter_id = ? AND campaign_id = ?", hunterID, campaignID).
		First(&sub).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DB Error fetching submission: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		hasSubmission = false
	}

	flags := make(map[string]models.SubmissionTask)
	if hasSubmission {
		for _, t := range sub.Tasks {
			flags[t.CampaignTaskID] = t
		}
	}

	views := make([]submissionTaskView, 0, len(campaign.Tasks))
	for _, task := range campaign.Tasks {
		view := submissionTaskView{
			TaskID:  task.ID,
			Kind:    task.Kind,
			Target:  task.Target,
			Ordinal: task.Ordinal,
		}
		if flag, ok := flags[task.ID]; ok {
			view.Done = flag.Done
			view.VerifiedAt = flag.VerifiedAt
		}
		views = append(views, view)
	}

	resp := fiber.Map{
		"campaign": campaign,
		"tasks":    views,
	}
	if hasSubmission {
		resp["submission"] = sub
	}
	return c.JSON(resp)
}
