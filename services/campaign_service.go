// services/campaign_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"bounty-marketplace/models"
	"bounty-marketplace/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type CampaignService struct {
	DB *gorm.DB
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db}
}

// taskDefinition is the inline task shape accepted on campaign creation
type taskDefinition struct {
	Kind   models.TaskKind `json:"kind"`
	Target string          `json:"target"`
}

var knownTaskKinds = map[models.TaskKind]bool{
	models.TaskTwitterFollow:  true,
	models.TaskTwitterRetweet: true,
	models.TaskTelegramJoin:   true,
	models.TaskDiscordJoin:    true,
	models.TaskVisitLink:      true,
}

// CreateCampaign creates a funded campaign. Multipart form: title,
// description, reward (wei), budget (wei), promoter_wallet, tasks (JSON
// array), optional banner image uploaded to R2.
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	promoterID := c.Locals("user_id").(string)

	title := c.FormValue("title")
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	promoterWallet := c.FormValue("promoter_wallet")
	if promoterWallet == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "promoter_wallet is required"})
	}

	reward, err := models.ParseWei(c.FormValue("reward"))
	if err != nil || reward.Sign() <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward must be a positive wei amount"})
	}
	budget, err := models.ParseWei(c.FormValue("budget"))
	if err != nil || budget.Sign() <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "budget must be a positive wei amount"})
	}

	var defs []taskDefinition
	if err := json.Unmarshal([]byte(c.FormValue("tasks")), &defs); err != nil || len(defs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tasks must be a non-empty JSON array"})
	}
	for _, d := range defs {
		if !knownTaskKinds[d.Kind] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown task kind %q", d.Kind)})
		}
		if d.Target == "" && d.Kind != models.TaskVisitLink {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "task target is required"})
		}
	}

	campaign := models.Campaign{
		ID:             uuid.NewString(),
		Slug:           fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString()[:8]),
		Title:          title,
		Description:    c.FormValue("description"),
		PromoterID:     promoterID,
		PromoterWallet: promoterWallet,
		Reward:         reward,
		RemainingWR:    budget,
		Status:         models.CampaignStatusActive,
	}

	if banner, err := c.FormFile("banner"); err == nil && banner != nil {
		key := fmt.Sprintf("banners/%s-%s", campaign.ID, slug.Make(banner.Filename))
		url, upErr := utils.UploadImageToR2(banner, key)
		if upErr != nil {
			log.Printf("❌ Failed to upload campaign banner: %v", upErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload banner"})
		}
		campaign.BannerURL = url
	}

	for i, d := range defs {
		campaign.Tasks = append(campaign.Tasks, models.CampaignTask{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			Kind:       d.Kind,
			Target:     d.Target,
			Ordinal:    i,
		})
	}

	if err := s.DB.Create(&campaign).Error; err != nil {
		log.Printf("DB Error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campaign"})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetAllCampaigns lists campaigns, optionally filtered by status
func (s *CampaignService) GetAllCampaigns(c *fiber.Ctx) error {
	query := s.DB.Preload("Tasks").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		log.Printf("DB Error fetching campaigns: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch campaigns"})
	}

	return c.JSON(campaigns)
}

// GetCampaignByID returns one campaign with tasks, participants and tx log
func (s *CampaignService) GetCampaignByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var campaign models.Campaign
	err := s.DB.
		Preload("Tasks").
		Preload("Participants").
		Preload("Transactions").
		First(&campaign, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(campaign)
}

// RejectCampaign marks a campaign rejected (admin only)
func (s *CampaignService) RejectCampaign(c *fiber.Ctx) error {
	roles, _ := c.Locals("user_roles").([]string)
	isAdmin := false
	for _, r := range roles {
		if r == "admin" {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	id := c.Params("id")
	result := s.DB.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignStatusActive).
		Update("status", models.CampaignStatusRejected)
	if result.Error != nil {
		log.Printf("DB Error rejecting campaign: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reject campaign"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found or not active"})
	}

	return c.JSON(fiber.Map{"message": "Campaign rejected", "campaign_id": id})
}
