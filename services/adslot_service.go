// services/adslot_service.go
package services

import (
	"fmt"
	"log"
	"time"

	"bounty-marketplace/models"
	"bounty-marketplace/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type AdSlotService struct {
	DB *gorm.DB
}

func NewAdSlotService(db *gorm.DB) *AdSlotService {
	return &AdSlotService{DB: db}
}

// StartScheduler flips slot statuses by their booking window every minute
func (s *AdSlotService) StartScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()

			res := s.DB.Model(&models.AdSlot{}).
				Where("status = ? AND starts_at <= ? AND ends_at > ?", models.AdSlotScheduled, now, now).
				Update("status", models.AdSlotActive)
			if res.Error != nil {
				log.Printf("[AdScheduler] activation failed: %v", res.Error)
			} else if res.RowsAffected > 0 {
				log.Printf("✅ Activated %d ad slot(s)", res.RowsAffected)
			}

			res = s.DB.Model(&models.AdSlot{}).
				Where("status <> ? AND ends_at <= ?", models.AdSlotExpired, now).
				Update("status", models.AdSlotExpired)
			if res.Error != nil {
				log.Printf("[AdScheduler] expiry failed: %v", res.Error)
			} else if res.RowsAffected > 0 {
				log.Printf("✅ Expired %d ad slot(s)", res.RowsAffected)
			}
		}),
	)
}

// CreateAdSlot handles POST /ads. Multipart form: title, link_url, starts_at,
// ends_at (RFC3339), creative image uploaded to R2.
func (s *AdSlotService) CreateAdSlot(c *fiber.Ctx) error {
	advertiserID := c.Locals("user_id").(string)

	title := c.FormValue("title")
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}

	startsAt, err := time.Parse(time.RFC3339, c.FormValue("starts_at"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "starts_at must be RFC3339"})
	}
	endsAt, err := time.Parse(time.RFC3339, c.FormValue("ends_at"))
	if err != nil || !endsAt.After(startsAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be RFC3339 and after starts_at"})
	}

	creative, err := c.FormFile("creative")
	if err != nil || creative == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "creative image is required"})
	}

	ad := models.AdSlot{
		ID:           uuid.NewString(),
		Slug:         fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString()[:8]),
		AdvertiserID: advertiserID,
		Title:        title,
		LinkURL:      c.FormValue("link_url"),
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		Status:       models.AdSlotScheduled,
	}

	key := fmt.Sprintf("creatives/%s-%s", ad.ID, slug.Make(creative.Filename))
	url, upErr := utils.UploadImageToR2(creative, key)
	if upErr != nil {
		log.Printf("❌ Failed to upload ad creative: %v", upErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload creative"})
	}
	ad.CreativeURL = url

	if err := s.DB.Create(&ad).Error; err != nil {
		log.Printf("DB Error creating ad slot: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create ad slot"})
	}

	return c.Status(fiber.StatusCreated).JSON(ad)
}

// GetActiveAds handles GET /ads/active
func (s *AdSlotService) GetActiveAds(c *fiber.Ctx) error {
	var ads []models.AdSlot
	if err := s.DB.Where("status = ?", models.AdSlotActive).
		Order("starts_at ASC").
		Find(&ads).Error; err != nil {
		log.Printf("DB Error fetching active ads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ads"})
	}

	return c.JSON(ads)
}
