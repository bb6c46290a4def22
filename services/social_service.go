// services/social_service.go
package services

import (
	"log"
	"time"

	"bounty-marketplace/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialService persists platform identities after the OAuth connect flow
// completes upstream. Token refresh is out of scope; a stale token simply
// fails the next verification.
type SocialService struct {
	DB *gorm.DB
}

func NewSocialService(db *gorm.DB) *SocialService {
	return &SocialService{DB: db}
}

var knownPlatforms = map[models.SocialPlatform]bool{
	models.PlatformTwitter:  true,
	models.PlatformTelegram: true,
	models.PlatformDiscord:  true,
}

// ConnectAccount handles POST /social/connect/:platform
func (s *SocialService) ConnectAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	platform := models.SocialPlatform(c.Params("platform"))
	if !knownPlatforms[platform] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown platform"})
	}

	var req struct {
		PlatformUserID string `json:"platformUserId"`
		Username       string `json:"username"`
		AccessToken    string `json:"accessToken"`
	}
	if err := c.BodyParser(&req); err != nil || req.PlatformUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "platformUserId is required"})
	}

	account := models.SocialAccount{
		ID:             uuid.NewString(),
		UserID:         userID,
		Platform:       platform,
		PlatformUserID: req.PlatformUserID,
		Username:       req.Username,
		AccessToken:    req.AccessToken,
		UpdatedAt:      time.Now(),
	}

	// Re-connecting replaces the stored identity for that platform.
	if err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform_user_id", "username", "access_token", "updated_at",
		}),
	}).Create(&account).Error; err != nil {
		log.Printf("DB Error connecting %s account: %v", platform, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to connect account"})
	}

	return c.JSON(fiber.Map{"message": "Account connected", "platform": platform, "username": req.Username})
}

// GetConnectedAccounts handles GET /social/accounts
func (s *SocialService) GetConnectedAccounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var accounts []models.SocialAccount
	if err := s.DB.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		log.Printf("DB Error fetching social accounts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch accounts"})
	}

	return c.JSON(accounts)
}
