// services/referral_service.go
package services

import (
	"crypto/rand"
	"errors"
	"log"
	"time"

	"bounty-marketplace/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewReferralService(db *gorm.DB, notifications *NotificationService) *ReferralService {
	return &ReferralService{DB: db, Notifications: notifications}
}

// codeAlphabet avoids 0/O and 1/I lookalikes
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() string {
	b := make([]byte, 8)
	rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// GenerateCode handles POST /referral/code. Idempotent per user.
func (s *ReferralService) GenerateCode(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var existing models.ReferralCode
	err := s.DB.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return c.JSON(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	code := models.ReferralCode{
		ID:     uuid.NewString(),
		UserID: userID,
		Code:   newReferralCode(),
	}
	if err := s.DB.Create(&code).Error; err != nil {
		log.Printf("DB Error creating referral code: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referral code"})
	}

	return c.Status(fiber.StatusCreated).JSON(code)
}

// ApplyCode handles POST /referral/apply {code}
func (s *ReferralService) ApplyCode(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	var code models.ReferralCode
	if err := s.DB.Where("code = ?", req.Code).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referral code not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if code.UserID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot refer yourself"})
	}

	var count int64
	if err := s.DB.Model(&models.Referral{}).Where("referred_id = ?", userID).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already referred"})
	}

	now := time.Now()
	referral := models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       code.UserID,
		ReferredID:       userID,
		ReferralCodeUsed: code.Code,
		BonusAwarded:     true,
		AwardedAt:        &now,
	}
	if err := s.DB.Create(&referral).Error; err != nil {
		log.Printf("DB Error creating referral: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to apply referral code"})
	}

	if s.Notifications != nil {
		s.Notifications.Create(code.UserID, models.NotificationReferralBonus,
			"Referral bonus", "A hunter joined with your referral code")
	}

	return c.Status(fiber.StatusCreated).JSON(referral)
}

// GetMyReferrals handles GET /referral, listing referrals the session user made
func (s *ReferralService) GetMyReferrals(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var referrals []models.Referral
	if err := s.DB.Where("referrer_id = ?", userID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		log.Printf("DB Error fetching referrals: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrals"})
	}

	return c.JSON(referrals)
}
