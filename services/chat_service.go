// services/chat_service.go
package services

import (
	"log"
	"strconv"
	"strings"

	"bounty-marketplace/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService struct {
	DB *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db}
}

// GetMessages handles GET /chat/messages?limit= — newest first
func (s *ChatService) GetMessages(c *fiber.Ctx) error {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > 200 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		limit = l
	}

	var messages []models.ChatMessage
	if err := s.DB.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		log.Printf("DB Error fetching chat messages: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}

	return c.JSON(messages)
}

// PostMessage handles POST /chat/messages
func (s *ChatService) PostMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Body     string `json:"body"`
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > 2000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message body must be 1-2000 characters"})
	}

	msg := models.ChatMessage{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: req.Username,
		Body:     req.Body,
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		log.Printf("DB Error posting chat message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to post message"})
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}
