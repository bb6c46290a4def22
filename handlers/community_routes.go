// handlers/community_routes.go
package handlers

import (
	"bounty-marketplace/middleware"
	"bounty-marketplace/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCommunityRoutes wires the periphery: social connect, notifications,
// chat, leaderboard, referrals.
func SetupCommunityRoutes(
	app *fiber.App,
	socialService *services.SocialService,
	notificationService *services.NotificationService,
	chatService *services.ChatService,
	leaderboardService *services.LeaderboardService,
	referralService *services.ReferralService,
) {
	// 🔓 Public
	app.Get("/leaderboard", leaderboardService.GetLeaderboard)
	app.Get("/chat/messages", chatService.GetMessages)

	// 🔐 Secured
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/social/connect/:platform", socialService.ConnectAccount)
	secured.Get("/social/accounts", socialService.GetConnectedAccounts)

	secured.Get("/notifications", notificationService.GetUserNotifications)
	secured.Post("/notifications/:id/read", notificationService.MarkNotificationRead)

	secured.Post("/chat/messages", chatService.PostMessage)

	secured.Post("/referral/code", referralService.GenerateCode)
	secured.Post("/referral/apply", referralService.ApplyCode)
	secured.Get("/referral", referralService.GetMyReferrals)
}
