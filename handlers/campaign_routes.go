// handlers/campaign_routes.go
package handlers

import (
	"bounty-marketplace/middleware"
	"bounty-marketplace/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCampaignRoutes(app *fiber.App, campaignService *services.CampaignService) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/campaigns", campaignService.GetAllCampaigns)
	app.Get("/campaigns/:id", campaignService.GetCampaignByID)

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/campaigns", campaignService.CreateCampaign)
	secured.Patch("/campaigns/:id/reject", campaignService.RejectCampaign)
}
