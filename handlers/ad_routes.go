// handlers/ad_routes.go
package handlers

import (
	"bounty-marketplace/middleware"
	"bounty-marketplace/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdRoutes(app *fiber.App, adSlotService *services.AdSlotService) {
	// 🔓 Public — the mini-app polls this for the current banner rotation
	app.Get("/ads/active", adSlotService.GetActiveAds)

	// 🔐 Secured
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/ads", adSlotService.CreateAdSlot)
}
