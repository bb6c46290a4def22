// handlers/submission_routes.go
package handlers

import (
	"bounty-marketplace/middleware"
	"bounty-marketplace/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(
	app *fiber.App,
	settlementService *services.SettlementService,
	submissionService *services.SubmissionService,
	verifierService *services.VerifierService,
) {
	// All submission routes act on the session hunter — user context required.
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Finalize: the settlement engine's single entry point.
	secured.Post("/submissions", settlementService.FinalizeSubmission)
	secured.Get("/submissions", submissionService.GetSubmissionStatus)

	// Per-platform task verification.
	secured.Post("/task/verify", verifierService.VerifyTwitterTask)
	secured.Post("/task/verify/telegram", verifierService.VerifyTelegramTask)
	secured.Post("/task/verify/discord", verifierService.VerifyDiscordTask)
}
