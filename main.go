package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bounty-marketplace/handlers"
	"bounty-marketplace/middleware"
	"bounty-marketplace/models"
	"bounty-marketplace/services"
	"bounty-marketplace/utils"
	"bounty-marketplace/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // 32MB — banner/creative uploads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignTask{},
		&models.CampaignParticipant{},
		&models.CampaignTransaction{},
		&models.Submission{},
		&models.SubmissionTask{},
		&models.SocialAccount{},
		&models.HunterWallet{},
		&models.Notification{},
		&models.ChatMessage{},
		&models.LeaderboardEntry{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.AdSlot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	escrowClient, err := services.NewEscrowClientFromEnv(ctx)
	if err != nil {
		log.Fatal("failed to initialize escrow client:", err)
	}

	notificationService := services.NewNotificationService(db)
	campaignService := services.NewCampaignService(db)
	submissionService := services.NewSubmissionService(db)
	verifierService := services.NewVerifierService(db, submissionService)
	settlementService := services.NewSettlementService(db, escrowClient, notificationService)
	socialService := services.NewSocialService(db)
	chatService := services.NewChatService(db)
	leaderboardService := services.NewLeaderboardService(db)
	referralService := services.NewReferralService(db, notificationService)
	adSlotService := services.NewAdSlotService(db)

	walletSyncClient := workers.NewWalletSyncClient(db)
	go workers.PollWallets(ctx, walletSyncClient, 10*time.Second)

	reconcileWorker := workers.NewReconcileWorker(db, escrowClient)
	go reconcileWorker.Poll(ctx, 1*time.Minute)

	leaderboardService.StartRebuildScheduler()
	adSlotService.StartScheduler()

	handlers.SetupCampaignRoutes(app, campaignService)
	handlers.SetupSubmissionRoutes(app, settlementService, submissionService, verifierService)
	handlers.SetupCommunityRoutes(app, socialService, notificationService, chatService, leaderboardService, referralService)
	handlers.SetupAdRoutes(app, adSlotService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Wallet polling running (every 10s)")
	log.Println("✅ Settlement reconcile worker running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
