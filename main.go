package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/distrivet/asistente-backend/database"
	"github.com/distrivet/asistente-backend/internal/config"
	"github.com/distrivet/asistente-backend/internal/handlers"
	"github.com/distrivet/asistente-backend/internal/jobs"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
	"github.com/distrivet/asistente-backend/internal/routes"
	"github.com/distrivet/asistente-backend/internal/services"
	"github.com/distrivet/asistente-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	// Initialize storage
	var store storage.Store

	if cfg.App.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect(cfg.Database)

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Session{},
			&models.Customer{},
			&models.Product{},
			&models.Promotion{},
			&models.FeedbackEntry{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Outbound messenger
	messenger, err := services.NewTwilioMessenger(cfg.Twilio)
	if err != nil {
		log.Fatal("Failed to initialize Twilio messenger:", err)
	}
	log.Println("✅ Twilio messenger initialized")

	// NLU collaborators: the heuristic extractor always works; guarded
	// answers need a configured Ollama endpoint
	extractor := nlu.NewHeuristicExtractor()
	var answers nlu.AnswerGenerator
	if cfg.NLU.OllamaBaseURL != "" {
		answers = nlu.NewOllamaProvider(cfg.NLU.OllamaBaseURL, cfg.NLU.OllamaModel)
		log.Printf("✅ Guarded answers enabled via %s (%s)", cfg.NLU.OllamaBaseURL, cfg.NLU.OllamaModel)
	} else {
		log.Println("⚠️  OLLAMA_BASE_URL not set - guarded answers disabled")
	}

	// Dialogue machine
	confirmations := services.NewConfirmations(store, messenger)
	editFlow := services.NewEditFlow(store, messenger, confirmations)
	feedbackFlow := services.NewFeedbackFlow(store, messenger)
	menuFlow := services.NewMenuFlow(store, messenger, cfg.App.MenuDebounce)
	promosFlow := services.NewPromosFlow(store, messenger)
	humanFlow := services.NewHumanFlow(messenger, services.Contact{
		Name:  os.Getenv("SALES_CONTACT_NAME"),
		Phone: os.Getenv("SALES_CONTACT_PHONE"),
	})
	searchFlow := services.NewSearchFlow(store, messenger, extractor, answers, cfg.Search.MaxDisambigRounds)
	authFlow := services.NewAuthFlow(store, messenger, menuFlow, cfg.Session.VerificationTTL)

	// the search flow is the catch-all and must stay last
	router := services.NewRouter(store, authFlow, confirmations, editFlow, feedbackFlow,
		[]services.FlowHandler{menuFlow, editFlow, feedbackFlow, promosFlow, humanFlow, searchFlow},
	)

	// Background feedback scheduler
	feedbackJob := jobs.NewFeedbackJob(store, messenger, cfg.Feedback)
	feedbackJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Asistente Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint with storage status
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Asistente Backend API",
			"version":     "1.0.0",
			"status":      "healthy",
			"environment": cfg.App.Environment,
			"storage":     storageType(cfg),
			"whatsapp": fiber.Map{
				"configured": cfg.Twilio.AccountSID != "",
			},
			"services": fiber.Map{
				"dialogue_router":    "active",
				"feedback_scheduler": "active",
			},
		})
	})

	webhookHandler := handlers.NewWebhookHandler(router)
	routes.SetupRoutes(app, cfg, webhookHandler)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping feedback job...")
		feedbackJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Asistente Backend starting on port %s", cfg.App.Port)
	log.Printf("📊 Storage: %s", storageType(cfg))
	log.Printf("🌍 Environment: %s", cfg.App.Environment)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.App.Port))
}

func storageType(cfg *config.Config) string {
	if cfg.App.UseMemoryStore {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
