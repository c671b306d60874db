package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/distrivet/asistente-backend/internal/config"
	"github.com/distrivet/asistente-backend/internal/handlers"
	"github.com/distrivet/asistente-backend/internal/middleware"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, cfg *config.Config, webhook *handlers.WebhookHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	webhooks := app.Group("/webhook")

	// signature validation is skipped in development or when no secret is
	// configured
	if cfg.App.Environment == "development" || cfg.App.WebhookSecret == "" {
		webhooks.Post("/whatsapp", webhook.HandleWebhook)
		if cfg.App.Environment == "development" {
			log.Println("⚠️  Webhook signature validation DISABLED for development")
		}
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateSignature(cfg.App.WebhookSecret), webhook.HandleWebhook)
	}

	// development only
	app.Post("/test/whatsapp", webhook.HandleTestWebhook)
}
