package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/distrivet/asistente-backend/internal/services"
)

// WebhookHandler receives the platform's inbound message envelopes.
type WebhookHandler struct {
	router *services.Router
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(router *services.Router) *WebhookHandler {
	return &WebhookHandler{router: router}
}

// WebhookEnvelope is the platform's JSON payload: change entries, each
// carrying zero or more text or interactive messages.
type WebhookEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []InboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is one message inside an envelope.
type InboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
		ListReply *struct {
			ID string `json:"id"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// Normalize flattens both message kinds into a (from, text) pair. The
// second return is false for kinds the assistant does not consume
// (media, stickers, status updates).
func (m *InboundMessage) Normalize() (from, text string, ok bool) {
	from = strings.TrimPrefix(m.From, "whatsapp:")
	switch m.Type {
	case "text":
		if m.Text == nil {
			return "", "", false
		}
		return from, m.Text.Body, true
	case "interactive":
		if m.Interactive == nil {
			return "", "", false
		}
		if m.Interactive.ButtonReply != nil {
			return from, m.Interactive.ButtonReply.ID, true
		}
		if m.Interactive.ListReply != nil {
			return from, m.Interactive.ListReply.ID, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}

// HandleWebhook acks the platform immediately and processes the batch in
// the background, each message to completion before the next. A failed
// message never aborts the rest of the batch.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var envelope WebhookEnvelope
	if err := c.BodyParser(&envelope); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	var batch []InboundMessage
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			batch = append(batch, change.Value.Messages...)
		}
	}

	go h.processBatch(batch)

	// ack before processing so platform retries never depend on outcome
	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) processBatch(batch []InboundMessage) {
	for _, msg := range batch {
		from, text, ok := msg.Normalize()
		if !ok || from == "" {
			continue
		}
		h.router.Process(from, text)
	}
}

// TestWebhookPayload feeds a single message through the pipeline without
// the platform envelope, for development.
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes a test message synchronously.
func (h *WebhookHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s", payload.From, payload.Message)
	h.router.Process(payload.From, payload.Message)

	return c.JSON(fiber.Map{"success": true})
}
