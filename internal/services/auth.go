package services

import (
	"fmt"
	"log"
	"time"

	"github.com/distrivet/asistente-backend/internal/cuit"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// AuthFlow owns the verification gate. Unverified or expired sessions
// only ever advance through here, on a checksum-valid CUIT.
type AuthFlow struct {
	store           storage.Store
	messenger       Messenger
	menu            *MenuFlow
	verificationTTL time.Duration
}

func NewAuthFlow(store storage.Store, messenger Messenger, menu *MenuFlow, verificationTTL time.Duration) *AuthFlow {
	return &AuthFlow{
		store:           store,
		messenger:       messenger,
		menu:            menu,
		verificationTTL: verificationTTL,
	}
}

// Verify handles one turn at the gate: re-prompt until a valid CUIT
// arrives, then mark the session verified, greet and show the menu.
func (a *AuthFlow) Verify(phone, text string) error {
	candidate := cuit.Normalize(text)
	if !cuit.Valid(candidate) {
		return a.messenger.SendText(phone,
			"Para usar el asistente necesito verificar tu cuenta.\nEnviame tu CUIT (11 dígitos, ej: 20-12345678-6).")
	}

	session, err := a.store.UpsertVerified(phone, candidate, a.verificationTTL)
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}

	greeting := "✅ ¡CUIT verificado! Bienvenido de nuevo."
	if customer, err := a.store.GetCustomerByCUIT(candidate); err == nil && customer.Nombre != "" {
		greeting = fmt.Sprintf("✅ ¡CUIT verificado! Hola, %s.", customer.Nombre)
	}
	if err := a.messenger.SendText(phone, greeting); err != nil {
		log.Printf("Failed to send greeting to %s: %v", phone, err)
	}

	log.Printf("Session verified for %s until %s", phone, session.ExpiresAt.Format(time.RFC3339))

	// show the menu right away so the user knows what to do next
	return a.menu.SendMenu(phone)
}
