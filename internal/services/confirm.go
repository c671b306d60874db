package services

import (
	"fmt"
	"log"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// Resolution is the outcome of reading a reply while a pending action is
// open.
type Resolution int

const (
	ResolutionConfirm Resolution = iota
	ResolutionCancel
	ResolutionBack
	ResolutionUnrecognized
)

// Resolve classifies a confirmation reply. Anything that is not an
// explicit confirm, cancel or back is unrecognized and must re-issue the
// same prompt without consuming the pending action.
func Resolve(tag intent.Tag) Resolution {
	switch tag {
	case intent.TagSi:
		return ResolutionConfirm
	case intent.TagNo:
		return ResolutionCancel
	case intent.TagVolver:
		return ResolutionBack
	default:
		return ResolutionUnrecognized
	}
}

// Confirmations implements the pending-action sub-machine shared by the
// edit and logout flows.
type Confirmations struct {
	store     storage.Store
	messenger Messenger
}

func NewConfirmations(store storage.Store, messenger Messenger) *Confirmations {
	return &Confirmations{store: store, messenger: messenger}
}

// Propose stores the pending action and moves the session into the
// matching confirm state, surfacing the confirm/back/cancel choice.
func (c *Confirmations) Propose(phone string, p *models.PendingAction) error {
	if err := c.store.SetPending(phone, p); err != nil {
		return err
	}

	state := models.StateConfirm
	if p.Kind == models.PendingLogout {
		state = models.StateConfirmLogout
	}
	if err := c.store.SetSessionState(phone, state); err != nil {
		return err
	}

	return c.sendPrompt(phone, p)
}

// Reprompt re-issues the identical confirmation prompt, leaving the
// pending payload untouched.
func (c *Confirmations) Reprompt(phone string, p *models.PendingAction) error {
	return c.sendPrompt(phone, p)
}

// Cancel discards the pending action and restores the state that was
// active before the capture began. It never hard-resets to the menu.
func (c *Confirmations) Cancel(phone string, p *models.PendingAction) error {
	if err := c.store.ClearPending(phone); err != nil {
		return err
	}

	prior := p.PriorState
	if prior == "" {
		prior = models.StateVerified
	}
	if err := c.store.SetSessionState(phone, prior); err != nil {
		return err
	}

	if err := c.messenger.SendText(phone, "Listo, no cambié nada. Seguimos donde estábamos. 👍"); err != nil {
		log.Printf("Failed to send cancel notice to %s: %v", phone, err)
	}
	return nil
}

// Back returns to the originating capture state so the user can type a
// different value. The pending action survives with its value cleared so
// PrevValue stays available for display.
func (c *Confirmations) Back(phone string, p *models.PendingAction) error {
	captureState, prompt := captureStateFor(p)
	if captureState == "" {
		// logout has no capture state to go back to
		return c.Cancel(phone, p)
	}

	cleared := *p
	cleared.Value = ""
	if err := c.store.SetPending(phone, &cleared); err != nil {
		return err
	}
	if err := c.store.SetSessionState(phone, captureState); err != nil {
		return err
	}
	return c.messenger.SendText(phone, prompt)
}

func (c *Confirmations) sendPrompt(phone string, p *models.PendingAction) error {
	options := []ButtonOption{
		{ID: "confirmar", Title: "Confirmar"},
		{ID: "cancelar", Title: "Cancelar"},
	}

	var body string
	switch p.Kind {
	case models.PendingEditNombre:
		body = fmt.Sprintf("¿Cambio el nombre de *%s* a *%s*?", p.PrevValue, p.Value)
		options = append(options, ButtonOption{ID: "volver", Title: "Volver"})
	case models.PendingEditEmail:
		body = fmt.Sprintf("¿Cambio el email de *%s* a *%s*?", p.PrevValue, p.Value)
		options = append(options, ButtonOption{ID: "volver", Title: "Volver"})
	case models.PendingLogout:
		body = "¿Seguro que querés cerrar sesión? Vas a tener que verificar tu CUIT de nuevo."
	}

	return c.messenger.SendButtons(phone, body, options)
}

// captureStateFor maps a pending kind back to its value-capture state and
// re-prompt text.
func captureStateFor(p *models.PendingAction) (models.SessionState, string) {
	switch p.Kind {
	case models.PendingEditNombre:
		return models.StateAwaitingNombreValue,
			fmt.Sprintf("Decime el nuevo nombre (actual: %s)", p.PrevValue)
	case models.PendingEditEmail:
		return models.StateAwaitingEmailValue,
			fmt.Sprintf("Decime el nuevo email (actual: %s)", p.PrevValue)
	default:
		return "", ""
	}
}
