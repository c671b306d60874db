package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// EditFlow drives profile edits (nombre, email) and the logout entry.
// Both funnel through the confirmation protocol before anything is
// persisted.
type EditFlow struct {
	store         storage.Store
	messenger     Messenger
	confirmations *Confirmations
	validate      *validator.Validate
}

func NewEditFlow(store storage.Store, messenger Messenger, confirmations *Confirmations) *EditFlow {
	return &EditFlow{
		store:         store,
		messenger:     messenger,
		confirmations: confirmations,
		validate:      validator.New(),
	}
}

func (e *EditFlow) Handle(f *FlowContext) (bool, error) {
	switch f.Tag {
	case intent.TagEditar:
		options := []ButtonOption{
			{ID: "edit_nombre", Title: "Cambiar nombre"},
			{ID: "edit_email", Title: "Cambiar email"},
		}
		return true, e.messenger.SendButtons(f.Phone, "¿Qué dato querés actualizar?", options)

	case intent.TagEditarNombre:
		return true, e.enterCapture(f, models.PendingEditNombre)

	case intent.TagEditarEmail:
		return true, e.enterCapture(f, models.PendingEditEmail)

	case intent.TagLogout:
		return true, e.confirmations.Propose(f.Phone, &models.PendingAction{
			Kind:       models.PendingLogout,
			PriorState: f.Session.State,
		})

	default:
		return false, nil
	}
}

// enterCapture stashes a pending skeleton carrying the current value and
// the pre-capture state, then moves to the matching value-capture state.
func (e *EditFlow) enterCapture(f *FlowContext, kind models.PendingKind) error {
	prev := e.currentValue(f.Session, kind)

	p := &models.PendingAction{
		Kind:       kind,
		PrevValue:  prev,
		PriorState: f.Session.State,
	}
	if err := e.store.SetPending(f.Phone, p); err != nil {
		return err
	}

	captureState, prompt := captureStateFor(p)
	if err := e.store.SetSessionState(f.Phone, captureState); err != nil {
		return err
	}
	return e.messenger.SendText(f.Phone, prompt)
}

// CaptureValue handles one turn in a value-capture state: validate the
// raw text, and on success propose the confirmation. Validation failures
// re-prompt without changing state.
func (e *EditFlow) CaptureValue(f *FlowContext) error {
	p := f.Session.Pending()
	if p == nil {
		// capture state without a pending skeleton should not happen;
		// recover by returning to the menu state
		log.Printf("Capture state without pending for %s, resetting", f.Phone)
		return e.store.SetSessionState(f.Phone, models.StateVerified)
	}

	value := strings.TrimSpace(f.Text)
	if reason := e.invalidReason(p.Kind, value); reason != "" {
		return e.messenger.SendText(f.Phone, reason)
	}

	p.Value = value
	return e.confirmations.Propose(f.Phone, p)
}

// Apply executes a confirmed pending action. The switch is exhaustive
// over the pending union.
func (e *EditFlow) Apply(f *FlowContext, p *models.PendingAction) error {
	switch p.Kind {
	case models.PendingEditNombre:
		if f.Session.CUIT != nil {
			if err := e.store.UpdateCustomerNombre(*f.Session.CUIT, p.Value); err != nil && err != storage.ErrNotFound {
				return err
			}
		}
		if err := e.finishEdit(f, p); err != nil {
			return err
		}
		return e.messenger.SendText(f.Phone, fmt.Sprintf("✅ Listo, actualicé el nombre a *%s*.", p.Value))

	case models.PendingEditEmail:
		if f.Session.CUIT != nil {
			if err := e.store.UpdateCustomerEmail(*f.Session.CUIT, p.Value); err != nil && err != storage.ErrNotFound {
				return err
			}
		}
		if err := e.finishEdit(f, p); err != nil {
			return err
		}
		return e.messenger.SendText(f.Phone, fmt.Sprintf("✅ Listo, actualicé el email a *%s*.", p.Value))

	case models.PendingLogout:
		if err := e.store.Logout(f.Phone); err != nil {
			return err
		}
		return e.messenger.SendText(f.Phone, "Cerré tu sesión. Cuando quieras volver, envianos tu CUIT. 👋")

	default:
		return fmt.Errorf("unknown pending kind %q", p.Kind)
	}
}

// finishEdit clears the pending action and returns to a ready state,
// preferring the pre-capture one when it was already a ready state.
func (e *EditFlow) finishEdit(f *FlowContext, p *models.PendingAction) error {
	if err := e.store.ClearPending(f.Phone); err != nil {
		return err
	}
	next := models.StateVerified
	if p.PriorState == models.StateAwaitingConsulta {
		next = models.StateAwaitingConsulta
	}
	return e.store.SetSessionState(f.Phone, next)
}

func (e *EditFlow) invalidReason(kind models.PendingKind, value string) string {
	switch kind {
	case models.PendingEditNombre:
		if len([]rune(value)) < 3 || len([]rune(value)) > 80 {
			return "El nombre tiene que tener entre 3 y 80 caracteres. Probá de nuevo."
		}
	case models.PendingEditEmail:
		if e.validate.Var(value, "required,email") != nil {
			return "Ese email no parece válido. Probá de nuevo (ej: clinica@ejemplo.com)."
		}
	}
	return ""
}

func (e *EditFlow) currentValue(session *models.Session, kind models.PendingKind) string {
	if session.CUIT == nil {
		return ""
	}
	customer, err := e.store.GetCustomerByCUIT(*session.CUIT)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Printf("Failed to load customer %s: %v", *session.CUIT, err)
		}
		return ""
	}
	if kind == models.PendingEditNombre {
		return customer.Nombre
	}
	return customer.Email
}
