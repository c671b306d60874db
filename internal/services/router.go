package services

import (
	"fmt"
	"log"
	"time"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// FlowContext carries everything a flow handler needs for one inbound
// turn.
type FlowContext struct {
	Phone   string
	Text    string
	Tag     intent.Tag
	Session *models.Session
}

// FlowHandler is the contract every flow implements. A false return
// means "not applicable, try the next handler".
type FlowHandler interface {
	Handle(f *FlowContext) (bool, error)
}

// Router dispatches each inbound (phone, text) pair through the dialogue
// state machine. It performs no sends itself; side effects belong to the
// flows.
type Router struct {
	store         storage.Store
	auth          *AuthFlow
	confirmations *Confirmations
	edit          *EditFlow
	feedback      *FeedbackFlow
	handlers      []FlowHandler
}

func NewRouter(
	store storage.Store,
	auth *AuthFlow,
	confirmations *Confirmations,
	edit *EditFlow,
	feedback *FeedbackFlow,
	handlers []FlowHandler,
) *Router {
	return &Router{
		store:         store,
		auth:          auth,
		confirmations: confirmations,
		edit:          edit,
		feedback:      feedback,
		handlers:      handlers,
	}
}

// Process handles one inbound message to completion. Downstream errors
// are logged and swallowed here: the platform already got its ack and the
// message is never retried.
func (r *Router) Process(phone, text string) {
	if err := r.handle(phone, text); err != nil {
		log.Printf("❌ Error processing message from %s: %v", phone, err)
	}
}

func (r *Router) handle(phone, text string) error {
	session, err := r.store.CreateSessionIfAbsent(phone)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	now := time.Now()
	log.Printf("📱 Message from %s (state %s): %q", phone, session.State, text)

	// 1. Auth gate: unverified or expired sessions only ever advance on a
	// well-formed CUIT. Store failures propagate; they never read as
	// "not verified".
	if !session.IsVerified(now) {
		return r.auth.Verify(phone, text)
	}

	if err := r.store.TouchSession(phone); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	tag := intent.Classify(text)
	fctx := &FlowContext{Phone: phone, Text: text, Tag: tag, Session: session}

	// 2. Value-capture states. Blank input fails value validation there
	// and re-prompts like any other invalid value.
	switch session.State {
	case models.StateAwaitingNombreValue, models.StateAwaitingEmailValue:
		return r.edit.CaptureValue(fctx)

	// 3. Confirm states
	case models.StateConfirm, models.StateConfirmLogout:
		return r.handleConfirmState(fctx)

	// 4. Feedback comment capture
	case models.StateAwaitingFeedbackText:
		return r.feedback.CaptureComment(fctx)
	}

	// 5. Intent dispatch over the handler chain.
	for _, h := range r.handlers {
		handled, err := h.Handle(fctx)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	// the search flow catches free text, so this only happens when the
	// chain is misconfigured
	log.Printf("⚠️  No handler for tag %q from %s", tag, phone)
	return nil
}

// handleConfirmState resolves a reply against the open pending action.
func (r *Router) handleConfirmState(f *FlowContext) error {
	p := f.Session.Pending()
	if p == nil {
		log.Printf("Confirm state without pending for %s, resetting", f.Phone)
		return r.store.SetSessionState(f.Phone, models.StateVerified)
	}

	switch Resolve(f.Tag) {
	case ResolutionConfirm:
		return r.edit.Apply(f, p)
	case ResolutionCancel:
		return r.confirmations.Cancel(f.Phone, p)
	case ResolutionBack:
		return r.confirmations.Back(f.Phone, p)
	default:
		// idempotent re-ask: same prompt, same pending payload
		return r.confirmations.Reprompt(f.Phone, p)
	}
}
