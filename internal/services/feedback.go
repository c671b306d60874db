package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// FeedbackFlow captures satisfaction responses: the two one-tap options
// and the free-text comment path.
type FeedbackFlow struct {
	store     storage.Store
	messenger Messenger
}

func NewFeedbackFlow(store storage.Store, messenger Messenger) *FeedbackFlow {
	return &FeedbackFlow{store: store, messenger: messenger}
}

func (fb *FeedbackFlow) Handle(f *FlowContext) (bool, error) {
	if f.Tag != intent.TagFeedback {
		return false, nil
	}

	switch f.Text {
	case "fb_positivo":
		return true, fb.record(f, models.FeedbackPositivo, "",
			"¡Gracias! Nos alegra que te sirva. 🙌")
	case "fb_mejorar":
		return true, fb.record(f, models.FeedbackMejorar, "",
			"Gracias por avisar. Si querés, contanos qué mejorarías.")
	case "fb_comentario":
		if err := fb.store.SetSessionState(f.Phone, models.StateAwaitingFeedbackText); err != nil {
			return true, err
		}
		return true, fb.messenger.SendText(f.Phone, "Te leo: contanos tu experiencia con el asistente.")
	default:
		return false, nil
	}
}

// CaptureComment accepts any non-empty text verbatim (bounded) while the
// session awaits a feedback comment. "menu" exits without recording, as
// the re-prompt promises.
func (fb *FeedbackFlow) CaptureComment(f *FlowContext) error {
	switch f.Tag {
	case intent.TagVacio:
		return fb.messenger.SendText(f.Phone, "Contanos tu experiencia en un mensaje, o escribí \"menu\" para volver.")
	case intent.TagMenu:
		if err := fb.store.SetSessionState(f.Phone, models.StateVerified); err != nil {
			return err
		}
		return fb.messenger.SendText(f.Phone, "Listo, dejamos el comentario para otro momento. 👍")
	}
	return fb.record(f, models.FeedbackComentario, models.TruncateComment(f.Text),
		"¡Gracias por el comentario! Lo tenemos en cuenta. 🙌")
}

func (fb *FeedbackFlow) record(f *FlowContext, kind models.FeedbackKind, comment, thanks string) error {
	entry := &models.FeedbackEntry{
		ID:        uuid.NewString(),
		Phone:     f.Phone,
		Kind:      kind,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	if err := fb.store.RecordFeedback(entry); err != nil {
		return err
	}
	if err := fb.store.SetFeedbackResponseAt(f.Phone, entry.CreatedAt); err != nil {
		return err
	}

	next := models.StateVerified
	if f.Session.State == models.StateAwaitingConsulta {
		next = models.StateAwaitingConsulta
	}
	if err := fb.store.SetSessionState(f.Phone, next); err != nil {
		return err
	}

	if err := fb.messenger.SendText(f.Phone, thanks); err != nil {
		log.Printf("Failed to send feedback thanks to %s: %v", f.Phone, err)
	}
	return nil
}
