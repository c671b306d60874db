package services

import (
	"log"

	"github.com/distrivet/asistente-backend/internal/intent"
)

// HumanFlow hands the conversation off to a human agent by sharing the
// sales desk contact.
type HumanFlow struct {
	messenger Messenger
	contact   Contact
}

func NewHumanFlow(messenger Messenger, contact Contact) *HumanFlow {
	return &HumanFlow{messenger: messenger, contact: contact}
}

func (h *HumanFlow) Handle(f *FlowContext) (bool, error) {
	if f.Tag != intent.TagHumano {
		return false, nil
	}

	if err := h.messenger.SendText(f.Phone, "Te paso el contacto de nuestro equipo comercial, escribiles directo y te responden en horario hábil. 🙂"); err != nil {
		return true, err
	}
	if err := h.messenger.SendContactCard(f.Phone, h.contact); err != nil {
		log.Printf("Failed to send contact card to %s: %v", f.Phone, err)
	}
	return true, nil
}
