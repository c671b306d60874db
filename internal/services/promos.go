package services

import (
	"fmt"
	"strings"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// PromosFlow lists the active promotions.
type PromosFlow struct {
	store     storage.Store
	messenger Messenger
}

func NewPromosFlow(store storage.Store, messenger Messenger) *PromosFlow {
	return &PromosFlow{store: store, messenger: messenger}
}

func (p *PromosFlow) Handle(f *FlowContext) (bool, error) {
	if f.Tag != intent.TagPromociones {
		return false, nil
	}

	promos, err := p.store.GetActivePromotions()
	if err != nil {
		return true, err
	}
	if len(promos) == 0 {
		return true, p.messenger.SendText(f.Phone, "Por ahora no hay promociones vigentes. ¡Volvé a preguntar pronto!")
	}

	var b strings.Builder
	b.WriteString("🏷️ Promociones vigentes:\n")
	for _, promo := range promos {
		fmt.Fprintf(&b, "\n*%s*\n%s\n", promo.Titulo, promo.Detalle)
	}
	return true, p.messenger.SendText(f.Phone, b.String())
}
