package services

import (
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// MenuFlow answers greetings, menu requests, help, thanks and farewells.
// Menu re-sends are debounced per phone through a TTL-evicting cache so a
// burst of "hola hola menu" does not triple-send the list.
type MenuFlow struct {
	store     storage.Store
	messenger Messenger
	debounce  *gocache.Cache
}

func NewMenuFlow(store storage.Store, messenger Messenger, debounceTTL time.Duration) *MenuFlow {
	return &MenuFlow{
		store:     store,
		messenger: messenger,
		debounce:  gocache.New(debounceTTL, 2*debounceTTL),
	}
}

func (m *MenuFlow) Handle(f *FlowContext) (bool, error) {
	switch f.Tag {
	case intent.TagSaludo, intent.TagMenu, intent.TagVacio:
		return true, m.SendMenu(f.Phone)
	case intent.TagAyuda:
		return true, m.messenger.SendText(f.Phone, helpText)
	case intent.TagGracias:
		return true, m.messenger.SendText(f.Phone, "¡De nada! Cualquier otra consulta, escribime. 🐾")
	case intent.TagDespedida:
		return true, m.messenger.SendText(f.Phone, "¡Hasta luego! Acá estoy cuando necesites algo del catálogo. 👋")
	default:
		return false, nil
	}
}

// SendMenu shows the main option list, at most once per debounce window.
func (m *MenuFlow) SendMenu(phone string) error {
	if _, recent := m.debounce.Get(phone); recent {
		log.Printf("Menu debounced for %s", phone)
		return nil
	}
	m.debounce.SetDefault(phone, struct{}{})

	sections := []ListSection{{
		Title: "Opciones",
		Rows: []ListRow{
			{ID: "menu_buscar", Title: "Buscar productos", Description: "Consultá el catálogo con tus palabras"},
			{ID: "menu_promos", Title: "Promociones", Description: "Ofertas vigentes"},
			{ID: "menu_editar", Title: "Mis datos", Description: "Cambiar nombre o email"},
			{ID: "menu_humano", Title: "Hablar con un asesor", Description: "Te contactamos con una persona"},
			{ID: "menu_logout", Title: "Cerrar sesión", Description: "Salir de tu cuenta"},
		},
	}}

	return m.messenger.SendList(phone, "¿En qué te puedo ayudar?", "Menú principal", "Ver opciones", sections)
}

const helpText = `🐾 Soy el asistente del catálogo veterinario.

Podés escribirme lo que buscás con tus palabras ("antiparasitario para perros", "algo para otitis en gotas") y te recomiendo productos.

También puedo mostrarte promociones, cambiar tus datos o contactarte con un asesor. Escribí "menu" para ver las opciones.`
