package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// fakeMessenger records every outbound send for assertions.
type fakeMessenger struct {
	mu    sync.Mutex
	sends []string
}

func (m *fakeMessenger) record(kind, to, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, fmt.Sprintf("%s|%s|%s", kind, to, body))
}

func (m *fakeMessenger) SendText(to, body string) error {
	m.record("text", to, body)
	return nil
}

func (m *fakeMessenger) SendButtons(to, body string, options []ButtonOption) error {
	if err := validateButtons(options); err != nil {
		return err
	}
	m.record("buttons", to, body)
	return nil
}

func (m *fakeMessenger) SendList(to, body, header, buttonLabel string, sections []ListSection) error {
	m.record("list", to, body)
	return nil
}

func (m *fakeMessenger) SendContactCard(to string, contact Contact) error {
	m.record("contact", to, contact.Name)
	return nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func (m *fakeMessenger) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return ""
	}
	return m.sends[len(m.sends)-1]
}

const (
	testPhone = "+5491122334455"
	testCUIT  = "20123456786"
)

func newTestRouter(store *storage.MemoryStore, messenger Messenger) *Router {
	confirmations := NewConfirmations(store, messenger)
	edit := NewEditFlow(store, messenger, confirmations)
	feedback := NewFeedbackFlow(store, messenger)
	menu := NewMenuFlow(store, messenger, time.Millisecond)
	promos := NewPromosFlow(store, messenger)
	human := NewHumanFlow(messenger, Contact{Name: "Ventas", Phone: "+5491100000000"})
	search := NewSearchFlow(store, messenger, nlu.NewHeuristicExtractor(), nil, 2)
	auth := NewAuthFlow(store, messenger, menu, 60*24*time.Hour)

	return NewRouter(store, auth, confirmations, edit, feedback,
		[]FlowHandler{menu, edit, feedback, promos, human, search},
	)
}

func seedCatalog(store *storage.MemoryStore) {
	products := []models.Product{
		{Nombre: "Otimax gotas", Marca: "VetLab", Presentacion: "20ml", Droga: "gentamicina", Accion: "otitis", Stock: 120, Visible: true},
		{Nombre: "Oticure", Marca: "Sanovet", Presentacion: "15ml", Droga: "miconazol", Accion: "otitis", Stock: 40, Visible: true},
		{Nombre: "Pulgoff pipeta", Marca: "VetLab", Presentacion: "1 dosis", Droga: "fipronil", Accion: "antiparasitario", Stock: 300, Visible: true},
	}
	for i := range products {
		products[i].ID = uint(i + 1)
		store.AddProduct(products[i])
	}
}

func TestAuthGateRejectsUntilValidCUIT(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, "hola")

	session, err := store.GetSession(testPhone)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCUIT, session.State)
	assert.Nil(t, session.CUIT)
	assert.Contains(t, messenger.last(), "CUIT")

	// malformed identifier re-prompts, no further routing
	router.Process(testPhone, "20123456785")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingCUIT, session.State)
}

func TestAuthGateVerifiesValidCUIT(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	before := time.Now()
	router.Process(testPhone, "20-12345678-6")

	session, err := store.GetSession(testPhone)
	require.NoError(t, err)
	assert.Equal(t, models.StateVerified, session.State)
	require.NotNil(t, session.CUIT)
	assert.Equal(t, testCUIT, *session.CUIT)
	require.NotNil(t, session.ExpiresAt)
	ttl := session.ExpiresAt.Sub(before)
	assert.InDelta(t, (60 * 24 * time.Hour).Hours(), ttl.Hours(), 1)

	// greeting plus menu went out
	assert.GreaterOrEqual(t, messenger.count(), 2)
}

func TestExpiredSessionReentersAuthGate(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)

	// force expiry while State still says verified
	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)
	_, err := store.UpsertVerified(testPhone, testCUIT, -time.Hour)
	require.NoError(t, err)
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)
	assert.False(t, session.IsVerified(time.Now()))

	router.Process(testPhone, "hola")
	assert.Contains(t, messenger.last(), "CUIT")
}

func TestEditNombreEndToEnd(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte", Email: "norte@ejemplo.com"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)

	router.Process(testPhone, "cambiar mi nombre")
	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingNombreValue, session.State)

	router.Process(testPhone, "Clínica Sur")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateConfirm, session.State)
	p := session.Pending()
	require.NotNil(t, p)
	assert.Equal(t, models.PendingEditNombre, p.Kind)
	assert.Equal(t, "Clínica Sur", p.Value)
	assert.Equal(t, "Veterinaria Norte", p.PrevValue)
	assert.Equal(t, models.StateVerified, p.PriorState)

	// "no" cancels: prior state restored, pending cleared, name unchanged
	router.Process(testPhone, "no")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)
	assert.Nil(t, session.Pending())
	customer, err := store.GetCustomerByCUIT(testCUIT)
	require.NoError(t, err)
	assert.Equal(t, "Veterinaria Norte", customer.Nombre)
}

func TestCancelRestoresSearchState(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(store)
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "antiparasitario para perros")

	session, _ := store.GetSession(testPhone)
	require.Equal(t, models.StateAwaitingConsulta, session.State)

	router.Process(testPhone, "cambiar mi nombre")
	session, _ = store.GetSession(testPhone)
	p := session.Pending()
	require.NotNil(t, p)
	assert.Equal(t, models.StateAwaitingConsulta, p.PriorState)

	router.Process(testPhone, "Clínica Sur")
	router.Process(testPhone, "no")

	// cancel lands back mid-search, not on the default ready state
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingConsulta, session.State)
	assert.Nil(t, session.Pending())
}

func TestBlankValueInCaptureReprompts(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cambiar mi nombre")
	router.Process(testPhone, "  ")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingNombreValue, session.State)
	assert.Contains(t, messenger.last(), "3 y 80")
}

func TestConfirmPersistsEdit(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cambiar mi nombre")
	router.Process(testPhone, "Clínica Sur")
	router.Process(testPhone, "si")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)
	assert.Nil(t, session.Pending())
	customer, _ := store.GetCustomerByCUIT(testCUIT)
	assert.Equal(t, "Clínica Sur", customer.Nombre)
}

func TestUnrecognizedReplyReasksIdentically(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cambiar mi nombre")
	router.Process(testPhone, "Clínica Sur")

	firstPrompt := messenger.last()
	session, _ := store.GetSession(testPhone)
	pendingBefore := *session.PendingJSON

	router.Process(testPhone, "qué?")

	assert.Equal(t, firstPrompt, messenger.last())
	session, _ = store.GetSession(testPhone)
	require.NotNil(t, session.PendingJSON)
	assert.Equal(t, pendingBefore, *session.PendingJSON)
	assert.Equal(t, models.StateConfirm, session.State)
}

func TestBackReturnsToCaptureState(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Nombre: "Veterinaria Norte"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cambiar mi nombre")
	router.Process(testPhone, "Clínica Sur")
	router.Process(testPhone, "volver")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingNombreValue, session.State)
	p := session.Pending()
	require.NotNil(t, p)
	assert.Empty(t, p.Value)
	assert.Equal(t, "Veterinaria Norte", p.PrevValue)
	assert.Contains(t, messenger.last(), "Veterinaria Norte")
}

func TestInvalidEmailReprompts(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddCustomer(models.Customer{CUIT: testCUIT, Email: "norte@ejemplo.com"})
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cambiar mi email")
	router.Process(testPhone, "no-es-un-email")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingEmailValue, session.State)
	assert.Contains(t, messenger.last(), "válido")
}

func TestLogoutConfirmResetsSession(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "cerrar sesión")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateConfirmLogout, session.State)

	router.Process(testPhone, "si")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingCUIT, session.State)
	assert.Nil(t, session.CUIT)
	assert.Nil(t, session.ExpiresAt)
	assert.Nil(t, session.Pending())
}

func TestSearchConfidentRecommendation(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(store)
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "antiparasitario para perros")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingConsulta, session.State)
	sc := session.Search()
	require.NotNil(t, sc)
	assert.Contains(t, sc.Must, "antiparasitario")
}

func TestDisambigSelectionChecksAvailability(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCatalog(store)
	gone := models.Product{Nombre: "Retirado spray", Marca: "VetLab", Presentacion: "100ml", Stock: 10, Visible: true, Discontinuado: true}
	gone.ID = 9
	store.AddProduct(gone)
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)

	router.Process(testPhone, "disambig:1")
	assert.Contains(t, messenger.last(), "Otimax")

	// discontinued between the shortlist and the tap
	router.Process(testPhone, "disambig:9")
	assert.Contains(t, messenger.last(), "ya no está disponible")
	assert.NotContains(t, messenger.last(), "Retirado")
}

func TestFeedbackCommentCapture(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "fb_comentario")

	session, _ := store.GetSession(testPhone)
	assert.Equal(t, models.StateAwaitingFeedbackText, session.State)

	router.Process(testPhone, "Muy bueno el asistente")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)

	entries := store.FeedbackEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.FeedbackComentario, entries[0].Kind)
	assert.Equal(t, "Muy bueno el asistente", entries[0].Comment)
	assert.NotEmpty(t, entries[0].ID)

	session, _ = store.GetSession(testPhone)
	assert.NotNil(t, session.FeedbackLastResponseAt)
}

func TestFeedbackCaptureMenuExits(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "fb_comentario")

	session, _ := store.GetSession(testPhone)
	require.Equal(t, models.StateAwaitingFeedbackText, session.State)

	// "menu" is the promised exit, never a comment
	router.Process(testPhone, "menu")
	session, _ = store.GetSession(testPhone)
	assert.Equal(t, models.StateVerified, session.State)
	assert.Empty(t, store.FeedbackEntries())
}

func TestHumanHandoffSendsContact(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := &fakeMessenger{}
	router := newTestRouter(store, messenger)

	router.Process(testPhone, testCUIT)
	router.Process(testPhone, "quiero hablar con un asesor")

	assert.Contains(t, messenger.last(), "Ventas")
}
