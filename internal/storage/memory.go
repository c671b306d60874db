package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/distrivet/asistente-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local development.
type MemoryStore struct {
	sessions  map[string]*models.Session
	customers map[string]*models.Customer
	products  map[uint]*models.Product
	promos    []models.Promotion
	feedback  []models.FeedbackEntry

	sessionMu sync.RWMutex
	catalogMu sync.RWMutex

	sessionCounter uint
}

// NewMemoryStore creates a new in-memory storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*models.Session),
		customers: make(map[string]*models.Customer),
		products:  make(map[uint]*models.Product),
	}
}

// Seed helpers used by tests and the dev bootstrap.

func (m *MemoryStore) AddProduct(p models.Product) {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	m.products[p.ID] = &p
}

func (m *MemoryStore) AddPromotion(promo models.Promotion) {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	m.promos = append(m.promos, promo)
}

func (m *MemoryStore) AddCustomer(c models.Customer) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	m.customers[c.CUIT] = &c
}

// FeedbackEntries returns recorded feedback, for test assertions.
func (m *MemoryStore) FeedbackEntries() []models.FeedbackEntry {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()
	out := make([]models.FeedbackEntry, len(m.feedback))
	copy(out, m.feedback)
	return out
}

// Session operations

func (m *MemoryStore) GetSession(phone string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[phone]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) CreateSessionIfAbsent(phone string) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if session, exists := m.sessions[phone]; exists {
		copied := *session
		return &copied, nil
	}

	m.sessionCounter++
	session := &models.Session{
		Phone: phone,
		State: models.StateAwaitingCUIT,
	}
	session.ID = m.sessionCounter
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()

	m.sessions[phone] = session
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) mutateSession(phone string, fn func(*models.Session)) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[phone]
	if !exists {
		return ErrNotFound
	}
	fn(session)
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetSessionState(phone string, state models.SessionState) error {
	return m.mutateSession(phone, func(s *models.Session) {
		s.State = state
	})
}

func (m *MemoryStore) SetPending(phone string, p *models.PendingAction) error {
	encoded, err := models.EncodePending(p)
	if err != nil {
		return err
	}
	return m.mutateSession(phone, func(s *models.Session) {
		s.PendingJSON = encoded
	})
}

func (m *MemoryStore) ClearPending(phone string) error {
	return m.mutateSession(phone, func(s *models.Session) {
		s.PendingJSON = nil
	})
}

func (m *MemoryStore) SetSearchContext(phone string, sc *models.SearchContext) error {
	encoded, err := models.EncodeSearch(sc)
	if err != nil {
		return err
	}
	return m.mutateSession(phone, func(s *models.Session) {
		s.SearchJSON = encoded
	})
}

func (m *MemoryStore) UpsertVerified(phone, cuit string, ttl time.Duration) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[phone]
	if !exists {
		m.sessionCounter++
		session = &models.Session{Phone: phone}
		session.ID = m.sessionCounter
		session.CreatedAt = time.Now()
		m.sessions[phone] = session
	}

	now := time.Now()
	expires := now.Add(ttl)
	session.CUIT = &cuit
	session.VerifiedAt = &now
	session.ExpiresAt = &expires
	session.State = models.StateVerified
	session.PendingJSON = nil
	session.FeedbackLastPromptAt = nil
	session.FeedbackLastResponseAt = nil
	session.UpdatedAt = now

	copied := *session
	return &copied, nil
}

func (m *MemoryStore) Logout(phone string) error {
	return m.mutateSession(phone, func(s *models.Session) {
		s.CUIT = nil
		s.VerifiedAt = nil
		s.ExpiresAt = nil
		s.PendingJSON = nil
		s.SearchJSON = nil
		s.State = models.StateAwaitingCUIT
	})
}

func (m *MemoryStore) TouchSession(phone string) error {
	return m.mutateSession(phone, func(s *models.Session) {})
}

// Feedback operations

func (m *MemoryStore) GetFeedbackCandidates(now time.Time, inactivity, cooldown, window time.Duration) ([]*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if !s.IsVerified(now) {
			continue
		}
		// only idle sessions are prompted, never mid-flow ones
		if s.State != models.StateVerified && s.State != models.StateAwaitingConsulta {
			continue
		}
		idle := now.Sub(s.UpdatedAt)
		if idle < inactivity || idle > window {
			continue
		}
		if s.FeedbackLastPromptAt != nil && now.Sub(*s.FeedbackLastPromptAt) < cooldown {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MemoryStore) SetFeedbackPromptAt(phone string, at time.Time) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[phone]
	if !exists {
		return ErrNotFound
	}
	// bookkeeping only: UpdatedAt stays, the prompt is not user activity
	session.FeedbackLastPromptAt = &at
	return nil
}

func (m *MemoryStore) SetFeedbackResponseAt(phone string, at time.Time) error {
	return m.mutateSession(phone, func(s *models.Session) {
		s.FeedbackLastResponseAt = &at
	})
}

func (m *MemoryStore) RecordFeedback(entry *models.FeedbackEntry) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	m.feedback = append(m.feedback, *entry)
	return nil
}

// Customer profile

func (m *MemoryStore) GetCustomerByCUIT(cuit string) (*models.Customer, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	customer, exists := m.customers[cuit]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

func (m *MemoryStore) UpdateCustomerNombre(cuit, nombre string) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	customer, exists := m.customers[cuit]
	if !exists {
		return ErrNotFound
	}
	customer.Nombre = nombre
	return nil
}

func (m *MemoryStore) UpdateCustomerEmail(cuit, email string) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	customer, exists := m.customers[cuit]
	if !exists {
		return ErrNotFound
	}
	customer.Email = email
	return nil
}

// Catalog operations

func (m *MemoryStore) SearchProducts(term string) ([]models.Product, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	needle := strings.ToLower(term)
	var out []models.Product
	for _, p := range m.products {
		if !p.Visible || p.Discontinuado {
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{
			p.Nombre, p.Marca, p.Presentacion, p.Droga, p.Accion,
		}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetProductByID(id uint) (*models.Product, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	p, exists := m.products[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MemoryStore) TopStockProducts(n int) ([]models.Product, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	var visible []models.Product
	for _, p := range m.products {
		if p.Visible && !p.Discontinuado {
			visible = append(visible, *p)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].Stock > visible[j].Stock })
	if len(visible) > n {
		visible = visible[:n]
	}
	return visible, nil
}

func (m *MemoryStore) GetActivePromotions() ([]models.Promotion, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	now := time.Now()
	var out []models.Promotion
	for _, promo := range m.promos {
		if promo.Activa && (promo.HastaAt == nil || promo.HastaAt.After(now)) {
			out = append(out, promo)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetActivePromotionsFor(productID uint) ([]models.Promotion, error) {
	all, err := m.GetActivePromotions()
	if err != nil {
		return nil, err
	}
	var out []models.Promotion
	for _, promo := range all {
		if promo.ProductID != nil && *promo.ProductID == productID {
			out = append(out, promo)
		}
	}
	return out, nil
}
