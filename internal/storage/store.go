package storage

import (
	"errors"
	"time"

	"github.com/distrivet/asistente-backend/internal/models"
)

// ErrNotFound distinguishes an absent record from a store failure. The
// router must never read a transient store error as "not verified".
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations of the assistant. All session
// operations are point lookups/updates keyed by phone; no cross-session
// transaction exists.
type Store interface {
	// Session operations
	GetSession(phone string) (*models.Session, error)
	CreateSessionIfAbsent(phone string) (*models.Session, error)
	SetSessionState(phone string, state models.SessionState) error
	SetPending(phone string, p *models.PendingAction) error
	ClearPending(phone string) error
	SetSearchContext(phone string, sc *models.SearchContext) error
	UpsertVerified(phone, cuit string, ttl time.Duration) (*models.Session, error)
	Logout(phone string) error
	TouchSession(phone string) error

	// Feedback operations
	GetFeedbackCandidates(now time.Time, inactivity, cooldown, window time.Duration) ([]*models.Session, error)
	SetFeedbackPromptAt(phone string, at time.Time) error
	SetFeedbackResponseAt(phone string, at time.Time) error
	RecordFeedback(entry *models.FeedbackEntry) error

	// Customer profile
	GetCustomerByCUIT(cuit string) (*models.Customer, error)
	UpdateCustomerNombre(cuit, nombre string) error
	UpdateCustomerEmail(cuit, email string) error

	// Catalog (read-only from the assistant's perspective)
	SearchProducts(term string) ([]models.Product, error)
	GetProductByID(id uint) (*models.Product, error)
	TopStockProducts(n int) ([]models.Product, error)
	GetActivePromotions() ([]models.Promotion, error)
	GetActivePromotionsFor(productID uint) ([]models.Promotion, error)
}
