package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/distrivet/asistente-backend/internal/models"
)

// DatabaseStore implements Store on top of GORM/PostgreSQL.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Session operations

func (d *DatabaseStore) GetSession(phone string) (*models.Session, error) {
	var session models.Session
	err := d.db.Where("phone = ?", phone).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

func (d *DatabaseStore) CreateSessionIfAbsent(phone string) (*models.Session, error) {
	session, err := d.GetSession(phone)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	session = &models.Session{
		Phone: phone,
		State: models.StateAwaitingCUIT,
	}
	if err := d.db.Create(session).Error; err != nil {
		// lost a create race: the row exists now, read it back
		if existing, getErr := d.GetSession(phone); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (d *DatabaseStore) updateSession(phone string, values map[string]interface{}) error {
	res := d.db.Model(&models.Session{}).Where("phone = ?", phone).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) SetSessionState(phone string, state models.SessionState) error {
	return d.updateSession(phone, map[string]interface{}{"state": state})
}

func (d *DatabaseStore) SetPending(phone string, p *models.PendingAction) error {
	encoded, err := models.EncodePending(p)
	if err != nil {
		return err
	}
	return d.updateSession(phone, map[string]interface{}{"pending_json": encoded})
}

func (d *DatabaseStore) ClearPending(phone string) error {
	return d.updateSession(phone, map[string]interface{}{"pending_json": nil})
}

func (d *DatabaseStore) SetSearchContext(phone string, sc *models.SearchContext) error {
	encoded, err := models.EncodeSearch(sc)
	if err != nil {
		return err
	}
	return d.updateSession(phone, map[string]interface{}{"search_json": encoded})
}

func (d *DatabaseStore) UpsertVerified(phone, cuit string, ttl time.Duration) (*models.Session, error) {
	if _, err := d.CreateSessionIfAbsent(phone); err != nil {
		return nil, err
	}

	now := time.Now()
	expires := now.Add(ttl)
	err := d.updateSession(phone, map[string]interface{}{
		"cuit":                      cuit,
		"verified_at":               now,
		"expires_at":                expires,
		"state":                     models.StateVerified,
		"pending_json":              nil,
		"feedback_last_prompt_at":   nil,
		"feedback_last_response_at": nil,
	})
	if err != nil {
		return nil, err
	}
	return d.GetSession(phone)
}

func (d *DatabaseStore) Logout(phone string) error {
	return d.updateSession(phone, map[string]interface{}{
		"cuit":         nil,
		"verified_at":  nil,
		"expires_at":   nil,
		"pending_json": nil,
		"search_json":  nil,
		"state":        models.StateAwaitingCUIT,
	})
}

func (d *DatabaseStore) TouchSession(phone string) error {
	return d.updateSession(phone, map[string]interface{}{"updated_at": time.Now()})
}

// Feedback operations

func (d *DatabaseStore) GetFeedbackCandidates(now time.Time, inactivity, cooldown, window time.Duration) ([]*models.Session, error) {
	var sessions []*models.Session
	err := d.db.
		Where("cuit IS NOT NULL AND expires_at > ?", now).
		Where("state IN ?", []models.SessionState{models.StateVerified, models.StateAwaitingConsulta}).
		Where("updated_at <= ?", now.Add(-inactivity)).
		Where("updated_at >= ?", now.Add(-window)).
		Where("feedback_last_prompt_at IS NULL OR feedback_last_prompt_at <= ?", now.Add(-cooldown)).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("feedback candidates: %w", err)
	}
	return sessions, nil
}

func (d *DatabaseStore) SetFeedbackPromptAt(phone string, at time.Time) error {
	// UpdateColumn skips gorm's UpdatedAt hook: the prompt is bookkeeping,
	// not user activity
	res := d.db.Model(&models.Session{}).Where("phone = ?", phone).
		UpdateColumn("feedback_last_prompt_at", at)
	if res.Error != nil {
		return fmt.Errorf("set feedback prompt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) SetFeedbackResponseAt(phone string, at time.Time) error {
	return d.updateSession(phone, map[string]interface{}{"feedback_last_response_at": at})
}

func (d *DatabaseStore) RecordFeedback(entry *models.FeedbackEntry) error {
	if err := d.db.Create(entry).Error; err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// Customer profile

func (d *DatabaseStore) GetCustomerByCUIT(cuit string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("cuit = ?", cuit).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &customer, nil
}

func (d *DatabaseStore) UpdateCustomerNombre(cuit, nombre string) error {
	return d.updateCustomer(cuit, map[string]interface{}{"nombre": nombre})
}

func (d *DatabaseStore) UpdateCustomerEmail(cuit, email string) error {
	return d.updateCustomer(cuit, map[string]interface{}{"email": email})
}

func (d *DatabaseStore) updateCustomer(cuit string, values map[string]interface{}) error {
	res := d.db.Model(&models.Customer{}).Where("cuit = ?", cuit).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Catalog operations

func (d *DatabaseStore) SearchProducts(term string) ([]models.Product, error) {
	needle := "%" + term + "%"
	var products []models.Product
	err := d.db.
		Where("visible = ? AND discontinuado = ?", true, false).
		Where("nombre ILIKE ? OR marca ILIKE ? OR presentacion ILIKE ? OR droga ILIKE ? OR accion ILIKE ?",
			needle, needle, needle, needle, needle).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (d *DatabaseStore) GetProductByID(id uint) (*models.Product, error) {
	var product models.Product
	err := d.db.First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (d *DatabaseStore) TopStockProducts(n int) ([]models.Product, error) {
	var products []models.Product
	err := d.db.
		Where("visible = ? AND discontinuado = ?", true, false).
		Order("stock DESC").
		Limit(n).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("top stock products: %w", err)
	}
	return products, nil
}

func (d *DatabaseStore) GetActivePromotions() ([]models.Promotion, error) {
	var promos []models.Promotion
	err := d.db.
		Where("activa = ?", true).
		Where("hasta_at IS NULL OR hasta_at > ?", time.Now()).
		Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("active promotions: %w", err)
	}
	return promos, nil
}

func (d *DatabaseStore) GetActivePromotionsFor(productID uint) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := d.db.
		Where("activa = ? AND product_id = ?", true, productID).
		Where("hasta_at IS NULL OR hasta_at > ?", time.Now()).
		Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("active promotions for product: %w", err)
	}
	return promos, nil
}
