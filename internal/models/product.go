package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog item as the assistant sees it: display fields,
// searchable fields and the stock signal used as a scoring tie-break.
type Product struct {
	gorm.Model
	Nombre        string  `json:"nombre"`
	Marca         string  `json:"marca"`
	Presentacion  string  `json:"presentacion"`
	Droga         string  `json:"droga"`  // active ingredient
	Accion        string  `json:"accion"` // indication / therapeutic action
	Precio        float64 `json:"precio"`
	Stock         int     `json:"stock"`
	Visible       bool    `json:"visible"`
	Discontinuado bool    `json:"discontinuado"`
}

// ProductSummary is the trimmed projection kept inside a search context
// and shown in disambiguation lists.
type ProductSummary struct {
	ID           uint   `json:"id"`
	Nombre       string `json:"nombre"`
	Marca        string `json:"marca"`
	Presentacion string `json:"presentacion"`
}

// Summary projects a product for storage in conversation state.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		Nombre:       p.Nombre,
		Marca:        p.Marca,
		Presentacion: p.Presentacion,
	}
}

// Promotion is an active commercial promotion, optionally scoped to a
// single product.
type Promotion struct {
	gorm.Model
	ProductID *uint      `json:"product_id"`
	Titulo    string     `json:"titulo"`
	Detalle   string     `json:"detalle"`
	Activa    bool       `json:"activa"`
	HastaAt   *time.Time `json:"hasta_at"`
}

// Customer is the professional client record behind a verified CUIT.
// Profile edits (nombre, email) land here once confirmed.
type Customer struct {
	gorm.Model
	CUIT   string `json:"cuit" gorm:"uniqueIndex"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}
