package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Details     string          `json:"details"`
	HasShipping bool            `json:"has_shipping"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Available indique si le produit apparaît dans le catalogue public
func (p Product) Available() bool {
	return p.Stock > 0
}

// NewProduct regroupe les champs saisis par le propriétaire avant création
type NewProduct struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Details     string          `json:"details"`
	HasShipping bool            `json:"has_shipping"`
}

// Validate applique les règles de création : nom requis, prix > 0, stock >= 0
func (n NewProduct) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return &ValidationError{Field: "name", Reason: "le nom est obligatoire"}
	}
	if !n.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "le prix doit être supérieur à 0"}
	}
	if n.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "le stock ne peut pas être négatif"}
	}
	return nil
}

// ProductUpdate porte une modification partielle ; un champ nil reste inchangé
type ProductUpdate struct {
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Details     *string          `json:"details"`
	HasShipping *bool            `json:"has_shipping"`
}

func (u ProductUpdate) Empty() bool {
	return u.Price == nil && u.Stock == nil && u.Details == nil && u.HasShipping == nil
}

func (u ProductUpdate) Validate() error {
	if u.Empty() {
		return &ValidationError{Field: "body", Reason: "aucun champ à modifier"}
	}
	if u.Price != nil && !u.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "le prix doit être supérieur à 0"}
	}
	if u.Stock != nil && *u.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "le stock ne peut pas être négatif"}
	}
	return nil
}

// Apply reporte les champs renseignés sur p
func (u ProductUpdate) Apply(p *Product) {
	if u.Price != nil {
		p.Price = u.Price.Round(2)
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Details != nil {
		p.Details = *u.Details
	}
	if u.HasShipping != nil {
		p.HasShipping = *u.HasShipping
	}
}
