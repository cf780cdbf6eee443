package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusDraft               OrderStatus = "draft"
	StatusPendingApproval     OrderStatus = "pending_owner_approval"
	StatusApproved            OrderStatus = "approved"
	StatusRejected            OrderStatus = "rejected"
	StatusCancelledByCustomer OrderStatus = "cancelled_by_customer"
)

// Label retourne le libellé affiché aux clients et au propriétaire
func (s OrderStatus) Label() string {
	switch s {
	case StatusDraft:
		return "En attente de votre confirmation"
	case StatusPendingApproval:
		return "En attente de validation"
	case StatusApproved:
		return "Approuvée"
	case StatusRejected:
		return "Refusée"
	case StatusCancelledByCustomer:
		return "Annulée"
	}
	return string(s)
}

type Order struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	Origin        Origin          `json:"-"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
}

type OrderItem struct {
	OrderID     int64           `json:"order_id"`
	ProductID   *int64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal recalcule la somme des sous-totaux, utilisé à la création uniquement
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// StockChange décrit l'effet d'une approbation sur un produit
type StockChange struct {
	ProductID int64
	Quantity  int
	Remaining int
}

// OrderEvent est publié à chaque transition de commande
type OrderEvent struct {
	OrderID    int64           `json:"order_id"`
	Status     OrderStatus     `json:"status"`
	OriginKind OriginKind      `json:"origin_kind"`
	OriginRef  string          `json:"origin_ref"`
	Total      decimal.Decimal `json:"total"`
	At         time.Time       `json:"at"`
}

func NewOrderEvent(o *Order, at time.Time) OrderEvent {
	ev := OrderEvent{OrderID: o.ID, Status: o.Status, Total: o.Total, At: at}
	if o.Origin != nil {
		ev.OriginKind = o.Origin.Kind()
		ev.OriginRef = o.Origin.Ref()
	}
	return ev
}
