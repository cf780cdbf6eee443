package models

import (
	"time"

	"github.com/google/uuid"
)

type StockMovement struct {
	ID        uuid.UUID `json:"id"`
	ProductID int64     `json:"product_id"`
	OrderID   int64     `json:"order_id"`
	Type      string    `json:"type"` // "sale", "reset"
	Quantity  int       `json:"quantity"`
	NewStock  int       `json:"new_stock"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditEntry struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Actor     string      `json:"actor"`
	CreatedAt time.Time   `json:"created_at"`
}
