package journal

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

// Memory garde le journal en mémoire quand ScyllaDB n'est pas configuré
type Memory struct {
	mu        sync.Mutex
	movements []models.StockMovement
	audit     []models.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordStockMovement(ctx context.Context, mv models.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	m.movements = append(m.movements, mv)
	return nil
}

func (m *Memory) RecordAudit(ctx context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) StockMovements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StockMovement
	for _, mv := range m.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Audit retourne l'historique d'une commande dans l'ordre d'écriture
func (m *Memory) Audit(orderID int64) []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range m.audit {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = nil
	m.audit = nil
	return nil
}
