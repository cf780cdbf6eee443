package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_movements (
		product_id bigint,
		created_at timestamp,
		id uuid,
		order_id bigint,
		type text,
		quantity int,
		new_stock int,
		PRIMARY KEY (product_id, created_at, id)
	) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`,
	`CREATE TABLE IF NOT EXISTS order_audit (
		order_id bigint,
		created_at timestamp,
		id uuid,
		status text,
		actor text,
		PRIMARY KEY (order_id, created_at, id)
	) WITH CLUSTERING ORDER BY (created_at ASC, id ASC)`,
}

// Scylla journalise les mouvements de stock et l'historique des commandes
type Scylla struct {
	session *gocql.Session
}

func NewScylla(session *gocql.Session) *Scylla {
	return &Scylla{session: session}
}

// EnsureSchema crée les tables du journal si besoin
func (s *Scylla) EnsureSchema() error {
	for _, stmt := range schema {
		if err := s.session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("schéma journal: %w", err)
		}
	}
	log.Println("✅ Tables du journal ScyllaDB prêtes")
	return nil
}

func (s *Scylla) RecordStockMovement(ctx context.Context, m models.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := s.session.Query(`INSERT INTO stock_movements (product_id, created_at, id, order_id, type, quantity, new_stock)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ProductID, m.CreatedAt, gocql.UUID(m.ID), m.OrderID, m.Type, m.Quantity, m.NewStock).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("mouvement stock produit %d: %w", m.ProductID, err)
	}
	return nil
}

func (s *Scylla) RecordAudit(ctx context.Context, e models.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := s.session.Query(`INSERT INTO order_audit (order_id, created_at, id, status, actor) VALUES (?, ?, ?, ?, ?)`,
		e.OrderID, e.CreatedAt, gocql.UUID(e.ID), string(e.Status), e.Actor).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("audit commande %d: %w", e.OrderID, err)
	}
	return nil
}

// StockMovements retourne les derniers mouvements d'un produit, du plus récent au plus ancien
func (s *Scylla) StockMovements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error) {
	iter := s.session.Query(`SELECT id, order_id, type, quantity, new_stock, created_at
		FROM stock_movements WHERE product_id = ? LIMIT ?`, productID, limit).
		WithContext(ctx).Iter()

	var (
		out       []models.StockMovement
		id        gocql.UUID
		orderID   int64
		kind      string
		qty, left int
		createdAt time.Time
	)
	for iter.Scan(&id, &orderID, &kind, &qty, &left, &createdAt) {
		out = append(out, models.StockMovement{
			ID:        uuid.UUID(id),
			ProductID: productID,
			OrderID:   orderID,
			Type:      kind,
			Quantity:  qty,
			NewStock:  left,
			CreatedAt: createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture mouvements produit %d: %w", productID, err)
	}
	return out, nil
}

// Truncate vide le journal (maintenance)
func (s *Scylla) Truncate(ctx context.Context) error {
	for _, table := range []string{"stock_movements", "order_audit"} {
		if err := s.session.Query("TRUNCATE " + table).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
