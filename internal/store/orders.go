package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"storefront_back_end/internal/models"
)

const orderColumns = `id, customer_name, origin_kind, origin_ref, payment_method, status, created_at, approved_at, total`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o          models.Order
		kind, ref  string
		status     string
		approvedAt *time.Time
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &kind, &ref, &o.PaymentMethod, &status, &o.CreatedAt, &approvedAt, &o.Total); err != nil {
		return nil, err
	}
	origin, err := models.ParseOrigin(kind, ref)
	if err != nil {
		return nil, err
	}
	o.Origin = origin
	o.Status = models.OrderStatus(status)
	o.ApprovedAt = approvedAt
	return &o, nil
}

// InsertOrder persiste la commande et ses lignes ; si clearCartKey est fourni,
// le panier correspondant est vidé dans la même transaction.
func (p *Postgres) InsertOrder(ctx context.Context, order *models.Order, clearCartKey string) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (customer_name, origin_kind, origin_ref, payment_method, status, created_at, total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			order.CustomerName, string(order.Origin.Kind()), order.Origin.Ref(), order.PaymentMethod,
			string(order.Status), order.CreatedAt, order.Total).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("insertion commande: %w", err)
		}

		for i := range order.Items {
			it := &order.Items[i]
			it.OrderID = order.ID
			_, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
				 VALUES ($1, $2, $3, $4, $5)`,
				it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
			if isForeignKeyViolation(err) && it.ProductID != nil {
				return models.ProductNotFound(*it.ProductID)
			}
			if err != nil {
				return fmt.Errorf("insertion ligne de commande: %w", err)
			}
		}

		if clearCartKey != "" {
			if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE session_key = $1`, clearCartKey); err != nil {
				return fmt.Errorf("vidage panier: %w", err)
			}
		}
		return nil
	})
}

func (p *Postgres) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.OrderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %d: %w", id, err)
	}
	if err := p.loadItems(ctx, p.pool, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrdersByOrigin retourne les commandes d'une session, les plus récentes d'abord
func (p *Postgres) ListOrdersByOrigin(ctx context.Context, origin models.Origin) ([]models.Order, error) {
	return p.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE origin_kind = $1 AND origin_ref = $2 ORDER BY created_at DESC, id DESC`,
		string(origin.Kind()), origin.Ref())
}

// ListOrdersByStatus retourne les commandes d'un statut, les plus anciennes d'abord
func (p *Postgres) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return p.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at, id`, string(status))
}

func (p *Postgres) listOrders(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("lecture commandes: %w", err)
	}
	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan commande: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.loadItems(ctx, p.pool, orders); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out, nil
}

type rowsQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *Postgres) loadItems(ctx context.Context, q rowsQueryer, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
		o.Items = []models.OrderItem{}
	}

	rows, err := q.Query(ctx,
		`SELECT order_id, product_id, product_name, quantity, unit_price
		 FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("lecture lignes de commande: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scan ligne de commande: %w", err)
		}
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus applique une transition conditionnelle : la mise à jour n'a lieu
// que si le statut courant fait partie de from.
func (p *Postgres) UpdateStatus(ctx context.Context, id int64, from []models.OrderStatus, to models.OrderStatus) (*models.Order, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = ANY($2)`, id, allowed, string(to))
	if err != nil {
		return nil, fmt.Errorf("mise à jour statut commande %d: %w", id, err)
	}

	order, err := p.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, &models.StateError{OrderID: id, Status: order.Status}
	}
	return order, nil
}

// ApproveOrder verrouille la commande, décrémente le stock de chaque ligne sous garde
// et passe la commande à approved. Tout ou rien : une seule garde refusée annule tout.
func (p *Postgres) ApproveOrder(ctx context.Context, id int64, at time.Time) (*models.Order, []models.StockChange, error) {
	var (
		order   *models.Order
		changes []models.StockChange
	)

	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OrderNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("verrou commande %d: %w", id, err)
		}
		if models.OrderStatus(status) != models.StatusPendingApproval {
			return &models.StateError{OrderID: id, Status: models.OrderStatus(status)}
		}

		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		if err != nil {
			return fmt.Errorf("lecture commande %d: %w", id, err)
		}
		if err := p.loadItems(ctx, tx, []*models.Order{o}); err != nil {
			return err
		}

		// Ordre stable des verrous de lignes produits
		items := append([]models.OrderItem(nil), o.Items...)
		sort.SliceStable(items, func(i, j int) bool {
			return productKey(items[i]) < productKey(items[j])
		})

		changes = changes[:0]
		for _, it := range items {
			if it.ProductID == nil {
				return &models.StockError{ProductName: it.ProductName, Requested: it.Quantity}
			}
			remaining, err := decrementStock(ctx, tx, *it.ProductID, it.Quantity)
			if errors.Is(err, models.ErrNotFound) {
				return &models.StockError{ProductID: *it.ProductID, ProductName: it.ProductName, Requested: it.Quantity}
			}
			if err != nil {
				return err
			}
			changes = append(changes, models.StockChange{ProductID: *it.ProductID, Quantity: it.Quantity, Remaining: remaining})
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, approved_at = $3 WHERE id = $1`,
			id, string(models.StatusApproved), at); err != nil {
			return fmt.Errorf("approbation commande %d: %w", id, err)
		}

		approvedAt := at
		o.Status = models.StatusApproved
		o.ApprovedAt = &approvedAt
		order = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, changes, nil
}

func productKey(it models.OrderItem) int64 {
	if it.ProductID == nil {
		return -1
	}
	return *it.ProductID
}
