package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront_back_end/internal/models"
)

// Memory est une implémentation en mémoire avec les mêmes gardes que Postgres.
// Utilisée par les tests et par STORE_DRIVER=memory.
type Memory struct {
	mu            sync.Mutex
	products      map[int64]models.Product
	orders        map[int64]*models.Order
	carts         map[string][]models.CartLine
	nextProductID int64
	nextOrderID   int64
	now           func() time.Time
}

func NewMemory() *Memory {
	m := &Memory{now: time.Now}
	m.init()
	return m
}

func (m *Memory) init() {
	m.products = map[int64]models.Product{}
	m.orders = map[int64]*models.Order{}
	m.carts = map[string][]models.CartLine{}
	m.nextProductID = 0
	m.nextOrderID = 0
}

func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}

// --- Catalogue ---

func (m *Memory) sortedProducts(keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ListAvailable(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedProducts(models.Product.Available), nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedProducts(func(models.Product) bool { return true }), nil
}

func (m *Memory) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, models.ProductNotFound(id)
	}
	return &p, nil
}

func (m *Memory) GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Memory) CreateProduct(ctx context.Context, in models.NewProduct) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProductID++
	p := models.Product{
		ID:          m.nextProductID,
		Name:        in.Name,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		Details:     in.Details,
		HasShipping: in.HasShipping,
		CreatedAt:   m.now(),
	}
	m.products[p.ID] = p
	return &p, nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return models.ProductNotFound(id)
	}
	delete(m.products, id)
	// ON DELETE SET NULL
	for _, o := range m.orders {
		for i := range o.Items {
			if o.Items[i].ProductID != nil && *o.Items[i].ProductID == id {
				o.Items[i].ProductID = nil
			}
		}
	}
	return nil
}

func (m *Memory) DecrementStock(ctx context.Context, id int64, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrementLocked(id, qty)
}

func (m *Memory) decrementLocked(id int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, &models.ValidationError{Field: "quantity", Reason: "la quantité doit être supérieure à 0"}
	}
	p, ok := m.products[id]
	if !ok {
		return 0, models.ProductNotFound(id)
	}
	if p.Stock < qty {
		return 0, &models.StockError{ProductID: id, ProductName: p.Name, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	m.products[id] = p
	return p.Stock, nil
}

// UpdateProduct modifie prix, stock ou détails ; les commandes existantes gardent leur instantané
func (m *Memory) UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, models.ProductNotFound(id)
	}
	upd.Apply(&p)
	m.products[id] = p
	return &p, nil
}

// --- Commandes ---

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.ProductID != nil {
			id := *it.ProductID
			it.ProductID = &id
		}
		c.Items[i] = it
	}
	if o.ApprovedAt != nil {
		t := *o.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

func (m *Memory) InsertOrder(ctx context.Context, order *models.Order, clearCartKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range order.Items {
		if it.ProductID != nil {
			if _, ok := m.products[*it.ProductID]; !ok {
				return models.ProductNotFound(*it.ProductID)
			}
		}
	}

	m.nextOrderID++
	order.ID = m.nextOrderID
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = cloneOrder(order)
	if clearCartKey != "" {
		delete(m.carts, clearCartKey)
	}
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.OrderNotFound(id)
	}
	return cloneOrder(o), nil
}

func (m *Memory) ListOrdersByOrigin(ctx context.Context, origin models.Origin) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if models.SameOrigin(o.Origin, origin) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id int64, from []models.OrderStatus, to models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.OrderNotFound(id)
	}
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			return cloneOrder(o), nil
		}
	}
	return nil, &models.StateError{OrderID: id, Status: o.Status}
}

func (m *Memory) ApproveOrder(ctx context.Context, id int64, at time.Time) (*models.Order, []models.StockChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil, models.OrderNotFound(id)
	}
	if o.Status != models.StatusPendingApproval {
		return nil, nil, &models.StateError{OrderID: id, Status: o.Status}
	}

	// Vérification complète avant toute écriture : tout ou rien
	for _, it := range o.Items {
		if it.ProductID == nil {
			return nil, nil, &models.StockError{ProductName: it.ProductName, Requested: it.Quantity}
		}
		p, ok := m.products[*it.ProductID]
		if !ok {
			return nil, nil, &models.StockError{ProductID: *it.ProductID, ProductName: it.ProductName, Requested: it.Quantity}
		}
		if p.Stock < it.Quantity {
			return nil, nil, &models.StockError{ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity, Available: p.Stock}
		}
	}

	changes := make([]models.StockChange, 0, len(o.Items))
	for _, it := range o.Items {
		remaining, err := m.decrementLocked(*it.ProductID, it.Quantity)
		if err != nil {
			return nil, nil, err
		}
		changes = append(changes, models.StockChange{ProductID: *it.ProductID, Quantity: it.Quantity, Remaining: remaining})
	}

	approvedAt := at
	o.Status = models.StatusApproved
	o.ApprovedAt = &approvedAt
	return cloneOrder(o), changes, nil
}

// --- Paniers ---

func (m *Memory) LoadCart(ctx context.Context, sessionKey string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartLine{}, m.carts[sessionKey]...), nil
}

func (m *Memory) SaveCart(ctx context.Context, sessionKey string, lines []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionKey] = append([]models.CartLine{}, lines...)
	return nil
}

func (m *Memory) DeleteCart(ctx context.Context, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionKey)
	return nil
}
