package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func seedProduct(t *testing.T, m *Memory, name string, price string, stock int) *models.Product {
	t.Helper()
	p, err := m.CreateProduct(context.Background(), models.NewProduct{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestCreateProductValidation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tests := []struct {
		name  string
		input models.NewProduct
		field string
	}{
		{"nom vide", models.NewProduct{Name: "  ", Price: decimal.NewFromInt(1)}, "name"},
		{"prix nul", models.NewProduct{Name: "Bonnet", Price: decimal.Zero}, "price"},
		{"prix négatif", models.NewProduct{Name: "Bonnet", Price: decimal.NewFromInt(-2)}, "price"},
		{"stock négatif", models.NewProduct{Name: "Bonnet", Price: decimal.NewFromInt(2), Stock: -1}, "stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateProduct(ctx, tt.input)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestListAvailableFiltersOutOfStock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := seedProduct(t, m, "Écharpe", "15.00", 2)
	seedProduct(t, m, "Gants", "9.90", 0)

	available, err := m.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, a.ID, available[0].ID)

	all, err := m.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDecrementStockGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Pull", "40", 3)

	remaining, err := m.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, err = m.DecrementStock(ctx, p.ID, 2)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	_, err = m.DecrementStock(ctx, 999, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestDecrementStockConcurrentNeverNegative(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Chaussettes", "5", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.DecrementStock(ctx, p.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, got.Stock)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Bonnet", "12", 4)
	pid := p.ID

	order := &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusDraft,
		CreatedAt:    time.Now(),
		Items:        []models.OrderItem{{ProductID: &pid, ProductName: "Bonnet", Quantity: 1, UnitPrice: p.Price}},
	}
	require.NoError(t, m.InsertOrder(ctx, order, ""))

	_, err := m.UpdateStatus(ctx, order.ID, []models.OrderStatus{models.StatusPendingApproval}, models.StatusRejected)
	var serr *models.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.StatusDraft, serr.Status)

	updated, err := m.UpdateStatus(ctx, order.ID, []models.OrderStatus{models.StatusDraft}, models.StatusPendingApproval)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, updated.Status)
}

func TestInsertOrderClearsCart(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Bonnet", "12", 4)
	pid := p.ID
	key := models.WebOrigin{SessionID: "s1"}.Key()

	require.NoError(t, m.SaveCart(ctx, key, []models.CartLine{{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1}}))

	order := &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusPendingApproval,
		Items:        []models.OrderItem{{ProductID: &pid, ProductName: "Bonnet", Quantity: 1, UnitPrice: p.Price}},
	}
	require.NoError(t, m.InsertOrder(ctx, order, key))

	lines, err := m.LoadCart(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDeleteProductKeepsOrderSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Bonnet", "12", 4)
	pid := p.ID

	order := &models.Order{
		CustomerName: "Ana",
		Origin:       models.ChatOrigin{ChatID: 42},
		Status:       models.StatusPendingApproval,
		Items:        []models.OrderItem{{ProductID: &pid, ProductName: "Bonnet", Quantity: 1, UnitPrice: p.Price}},
	}
	require.NoError(t, m.InsertOrder(ctx, order, ""))
	require.NoError(t, m.DeleteProduct(ctx, p.ID))

	got, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Items[0].ProductID)
	assert.Equal(t, "Bonnet", got.Items[0].ProductName)

	_, _, err = m.ApproveOrder(ctx, order.ID, time.Now())
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
}

func TestResetEmptiesEverything(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Bonnet", "12", 4)
	pid := p.ID
	require.NoError(t, m.SaveCart(ctx, "web:s1", []models.CartLine{{ProductID: p.ID, Quantity: 1}}))
	require.NoError(t, m.InsertOrder(ctx, &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusPendingApproval,
		Items:        []models.OrderItem{{ProductID: &pid, Quantity: 1, UnitPrice: p.Price}},
	}, ""))

	require.NoError(t, m.Reset(ctx))

	products, err := m.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	orders, err := m.ListOrdersByOrigin(ctx, models.WebOrigin{SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, orders)
	lines, err := m.LoadCart(ctx, "web:s1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	again := seedProduct(t, m, "Gants", "3", 1)
	assert.Equal(t, int64(1), again.ID)
}

func TestUpdateProductIsPartial(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := seedProduct(t, m, "Bonnet", "12.50", 4)

	price := decimal.RequireFromString("14.999")
	got, err := m.UpdateProduct(ctx, p.ID, models.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.00").Equal(got.Price))
	assert.Equal(t, 4, got.Stock)
	assert.Equal(t, "Bonnet", got.Name)

	zero := 0
	got, err = m.UpdateProduct(ctx, p.ID, models.ProductUpdate{Stock: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	available, err := m.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	negative := -1
	_, err = m.UpdateProduct(ctx, p.ID, models.ProductUpdate{Stock: &negative})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = m.UpdateProduct(ctx, p.ID, models.ProductUpdate{})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = m.UpdateProduct(ctx, 99, models.ProductUpdate{Stock: &zero})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
