package store

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront_back_end/internal/database"
	"storefront_back_end/internal/models"
)

// pgPool est nil si ni DATABASE_URL ni Docker ne sont disponibles
var pgPool *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	var stop func()
	if !testing.Short() {
		pgPool, stop = startPostgres()
	}
	code := m.Run()
	if pgPool != nil {
		pgPool.Close()
	}
	if stop != nil {
		stop()
	}
	os.Exit(code)
}

func startPostgres() (pool *pgxpool.Pool, stop func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		var err error
		url, stop, err = postgresContainer(ctx)
		if err != nil {
			log.Printf("⚠️ PostgreSQL de test indisponible, tests Postgres ignorés: %v", err)
			return nil, nil
		}
	}

	pool, err := database.ConnectPostgres(ctx, url)
	if err == nil {
		err = database.Migrate(ctx, pool)
	}
	if err != nil {
		log.Printf("⚠️ PostgreSQL de test inutilisable: %v", err)
		if pool != nil {
			pool.Close()
		}
		return nil, stop
	}
	return pool, stop
}

func postgresContainer(ctx context.Context) (url string, stop func(), err error) {
	// Sans démon Docker, certaines versions paniquent au lieu de retourner une erreur
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker: %v", r)
		}
	}()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, err
	}
	stop = func() { _ = c.Terminate(context.Background()) }

	host, err := c.Host(ctx)
	if err != nil {
		stop()
		return "", nil, err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		stop()
		return "", nil, err
	}
	url = fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	return url, stop, nil
}

func newPostgres(t *testing.T) *Postgres {
	t.Helper()
	if pgPool == nil {
		t.Skip("PostgreSQL indisponible (DATABASE_URL absent et Docker injoignable)")
	}
	p := NewPostgres(pgPool)
	require.NoError(t, p.Reset(context.Background()))
	return p
}

func pgProduct(t *testing.T, p *Postgres, name, price string, stock int) *models.Product {
	t.Helper()
	prod, err := p.CreateProduct(context.Background(), models.NewProduct{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return prod
}

type line struct {
	product *models.Product
	qty     int
}

func pgPendingOrder(t *testing.T, p *Postgres, lines ...line) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusPendingApproval,
		CreatedAt:    time.Now(),
	}
	for _, l := range lines {
		id := l.product.ID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   &id,
			ProductName: l.product.Name,
			Quantity:    l.qty,
			UnitPrice:   l.product.Price,
		})
	}
	order.Total = models.ItemsTotal(order.Items)
	require.NoError(t, p.InsertOrder(context.Background(), order, ""))
	return order
}

func pgStock(t *testing.T, p *Postgres, id int64) int {
	t.Helper()
	prod, err := p.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return prod.Stock
}

func TestPostgresApproveTwiceDecrementsOnce(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 10)
	order := pgPendingOrder(t, p, line{prod, 3})

	approved, changes, err := p.ApproveOrder(ctx, order.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.Len(t, changes, 1)
	assert.Equal(t, 7, changes[0].Remaining)

	_, _, err = p.ApproveOrder(ctx, order.ID, time.Now())
	var serr *models.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.StatusApproved, serr.Status)
	assert.Equal(t, 7, pgStock(t, p, prod.ID))
}

func TestPostgresConcurrentApprovalsNeverOversell(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)
	first := pgPendingOrder(t, p, line{prod, 3})
	second := pgPendingOrder(t, p, line{prod, 3})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, _, errs[i] = p.ApproveOrder(ctx, id, time.Now())
		}(i, id)
	}
	wg.Wait()

	var ok, refused int
	var loser int64
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrInsufficientStock):
			refused++
			loser = []int64{first.ID, second.ID}[i]
		default:
			t.Fatalf("erreur inattendue: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, refused)
	assert.Equal(t, 2, pgStock(t, p, prod.ID))

	got, err := p.GetOrder(ctx, loser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, got.Status)
}

func TestPostgresApprovalIsAllOrNothing(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	plenty := pgProduct(t, p, "Écharpe", "15.00", 5)
	scarce := pgProduct(t, p, "Gants", "9.90", 1)
	order := pgPendingOrder(t, p, line{plenty, 3}, line{scarce, 2})

	_, _, err := p.ApproveOrder(ctx, order.ID, time.Now())
	var stockErr *models.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 5, pgStock(t, p, plenty.ID), "the first line is rolled back")
	assert.Equal(t, 1, pgStock(t, p, scarce.ID))
	got, err := p.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, got.Status)
	assert.Nil(t, got.ApprovedAt)
}

func TestPostgresDeletedProductBlocksApproval(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)
	order := pgPendingOrder(t, p, line{prod, 1})

	require.NoError(t, p.DeleteProduct(ctx, prod.ID))
	assert.ErrorIs(t, p.DeleteProduct(ctx, prod.ID), models.ErrNotFound)

	got, err := p.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Nil(t, got.Items[0].ProductID)
	assert.Equal(t, "Bonnet", got.Items[0].ProductName)

	_, _, err = p.ApproveOrder(ctx, order.ID, time.Now())
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	got, err = p.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, got.Status)
}

func TestPostgresInsertOrderClearsCartAtomically(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)
	require.NoError(t, p.SaveCart(ctx, "web:s1", []models.CartLine{{ProductID: prod.ID, Name: "Bonnet", Price: prod.Price, Quantity: 2}}))

	ghost := int64(999)
	bad := &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusDraft,
		CreatedAt:    time.Now(),
		Items:        []models.OrderItem{{ProductID: &ghost, ProductName: "Fantôme", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	}
	bad.Total = models.ItemsTotal(bad.Items)
	assert.ErrorIs(t, p.InsertOrder(ctx, bad, "web:s1"), models.ErrNotFound)

	orders, err := p.ListOrdersByOrigin(ctx, models.WebOrigin{SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, orders, "no half-written order")
	lines, err := p.LoadCart(ctx, "web:s1")
	require.NoError(t, err)
	assert.Len(t, lines, 1, "the cart survives a failed insert")

	id := prod.ID
	good := &models.Order{
		CustomerName: "Ana",
		Origin:       models.WebOrigin{SessionID: "s1"},
		Status:       models.StatusDraft,
		CreatedAt:    time.Now(),
		Items:        []models.OrderItem{{ProductID: &id, ProductName: prod.Name, Quantity: 2, UnitPrice: prod.Price}},
	}
	good.Total = models.ItemsTotal(good.Items)
	require.NoError(t, p.InsertOrder(ctx, good, "web:s1"))
	assert.NotZero(t, good.ID)

	lines, err = p.LoadCart(ctx, "web:s1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	got, err := p.GetOrder(ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.00").Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, good.ID, got.Items[0].OrderID)
	assert.Equal(t, 5, pgStock(t, p, prod.ID), "stock moves only on approval")
}

func TestPostgresUpdateStatusIsConditional(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)
	order := pgPendingOrder(t, p, line{prod, 1})

	got, err := p.UpdateStatus(ctx, order.ID, []models.OrderStatus{models.StatusDraft, models.StatusPendingApproval}, models.StatusCancelledByCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelledByCustomer, got.Status)

	_, err = p.UpdateStatus(ctx, order.ID, []models.OrderStatus{models.StatusPendingApproval}, models.StatusRejected)
	var serr *models.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.StatusCancelledByCustomer, serr.Status)

	_, err = p.UpdateStatus(ctx, 999, []models.OrderStatus{models.StatusPendingApproval}, models.StatusRejected)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresDecrementStockGuard(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 2)

	remaining, err := p.DecrementStock(ctx, prod.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = p.DecrementStock(ctx, prod.ID, 1)
	var stockErr *models.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 0, pgStock(t, p, prod.ID))

	_, err = p.DecrementStock(ctx, 999, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = p.DecrementStock(ctx, prod.ID, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPostgresUpdateProductKeepsOrderSnapshots(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)
	order := pgPendingOrder(t, p, line{prod, 2})

	price := decimal.RequireFromString("19.999")
	got, err := p.UpdateProduct(ctx, prod.ID, models.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(got.Price))
	assert.Equal(t, 5, got.Stock)

	approved, _, err := p.ApproveOrder(ctx, order.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.00").Equal(approved.Total))
	assert.True(t, decimal.RequireFromString("12.50").Equal(approved.Items[0].UnitPrice))

	stock := 0
	_, err = p.UpdateProduct(ctx, 999, models.ProductUpdate{Stock: &stock})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresCartUpsertAndReset(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	prod := pgProduct(t, p, "Bonnet", "12.50", 5)

	require.NoError(t, p.SaveCart(ctx, "chat:42", []models.CartLine{{ProductID: prod.ID, Quantity: 1}}))
	require.NoError(t, p.SaveCart(ctx, "chat:42", []models.CartLine{{ProductID: prod.ID, Quantity: 4}}))
	lines, err := p.LoadCart(ctx, "chat:42")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)

	require.NoError(t, p.DeleteCart(ctx, "chat:42"))
	lines, err = p.LoadCart(ctx, "chat:42")
	require.NoError(t, err)
	assert.Empty(t, lines)

	pgPendingOrder(t, p, line{prod, 1})
	require.NoError(t, p.Reset(ctx))
	again := pgProduct(t, p, "Gants", "3.00", 1)
	assert.Equal(t, int64(1), again.ID, "identities restart")
	pending, err := p.ListOrdersByStatus(ctx, models.StatusPendingApproval)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
