package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/journal"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/store"
	"storefront_back_end/internal/telegram/telegramtest"
)

const (
	ownerChat    = int64(1000)
	customerChat = int64(55)
)

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type recordingEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recordingEvents) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	engine  *Engine
	mem     *store.Memory
	carts   *cart.Service
	rec     *telegramtest.Recorder
	journal *journal.Memory
	events  *recordingEvents
	rdb     *redis.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := store.NewMemory()
	rec := &telegramtest.Recorder{}
	live := cache.NewLive(rdb)
	gw := notify.NewGateway(notify.Options{
		Messenger:   rec,
		OwnerChatID: ownerChat,
		Prompts:     cache.NewPromptStore(rdb),
		Web:         live,
	})
	j := journal.NewMemory()
	ev := &recordingEvents{}

	engine := NewEngine(Deps{
		Ledger:            mem,
		Catalog:           mem,
		Carts:             mem,
		Notifier:          gw,
		Renderer:          invoice.NewRenderer(invoice.BankDetails{Name: "Boutique Test", IBAN: "BE71096123456769", BIC: "GKCCBEBB"}),
		Journal:           j,
		Events:            ev,
		Live:              live,
		LowStockThreshold: 2,
		ResetHooks: []func(ctx context.Context) error{
			func(ctx context.Context) error { return cache.ResetEphemeral(ctx, rdb) },
		},
		Now: func() time.Time { return fixedNow },
	})
	return &fixture{
		engine:  engine,
		mem:     mem,
		carts:   cart.NewService(mem, mem, live),
		rec:     rec,
		journal: j,
		events:  ev,
		rdb:     rdb,
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.mem.CreateProduct(context.Background(), models.NewProduct{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.mem.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) order(t *testing.T, items ...ItemRequest) *models.Order {
	t.Helper()
	out, err := f.engine.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Lucía",
		Origin:       models.ChatOrigin{ChatID: customerChat},
		Items:        items,
	})
	require.NoError(t, err)
	return out.Order
}

func TestCreateOrderSnapshotsPricesAndNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	bonnet := f.product(t, "Bonnet", "12.50", 10)
	gants := f.product(t, "Gants", "8.00", 4)

	o := f.order(t,
		ItemRequest{ProductID: bonnet.ID, Quantity: 1},
		ItemRequest{ProductID: gants.ID, Quantity: 2},
		ItemRequest{ProductID: bonnet.ID, Quantity: 1},
	)

	assert.Equal(t, models.StatusPendingApproval, o.Status)
	require.Len(t, o.Items, 2, "duplicate lines are merged")
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("41.00").Equal(o.Total))
	assert.Equal(t, 10, f.stock(t, bonnet.ID), "creation never touches stock")

	prompts := f.rec.SentTo(ownerChat)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Lucía")
	assert.Contains(t, prompts[0].Text, "41.00")
	require.Len(t, prompts[0].Buttons, 1)
	assert.Equal(t, fmt.Sprintf("approve_%d", o.ID), prompts[0].Buttons[0][0].Data)
	assert.Equal(t, fmt.Sprintf("reject_%d", o.ID), prompts[0].Buttons[0][1].Data)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	origin := models.ChatOrigin{ChatID: customerChat}

	cases := []struct {
		name  string
		input CreateOrderInput
		want  error
	}{
		{"no items", CreateOrderInput{CustomerName: "A", Origin: origin}, models.ErrValidation},
		{"zero quantity", CreateOrderInput{CustomerName: "A", Origin: origin, Items: []ItemRequest{{ProductID: p.ID, Quantity: 0}}}, models.ErrValidation},
		{"blank name", CreateOrderInput{CustomerName: "  ", Origin: origin, Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}}, models.ErrValidation},
		{"unknown product", CreateOrderInput{CustomerName: "A", Origin: origin, Items: []ItemRequest{{ProductID: 99, Quantity: 1}}}, models.ErrNotFound},
		{"over stock", CreateOrderInput{CustomerName: "A", Origin: origin, Items: []ItemRequest{{ProductID: p.ID, Quantity: 11}}}, models.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.CreateOrder(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInsufficientStockCreatesNoOrder(t *testing.T) {
	f := newFixture(t)
	ok := f.product(t, "Bonnet", "12.50", 10)
	short := f.product(t, "Gants", "8.00", 1)

	_, err := f.engine.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Lucía",
		Origin:       models.ChatOrigin{ChatID: customerChat},
		Items:        []ItemRequest{{ProductID: ok.ID, Quantity: 1}, {ProductID: short.ID, Quantity: 2}},
	})
	var se *models.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, short.ID, se.ProductID)
	assert.Equal(t, 1, se.Available)

	orders, err := f.engine.ListOrdersByOrigin(context.Background(), models.ChatOrigin{ChatID: customerChat})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.rec.SentTo(ownerChat))
}

func TestCreateOrderFromCartClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bonnet", "12.50", 10)
	origin := models.WebOrigin{SessionID: "sess-1"}

	_, err := f.carts.Add(ctx, origin, p.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, origin, p.ID, 3)
	require.NoError(t, err)

	out, err := f.engine.CreateOrder(ctx, CreateOrderInput{
		CustomerName:        "Web",
		Origin:              origin,
		FromCart:            true,
		RequireConfirmation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, out.Order.Status)
	require.Len(t, out.Order.Items, 1)
	assert.Equal(t, 5, out.Order.Items[0].Quantity)
	assert.Empty(t, f.rec.SentTo(ownerChat), "drafts are not shown to the owner")

	lines, err := f.carts.Get(ctx, origin)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDraftConfirmThenCancelUpdatesPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bonnet", "12.50", 10)

	out, err := f.engine.CreateOrder(ctx, CreateOrderInput{
		CustomerName:        "Web",
		Origin:              models.WebOrigin{SessionID: "sess-1"},
		Items:               []ItemRequest{{ProductID: p.ID, Quantity: 1}},
		RequireConfirmation: true,
	})
	require.NoError(t, err)
	id := out.Order.ID

	confirmed, err := f.engine.ConfirmOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, confirmed.Order.Status)
	require.Len(t, f.rec.SentTo(ownerChat), 1)

	_, err = f.engine.ConfirmOrder(ctx, id)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	cancelled, err := f.engine.CancelOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelledByCustomer, cancelled.Order.Status)
	require.Len(t, f.rec.Edited, 1)
	assert.Contains(t, f.rec.Edited[0].Text, "annulée")
	assert.Equal(t, 10, f.stock(t, p.ID))

	_, err = f.engine.CancelOrder(ctx, id)
	var se *models.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "annuler", se.Action)
}

func TestCancelDraftDoesNotTouchOwner(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	out, err := f.engine.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:        "Web",
		Origin:              models.WebOrigin{SessionID: "sess-1"},
		Items:               []ItemRequest{{ProductID: p.ID, Quantity: 1}},
		RequireConfirmation: true,
	})
	require.NoError(t, err)

	_, err = f.engine.CancelOrder(context.Background(), out.Order.ID)
	require.NoError(t, err)
	assert.Empty(t, f.rec.Edited)
	assert.Empty(t, f.rec.SentTo(ownerChat))
}

func TestApproveDecrementsStockAndDeliversInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bonnet", "12.50", 5)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})

	out, err := f.engine.ApproveOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Order.Status)
	require.NotNil(t, out.Order.ApprovedAt)
	assert.Equal(t, fixedNow, *out.Order.ApprovedAt)
	assert.Equal(t, 2, f.stock(t, p.ID))

	require.Len(t, f.rec.Documents, 1)
	assert.Equal(t, ownerChat, f.rec.Documents[0].ChatID)
	assert.True(t, strings.HasPrefix(string(f.rec.Documents[0].Data), "%PDF"))

	assert.True(t, f.rec.AnySentContains(customerChat, "approuvée"))
	require.Len(t, f.rec.Edited, 1)
	assert.Contains(t, f.rec.Edited[0].Text, "approuvée")
	assert.True(t, f.rec.AnySentContains(ownerChat, "Stock bas"), "remaining stock 2 reaches the threshold")

	moves, err := f.journal.StockMovements(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, -3, moves[0].Quantity)
	assert.Equal(t, 2, moves[0].NewStock)

	audit := f.journal.Audit(o.ID)
	require.Len(t, audit, 2)
	assert.Equal(t, models.StatusApproved, audit[1].Status)
	assert.Equal(t, "owner", audit[1].Actor)
	assert.Len(t, f.events.events, 2)
	assert.Empty(t, out.Warnings)
}

func TestDoubleApprovalIsRejectedWithoutSecondDecrement(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})

	_, err := f.engine.ApproveOrder(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = f.engine.ApproveOrder(context.Background(), o.ID)
	var se *models.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.StatusApproved, se.Status)
	assert.Equal(t, "approuver", se.Action)
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestSecondApprovalFailsWhenStockConsumed(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 5)
	first := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})
	second := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})

	_, err := f.engine.ApproveOrder(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t, p.ID))

	_, err = f.engine.ApproveOrder(context.Background(), second.ID)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	o, err := f.engine.GetOrder(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, o.Status)
	assert.Equal(t, 2, f.stock(t, p.ID))
}

func TestConcurrentApprovalsNeverOversell(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 5)
	a := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})
	b := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 3})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.engine.ApproveOrder(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.stock(t, p.ID))
}

func TestApprovalIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	plenty := f.product(t, "Bonnet", "12.50", 10)
	scarce := f.product(t, "Gants", "8.00", 2)
	o := f.order(t, ItemRequest{ProductID: plenty.ID, Quantity: 4}, ItemRequest{ProductID: scarce.ID, Quantity: 2})

	_, err := f.mem.DecrementStock(context.Background(), scarce.ID, 1)
	require.NoError(t, err)

	_, err = f.engine.ApproveOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 10, f.stock(t, plenty.ID))
	assert.Equal(t, 1, f.stock(t, scarce.ID))
}

func TestApprovalFailsForDeletedProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, f.mem.DeleteProduct(context.Background(), p.ID))

	_, err := f.engine.ApproveOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	kept, err := f.engine.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bonnet", kept.Items[0].ProductName)
}

func TestRejectSeventhOrderKeepsStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 50)
	var seventh *models.Order
	for i := 0; i < 7; i++ {
		seventh = f.order(t, ItemRequest{ProductID: p.ID, Quantity: 2})
	}
	require.Equal(t, int64(7), seventh.ID)

	out, err := f.engine.RejectOrder(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, out.Order.Status)
	assert.Equal(t, 50, f.stock(t, p.ID))
	assert.True(t, f.rec.AnySentContains(customerChat, "#7"))
	require.Len(t, f.rec.Edited, 1)
	assert.Contains(t, f.rec.Edited[0].Text, "refusée")

	_, err = f.engine.RejectOrder(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = f.engine.ApproveOrder(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	pending, err := f.engine.ListPendingOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 6)
	assert.Equal(t, int64(1), pending[0].ID)
}

func TestTotalIsImmutableAfterPriceChange(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 2})

	price := decimal.RequireFromString("99.99")
	_, err := f.mem.UpdateProduct(context.Background(), p.ID, models.ProductUpdate{Price: &price})
	require.NoError(t, err)

	out, err := f.engine.ApproveOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.00").Equal(out.Order.Total))
	assert.True(t, decimal.RequireFromString("12.50").Equal(out.Order.Items[0].UnitPrice))
}

func TestNotificationFailureDoesNotFailApproval(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bonnet", "12.50", 10)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 1})

	f.rec.Fail = true
	out, err := f.engine.ApproveOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Order.Status)
	assert.NotEmpty(t, out.Warnings)
	assert.Equal(t, 9, f.stock(t, p.ID))
}

func TestUnknownOrder(t *testing.T) {
	f := newFixture(t)
	for name, op := range map[string]func(context.Context, int64) (*Outcome, error){
		"confirm": f.engine.ConfirmOrder,
		"cancel":  f.engine.CancelOrder,
		"approve": f.engine.ApproveOrder,
		"reject":  f.engine.RejectOrder,
	} {
		_, err := op(context.Background(), 42)
		assert.True(t, errors.Is(err, models.ErrNotFound), name)
	}
}

func TestResetEmptiesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bonnet", "12.50", 10)
	o := f.order(t, ItemRequest{ProductID: p.ID, Quantity: 1})
	_, err := f.engine.ApproveOrder(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, models.WebOrigin{SessionID: "s"}, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.rdb.Set(ctx, "conv:1000", "{}", 0).Err())

	require.NoError(t, f.engine.Reset(ctx))

	products, err := f.mem.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	_, err = f.engine.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	lines, err := f.carts.Get(ctx, models.WebOrigin{SessionID: "s"})
	require.NoError(t, err)
	assert.Empty(t, lines)
	moves, err := f.journal.StockMovements(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, moves)
	n, err := f.rdb.Exists(ctx, "conv:1000").Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	fresh := f.product(t, "Écharpe", "20.00", 1)
	assert.Equal(t, int64(1), fresh.ID)
}
