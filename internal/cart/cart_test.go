package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

type recordingNotifier struct {
	keys []string
}

func (r *recordingNotifier) PublishCartUpdate(ctx context.Context, sessionKey string) error {
	r.keys = append(r.keys, sessionKey)
	return nil
}

func setup(t *testing.T, stock int) (*Service, *store.Memory, *models.Product, *recordingNotifier) {
	t.Helper()
	mem := store.NewMemory()
	p, err := mem.CreateProduct(context.Background(), models.NewProduct{
		Name:  "Bonnet",
		Price: decimal.RequireFromString("12.50"),
		Stock: stock,
	})
	require.NoError(t, err)
	live := &recordingNotifier{}
	return NewService(mem, mem, live), mem, p, live
}

func TestGetEmptyCart(t *testing.T) {
	svc, _, _, _ := setup(t, 5)
	lines, err := svc.Get(context.Background(), models.WebOrigin{SessionID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddAccumulatesOnSameLine(t *testing.T) {
	svc, _, p, live := setup(t, 10)
	ctx := context.Background()
	origin := models.WebOrigin{SessionID: "s1"}

	_, err := svc.Add(ctx, origin, p.ID, 2)
	require.NoError(t, err)
	lines, err := svc.Add(ctx, origin, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "Bonnet", lines[0].Name)
	assert.True(t, decimal.RequireFromString("62.50").Equal(models.CartTotal(lines)))
	assert.Equal(t, []string{"web:s1", "web:s1"}, live.keys)
}

func TestAddValidation(t *testing.T) {
	svc, _, p, _ := setup(t, 3)
	ctx := context.Background()
	origin := models.ChatOrigin{ChatID: 7}

	_, err := svc.Add(ctx, origin, p.ID, 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Add(ctx, origin, p.ID, 4)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	_, err = svc.Add(ctx, origin, 404, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddRevalidatesAgainstCurrentStock(t *testing.T) {
	svc, mem, p, _ := setup(t, 5)
	ctx := context.Background()
	origin := models.WebOrigin{SessionID: "s1"}

	_, err := svc.Add(ctx, origin, p.ID, 3)
	require.NoError(t, err)

	// Le stock baisse entre deux ajouts
	_, err = mem.DecrementStock(ctx, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.Add(ctx, origin, p.ID, 2)
	var serr *models.StockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 5, serr.Requested)
	assert.Equal(t, 4, serr.Available)

	lines, err := svc.Get(ctx, origin)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	svc, _, p, _ := setup(t, 5)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.WebOrigin{SessionID: "a"}, p.ID, 5)
	require.NoError(t, err)
	_, err = svc.Add(ctx, models.WebOrigin{SessionID: "b"}, p.ID, 1)
	require.NoError(t, err)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _, p, _ := setup(t, 5)
	ctx := context.Background()
	origin := models.WebOrigin{SessionID: "s1"}

	_, err := svc.Add(ctx, origin, p.ID, 1)
	require.NoError(t, err)

	lines, err := svc.Remove(ctx, origin, p.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = svc.Remove(ctx, origin, p.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSetQuantity(t *testing.T) {
	svc, _, p, _ := setup(t, 5)
	ctx := context.Background()
	origin := models.WebOrigin{SessionID: "s1"}

	_, err := svc.Add(ctx, origin, p.ID, 1)
	require.NoError(t, err)

	lines, err := svc.SetQuantity(ctx, origin, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, lines[0].Quantity)

	_, err = svc.SetQuantity(ctx, origin, p.ID, 6)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	lines, err = svc.SetQuantity(ctx, origin, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestClear(t *testing.T) {
	svc, _, p, _ := setup(t, 5)
	ctx := context.Background()
	origin := models.ChatOrigin{ChatID: 9}

	_, err := svc.Add(ctx, origin, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, origin))

	lines, err := svc.Get(ctx, origin)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
