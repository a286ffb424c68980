package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"cartengine/internal/domain/model"
	"cartengine/internal/infra/memory"
	"cartengine/internal/metrics"
	"cartengine/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newGuard(store *memory.Store) (*usecase.StockGuard, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return usecase.NewStockGuard(store.Inventory(), m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestStockGuard_CheckAndReserve_Success(t *testing.T) {
	store := memory.NewStore()
	p := store.PutProduct(model.Product{Name: "Tee", Category: model.CategoryFashion, InStock: 5})
	guard, m := newGuard(store)

	err := guard.CheckAndReserve(context.Background(), p.ID, 3)
	assert.NoError(t, err)

	n, _ := store.Inventory().GetStock(context.Background(), p.ID)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StockReservations.WithLabelValues("reserved")))
}

func TestStockGuard_CheckAndReserve_Insufficient_CarriesAvailable(t *testing.T) {
	store := memory.NewStore()
	p := store.PutProduct(model.Product{Name: "Tee", Category: model.CategoryFashion, InStock: 1})
	guard, m := newGuard(store)

	err := guard.CheckAndReserve(context.Background(), p.ID, 2)

	var ise *model.InsufficientStockError
	if assert.True(t, errors.As(err, &ise)) {
		assert.Equal(t, int64(2), ise.Requested)
		assert.Equal(t, int64(1), ise.Available)
	}
	n, _ := store.Inventory().GetStock(context.Background(), p.ID)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StockReservations.WithLabelValues("insufficient")))
}

func TestStockGuard_CheckAndReserve_UnknownProduct(t *testing.T) {
	guard, _ := newGuard(memory.NewStore())

	err := guard.CheckAndReserve(context.Background(), 404, 1)
	assert.True(t, errors.Is(err, model.ErrProductNotFound))
}

func TestStockGuard_InvalidQuantity(t *testing.T) {
	guard, _ := newGuard(memory.NewStore())

	assert.True(t, errors.Is(guard.CheckAndReserve(context.Background(), 1, 0), model.ErrInvalidQuantity))
	assert.True(t, errors.Is(guard.Release(context.Background(), 1, -1), model.ErrInvalidQuantity))
	assert.True(t, errors.Is(guard.CanReserve(model.Product{InStock: 3}, 0), model.ErrInvalidQuantity))
}

func TestStockGuard_CanReserve_DoesNotWrite(t *testing.T) {
	store := memory.NewStore()
	p := store.PutProduct(model.Product{Name: "Tee", Category: model.CategoryFashion, InStock: 2})
	guard, _ := newGuard(store)

	assert.NoError(t, guard.CanReserve(p, 2))
	assert.True(t, errors.Is(guard.CanReserve(p, 3), model.ErrInsufficientStock))

	n, _ := store.Inventory().GetStock(context.Background(), p.ID)
	assert.Equal(t, int64(2), n)
}

// 同時に確保しても在庫を超えない
func TestStockGuard_ConcurrentReserve_NeverOversells(t *testing.T) {
	store := memory.NewStore()
	p := store.PutProduct(model.Product{Name: "Tee", Category: model.CategoryFashion, InStock: 10})
	guard, _ := newGuard(store)

	var (
		wg      sync.WaitGroup
		success atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := guard.CheckAndReserve(context.Background(), p.ID, 1); err == nil {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	n, _ := store.Inventory().GetStock(context.Background(), p.ID)
	assert.Equal(t, int64(10), success.Load())
	assert.Equal(t, int64(0), n)
}

func TestStockGuard_ReserveAll_CompensatesOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := store.PutProduct(model.Product{Name: "A", Category: model.CategoryFashion, InStock: 5})
	b := store.PutProduct(model.Product{Name: "B", Category: model.CategoryFashion, InStock: 4})
	c := store.PutProduct(model.Product{Name: "C", Category: model.CategoryFashion, InStock: 1})
	guard, _ := newGuard(store)

	err := guard.ReserveAll(ctx, []usecase.Reservation{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 4},
		{ProductID: c.ID, Quantity: 3},
	})
	assert.True(t, errors.Is(err, model.ErrInsufficientStock))

	for id, want := range map[int64]int64{a.ID: 5, b.ID: 4, c.ID: 1} {
		n, _ := store.Inventory().GetStock(ctx, id)
		assert.Equal(t, want, n, "product %d", id)
	}
}

// 同じ商品の複数行は合算して1回で判定する
func TestStockGuard_ReserveAll_MergesSameProduct(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := store.PutProduct(model.Product{Name: "A", Category: model.CategoryFashion, InStock: 3})
	b := store.PutProduct(model.Product{Name: "B", Category: model.CategoryFashion, InStock: 5})
	guard, _ := newGuard(store)

	err := guard.ReserveAll(ctx, []usecase.Reservation{
		{ProductID: b.ID, Quantity: 1},
		{ProductID: a.ID, Quantity: 2},
		{ProductID: a.ID, Quantity: 2},
	})
	var ise *model.InsufficientStockError
	if assert.True(t, errors.As(err, &ise)) {
		assert.Equal(t, a.ID, ise.ProductID)
		assert.Equal(t, int64(4), ise.Requested)
		assert.Equal(t, int64(3), ise.Available)
	}
	assert.Equal(t, int64(3), guard.Available(ctx, a.ID))
	assert.Equal(t, int64(5), guard.Available(ctx, b.ID))

	assert.NoError(t, guard.ReserveAll(ctx, []usecase.Reservation{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: a.ID, Quantity: 2},
	}))
	assert.Equal(t, int64(0), guard.Available(ctx, a.ID))
}

func TestStockGuard_ReleaseAll(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := store.PutProduct(model.Product{Name: "A", Category: model.CategoryFashion, InStock: 0})
	guard, _ := newGuard(store)

	err := guard.ReleaseAll(ctx, []usecase.Reservation{{ProductID: a.ID, Quantity: 2}, {ProductID: a.ID, Quantity: 1}})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), guard.Available(ctx, a.ID))

	err = guard.ReleaseAll(ctx, []usecase.Reservation{{ProductID: 999, Quantity: 1}})
	assert.Error(t, err)
	assert.Equal(t, int64(-1), guard.Available(ctx, 999))
}
