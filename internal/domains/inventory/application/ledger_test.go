package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventorymemory "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/memory"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *inventorymemory.Repository) {
	t.Helper()
	repo := inventorymemory.NewRepository()
	return NewLedger(repo, opts...), repo
}

func seed(t *testing.T, ledger *Ledger, productID string, quantity int64, price int64) {
	t.Helper()
	_, err := ledger.Upsert(context.Background(), ports.UpsertInput{
		ProductID: productID,
		Quantity:  quantity,
		Price:     decimal.NewFromInt(price),
	})
	require.NoError(t, err)
}

func TestUpsert_CreatesThenOverwrites(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(t,
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string { return "rec-1" }),
	)
	ctx := context.Background()

	created, err := ledger.Upsert(ctx, ports.UpsertInput{ProductID: "P1", Quantity: 10, Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.Equal(t, "rec-1", created.ID)
	require.Equal(t, int64(10), created.Quantity)
	require.True(t, created.UpdatedAt.Equal(clock))

	clock = clock.Add(time.Minute)
	updated, err := ledger.Upsert(ctx, ports.UpsertInput{ProductID: "P1", Quantity: 3, Price: decimal.RequireFromString("7.50")})
	require.NoError(t, err)
	require.Equal(t, "rec-1", updated.ID)
	require.Equal(t, int64(3), updated.Quantity)
	require.True(t, updated.Price.Equal(decimal.RequireFromString("7.5")))
	require.True(t, updated.UpdatedAt.Equal(clock))

	list, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUpsert_RejectsNegativeValues(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Upsert(ctx, ports.UpsertInput{ProductID: "P1", Quantity: -1, Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrNegativeQuantity)

	_, err = ledger.Upsert(ctx, ports.UpsertInput{ProductID: "P1", Quantity: 1, Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, domain.ErrNegativePrice)

	_, err = ledger.Upsert(ctx, ports.UpsertInput{ProductID: " ", Quantity: 1, Price: decimal.Zero})
	require.ErrorIs(t, err, domain.ErrEmptyProductID)

	_, err = ledger.Get(ctx, "P1")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCheck_IsPureAndReportsPrices(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 10, 5)
	ctx := context.Background()

	first, err := ledger.Check(ctx, ports.CheckInput{Items: []domain.Item{{ProductID: "P1", Quantity: 5}}})
	require.NoError(t, err)
	second, err := ledger.Check(ctx, ports.CheckInput{Items: []domain.Item{{ProductID: "P1", Quantity: 5}}})
	require.NoError(t, err)

	require.True(t, first.Available)
	require.True(t, first.Prices["P1"].Equal(decimal.NewFromInt(5)))
	require.Equal(t, first, second)

	record, err := ledger.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, int64(10), record.Quantity)
}

func TestCheck_FirstFailureWins(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 1, 5)
	seed(t, ledger, "P2", 1, 5)

	result, err := ledger.Check(context.Background(), ports.CheckInput{Items: []domain.Item{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: 2},
		{ProductID: "P3", Quantity: 1},
	}})
	require.NoError(t, err)
	require.False(t, result.Available)
	require.Equal(t, "Insufficient inventory for product P2", result.Message)
	require.Empty(t, result.Prices)
}

func TestCheck_UnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger(t)

	result, err := ledger.Check(context.Background(), ports.CheckInput{Items: []domain.Item{{ProductID: "ghost", Quantity: 1}}})
	require.NoError(t, err)
	require.False(t, result.Available)
	require.Equal(t, "Insufficient inventory for product ghost", result.Message)
}

func TestCheck_RejectsNonPositiveQuantity(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 10, 5)

	_, err := ledger.Check(context.Background(), ports.CheckInput{Items: []domain.Item{{ProductID: "P1", Quantity: 0}}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestReserve_DecrementsStock(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 10, 5)
	ctx := context.Background()

	result, err := ledger.Reserve(ctx, ports.ReserveInput{Items: []domain.Item{{ProductID: "P1", Quantity: 5}}})
	require.NoError(t, err)
	require.True(t, result.Available)
	require.True(t, result.Prices["P1"].Equal(decimal.NewFromInt(5)))

	record, err := ledger.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, int64(5), record.Quantity)
}

func TestReserve_UnavailableLeavesStockUntouched(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 5, 5)
	seed(t, ledger, "P2", 5, 5)
	ctx := context.Background()

	result, err := ledger.Reserve(ctx, ports.ReserveInput{Items: []domain.Item{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 20},
	}})
	require.NoError(t, err)
	require.False(t, result.Available)

	for _, id := range []string{"P1", "P2"} {
		record, err := ledger.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), record.Quantity, id)
	}
}

func TestReserve_RepeatedProductLinesCountTogether(t *testing.T) {
	ledger, _ := newTestLedger(t)
	seed(t, ledger, "P1", 10, 5)

	result, err := ledger.Reserve(context.Background(), ports.ReserveInput{Items: []domain.Item{
		{ProductID: "P1", Quantity: 6},
		{ProductID: "P1", Quantity: 6},
	}})
	require.NoError(t, err)
	require.False(t, result.Available)

	record, err := ledger.Get(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, int64(10), record.Quantity)
}

func TestReserve_DisjointProductsSubtractExactly(t *testing.T) {
	ledger, _ := newTestLedger(t)
	products := []string{"A", "B", "C", "D"}
	for _, id := range products {
		seed(t, ledger, id, 100, 1)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range products {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(productID string, qty int64) {
				defer wg.Done()
				result, err := ledger.Reserve(ctx, ports.ReserveInput{Items: []domain.Item{{ProductID: productID, Quantity: qty}}})
				assert.NoError(t, err)
				assert.True(t, result.Available)
			}(id, int64(i+1))
		}
	}
	wg.Wait()

	for _, id := range products {
		record, err := ledger.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(100-55), record.Quantity, id)
	}
}

func TestReserve_ConcurrentOverdrawOnlyOneWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		ledger, _ := newTestLedger(t)
		seed(t, ledger, "P1", 7, 5)
		ctx := context.Background()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := ledger.Reserve(ctx, ports.ReserveInput{Items: []domain.Item{{ProductID: "P1", Quantity: 7}}})
				assert.NoError(t, err)
				if result.Available {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		record, err := ledger.Get(ctx, "P1")
		require.NoError(t, err)
		require.Equal(t, int64(0), record.Quantity)
	}
}

func TestReserve_TokenDeduplicates(t *testing.T) {
	store := inventorymemory.NewReservationStore()
	ledger, _ := newTestLedger(t, WithReservationStore(store, time.Hour))
	seed(t, ledger, "P1", 10, 5)
	ctx := context.Background()
	input := ports.ReserveInput{Token: "order-1", Items: []domain.Item{{ProductID: "P1", Quantity: 4}}}

	first, err := ledger.Reserve(ctx, input)
	require.NoError(t, err)
	second, err := ledger.Reserve(ctx, input)
	require.NoError(t, err)
	require.Equal(t, first, second)

	record, err := ledger.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, int64(6), record.Quantity)

	_, err = ledger.Reserve(ctx, ports.ReserveInput{Token: "order-1", Items: []domain.Item{{ProductID: "P1", Quantity: 1}}})
	require.ErrorIs(t, err, ports.ErrReservationConflict)
}

func TestReserve_ConcurrentSameTokenDecrementsOnce(t *testing.T) {
	store := inventorymemory.NewReservationStore()
	ledger, _ := newTestLedger(t, WithReservationStore(store, time.Hour))
	seed(t, ledger, "P1", 10, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := ledger.Reserve(ctx, ports.ReserveInput{Token: "dup", Items: []domain.Item{{ProductID: "P1", Quantity: 3}}})
			assert.NoError(t, err)
			assert.True(t, result.Available)
		}()
	}
	wg.Wait()

	record, err := ledger.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, int64(7), record.Quantity)
}

func TestReserve_UnavailableTokenIsNotRemembered(t *testing.T) {
	store := inventorymemory.NewReservationStore()
	ledger, _ := newTestLedger(t, WithReservationStore(store, time.Hour))
	seed(t, ledger, "P1", 1, 5)
	ctx := context.Background()
	input := ports.ReserveInput{Token: "later", Items: []domain.Item{{ProductID: "P1", Quantity: 2}}}

	result, err := ledger.Reserve(ctx, input)
	require.NoError(t, err)
	require.False(t, result.Available)

	seed(t, ledger, "P1", 2, 5)
	result, err = ledger.Reserve(ctx, input)
	require.NoError(t, err)
	require.True(t, result.Available)
}

func TestCheck_LiveTokenReportsItsReservation(t *testing.T) {
	ledger, _ := newTestLedger(t, WithReservationStore(inventorymemory.NewReservationStore(), time.Hour))
	seed(t, ledger, "P1", 5, 5)
	ctx := context.Background()
	items := []domain.Item{{ProductID: "P1", Quantity: 5}}

	reserved, err := ledger.Reserve(ctx, ports.ReserveInput{Token: "k1", Items: items})
	require.NoError(t, err)
	require.True(t, reserved.Available)

	untokened, err := ledger.Check(ctx, ports.CheckInput{Items: items})
	require.NoError(t, err)
	require.False(t, untokened.Available)

	retried, err := ledger.Check(ctx, ports.CheckInput{Token: "k1", Items: items})
	require.NoError(t, err)
	require.True(t, retried.Available)
	require.True(t, retried.Prices["P1"].Equal(decimal.NewFromInt(5)))

	_, err = ledger.Check(ctx, ports.CheckInput{Token: "k1", Items: []domain.Item{{ProductID: "P1", Quantity: 1}}})
	require.ErrorIs(t, err, ports.ErrReservationConflict)

	record, err := ledger.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, int64(0), record.Quantity)
}
