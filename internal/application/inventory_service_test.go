package application

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/memory"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
)

type notification struct {
	WarehouseID string
	Article     string
	Available   int
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notification
}

func (f *fakeNotifier) StockChanged(warehouseID, article string, available int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification{warehouseID, article, available})
}

func (f *fakeNotifier) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.notifications...)
}

type testEnv struct {
	ledger     *memory.LedgerStore
	aggregates *memory.AggregateStore
	outboxRepo *memory.OutboxRepository
	notifier   *fakeNotifier
	inventory  *InventoryService
	orders     *IncomeOrderService
	queries    *QueryService
	orderStore *memory.IncomeOrderStore
	audit      *memory.AuditStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	m := metrics.New(metrics.DefaultConfig("test"))
	locker := newTestLocker()
	notifier := &fakeNotifier{}

	env := &testEnv{
		ledger:     memory.NewLedgerStore(),
		aggregates: memory.NewAggregateStore(),
		outboxRepo: memory.NewOutboxRepository(),
		orderStore: memory.NewIncomeOrderStore(),
		audit:      memory.NewAuditStore(),
		notifier:   notifier,
	}
	env.inventory = NewInventoryService(env.ledger, env.aggregates, env.outboxRepo, locker, notifier, logger, m)
	env.orders = NewIncomeOrderService(env.orderStore, env.ledger, env.aggregates, env.outboxRepo, memory.NewTxRunner(), locker, notifier, logger, m)
	env.queries = NewQueryService(env.aggregates, env.ledger, env.audit)
	return env
}

func (env *testEnv) acceptOrder(t *testing.T, warehouseID, article string, quantity int) *IncomeOrderDTO {
	t.Helper()
	ctx := context.Background()

	draft, err := env.orders.Create(ctx, CreateIncomeOrderCommand{
		WarehouseID: warehouseID,
		SupplierID:  "SUP-1",
		Items:       []IncomeOrderItemInput{{Article: article, Quantity: quantity, UnitCost: 1000}},
	})
	require.NoError(t, err)

	accepted, err := env.orders.Accept(ctx, AcceptIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.NoError(t, err)
	return accepted.Order
}

func TestAcceptReserveFulfillFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 50)

	stock, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 50, stock.Quantity)
	assert.Equal(t, 50, stock.Available)

	_, err = env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 30, ReferenceID: "ORD-1", ActorID: "tester",
	})
	require.NoError(t, err)

	// Only 20 are available now; a 25-unit hold must be rejected.
	_, err = env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 25, ReferenceID: "ORD-2", ActorID: "tester",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientAvailability)

	res, err := env.inventory.Fulfill(ctx, FulfillReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-1", ActorID: "tester",
	})
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Equal(t, 0, res.Outstanding)

	stock, err = env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 20, stock.Quantity)
	assert.Equal(t, 0, stock.Reserved)
	assert.Equal(t, 20, stock.Available)
}

func TestReserveIdempotentByReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 10)

	first, err := env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 4, ReferenceID: "ORD-9", ActorID: "tester",
	})
	require.NoError(t, err)

	// Same reference again: no second hold is stacked.
	second, err := env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 4, ReferenceID: "ORD-9", ActorID: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Outstanding, second.Outstanding)

	stock, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stock.Reserved)
}

func TestReleaseRestoresAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 10)

	_, err := env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 6, ReferenceID: "ORD-5", ActorID: "tester",
	})
	require.NoError(t, err)

	released, err := env.inventory.Release(ctx, ReleaseReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-5", ActorID: "tester",
	})
	require.NoError(t, err)
	assert.False(t, released.Active)

	stock, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stock.Available)
	assert.Equal(t, 0, stock.Reserved)

	// Second release is a no-op, not an error.
	again, err := env.inventory.Release(ctx, ReleaseReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-5", ActorID: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Outstanding)
}

func TestReleaseUnknownReference(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.Release(context.Background(), ReleaseReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-404", ActorID: "tester",
	})
	require.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestFulfillTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 10)

	_, err := env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 3, ReferenceID: "ORD-7", ActorID: "tester",
	})
	require.NoError(t, err)

	_, err = env.inventory.Fulfill(ctx, FulfillReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-7", ActorID: "tester",
	})
	require.NoError(t, err)

	_, err = env.inventory.Fulfill(ctx, FulfillReservationCommand{
		WarehouseID: "WH-1", Article: "SKU-1", ReferenceID: "ORD-7", ActorID: "tester",
	})
	require.ErrorIs(t, err, domain.ErrTokenAlreadyConsumed)
}

func TestAdjustRejectsZeroDelta(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.Adjust(context.Background(), AdjustStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Delta: 0, ActorID: "tester",
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestAdjustNotifiesSync(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.Adjust(context.Background(), AdjustStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Delta: 7, ActorID: "tester",
	})
	require.NoError(t, err)

	notifications := env.notifier.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, notification{"WH-1", "SKU-1", 7}, notifications[0])
}

func TestRebuildMatchesIncrementalState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 40)
	_, err := env.inventory.Reserve(ctx, ReserveStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Quantity: 10, ReferenceID: "ORD-1", ActorID: "tester",
	})
	require.NoError(t, err)
	_, err = env.inventory.Adjust(ctx, AdjustStockCommand{
		WarehouseID: "WH-1", Article: "SKU-1", Delta: -5, ActorID: "tester",
	})
	require.NoError(t, err)

	before, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)

	// Corrupt the materialized row, then rebuild it from the ledger.
	corrupted := domain.NewStockAggregate("WH-1", "SKU-1")
	corrupted.Quantity = 999
	require.NoError(t, env.aggregates.Put(ctx, corrupted))

	result, err := env.inventory.Rebuild(ctx, RebuildAggregateCommand{WarehouseID: "WH-1", Article: "SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, before.Quantity, result.Stock.Quantity)
	assert.Equal(t, before.Reserved, result.Stock.Reserved)
	assert.Equal(t, before.LastSequenceNo, result.Stock.LastSequenceNo)
	assert.Equal(t, 3, result.EventsFolded)
}

func TestOutboxRowsWrittenOnMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 5)

	pending, err := env.outboxRepo.FindUnpublished(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	types := make(map[string]bool)
	for _, row := range pending {
		types[row.EventType] = true
	}
	assert.True(t, types["stock.level.changed"])
	assert.True(t, types["income.order.accepted"])
}

func TestGetStockNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.queries.GetStock(context.Background(), "WH-1", "SKU-404")
	require.ErrorIs(t, err, domain.ErrAggregateNotFound)
}
