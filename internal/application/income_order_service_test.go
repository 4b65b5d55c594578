package application

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/locking"
	"github.com/sellerhub/stocksync/internal/infrastructure/memory"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
)

func newTestLocker() locking.KeyLocker {
	return locking.NewStripedLocker()
}

func TestIncomeOrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.orders.Create(ctx, CreateIncomeOrderCommand{
		WarehouseID: "WH-1",
		SupplierID:  "SUP-1",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.IncomeOrderDraft), draft.Status)

	updated, err := env.orders.UpdateItems(ctx, UpdateIncomeOrderCommand{
		OrderID: draft.OrderID,
		Items: []IncomeOrderItemInput{
			{Article: "SKU-1", Quantity: 20, UnitCost: 1500},
			{Article: "SKU-2", Quantity: 5, UnitCost: 700, ExtraCost: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)

	accepted, err := env.orders.Accept(ctx, AcceptIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.IncomeOrderAccepted), accepted.Order.Status)
	require.NotNil(t, accepted.Order.AcceptedAt)

	// The posting reports the rows it changed, sorted by article.
	require.Len(t, accepted.Stock, 2)
	assert.Equal(t, "SKU-1", accepted.Stock[0].Article)
	assert.Equal(t, 20, accepted.Stock[0].Quantity)
	assert.Equal(t, "SKU-2", accepted.Stock[1].Article)
	assert.Equal(t, 5, accepted.Stock[1].Quantity)

	stock1, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 20, stock1.Quantity)

	stock2, err := env.queries.GetStock(ctx, "WH-1", "SKU-2")
	require.NoError(t, err)
	assert.Equal(t, 5, stock2.Quantity)

	// Items are immutable once accepted.
	_, err = env.orders.UpdateItems(ctx, UpdateIncomeOrderCommand{
		OrderID: draft.OrderID,
		Items:   []IncomeOrderItemInput{{Article: "SKU-1", Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrOrderLocked)
}

func TestIncomeOrderAcceptWithoutItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.orders.Create(ctx, CreateIncomeOrderCommand{WarehouseID: "WH-1", SupplierID: "SUP-1"})
	require.NoError(t, err)

	_, err = env.orders.Accept(ctx, AcceptIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.ErrorIs(t, err, domain.ErrOrderHasNoItems)
}

func TestIncomeOrderCancelCompensates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accepted := env.acceptOrder(t, "WH-1", "SKU-1", 30)

	cancelled, err := env.orders.Cancel(ctx, CancelIncomeOrderCommand{OrderID: accepted.OrderID, ActorID: "tester"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.IncomeOrderCancelled), cancelled.Order.Status)
	require.Len(t, cancelled.Stock, 1)
	assert.Equal(t, 0, cancelled.Stock[0].Quantity)

	stock, err := env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity)

	// The ledger keeps both sides of the reversal.
	events, err := env.queries.LedgerHistory(ctx, "WH-1", "SKU-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ReasonIncomeAccept, events[0].Reason)
	assert.Equal(t, domain.ReasonIncomeCancel, events[1].Reason)
	assert.Equal(t, accepted.OrderID, events[1].ReferenceID)
}

func TestIncomeOrderCancelDraftFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.orders.Create(ctx, CreateIncomeOrderCommand{
		WarehouseID: "WH-1",
		SupplierID:  "SUP-1",
		Items:       []IncomeOrderItemInput{{Article: "SKU-1", Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = env.orders.Cancel(ctx, CancelIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestIncomeOrderListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.acceptOrder(t, "WH-1", "SKU-1", 10)
	_, err := env.orders.Create(ctx, CreateIncomeOrderCommand{WarehouseID: "WH-1", SupplierID: "SUP-2"})
	require.NoError(t, err)
	_, err = env.orders.Create(ctx, CreateIncomeOrderCommand{WarehouseID: "WH-2", SupplierID: "SUP-3"})
	require.NoError(t, err)

	drafts, err := env.orders.List(ctx, "WH-1", string(domain.IncomeOrderDraft), 0, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "SUP-2", drafts[0].SupplierID)

	all, err := env.orders.List(ctx, "", "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// flakyLedger fails every append starting from the failOn-th call.
type flakyLedger struct {
	*memory.LedgerStore
	failOn  int
	appends int
}

func (f *flakyLedger) Append(ctx context.Context, event *domain.StockEvent) (int64, error) {
	f.appends++
	if f.appends >= f.failOn {
		return 0, errors.New("ledger unavailable")
	}
	return f.LedgerStore.Append(ctx, event)
}

func TestIncomeOrderAcceptAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The second line's ledger append fails mid-posting.
	ledger := &flakyLedger{LedgerStore: env.ledger, failOn: 2}
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	m := metrics.New(metrics.DefaultConfig("test"))
	orders := NewIncomeOrderService(env.orderStore, ledger, env.aggregates, env.outboxRepo,
		memory.NewTxRunner(), newTestLocker(), env.notifier, logger, m)

	draft, err := orders.Create(ctx, CreateIncomeOrderCommand{
		WarehouseID: "WH-1",
		SupplierID:  "SUP-1",
		Items: []IncomeOrderItemInput{
			{Article: "SKU-1", Quantity: 10, UnitCost: 100},
			{Article: "SKU-2", Quantity: 4, UnitCost: 200},
		},
	})
	require.NoError(t, err)

	_, err = orders.Accept(ctx, AcceptIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.Error(t, err)

	// No line was applied, not even the one whose append succeeded.
	_, err = env.queries.GetStock(ctx, "WH-1", "SKU-1")
	require.ErrorIs(t, err, domain.ErrAggregateNotFound)
	_, err = env.queries.GetStock(ctx, "WH-1", "SKU-2")
	require.ErrorIs(t, err, domain.ErrAggregateNotFound)

	// The order is still a draft and can be accepted once the ledger recovers.
	reloaded, err := orders.Get(ctx, draft.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.IncomeOrderDraft), reloaded.Status)

	pending, err := env.outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, env.notifier.all())

	ledger.failOn = 100
	accepted, err := orders.Accept(ctx, AcceptIncomeOrderCommand{OrderID: draft.OrderID, ActorID: "tester"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.IncomeOrderAccepted), accepted.Order.Status)
}

func TestIncomeOrderGetUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.Get(context.Background(), "INC-missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}
