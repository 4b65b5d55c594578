package dispatcher

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/memory"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
)

type pushRecord struct {
	Article  string
	Quantity int
}

// scriptedAdapter fails the first failures pushes with a retryable error,
// then succeeds. An optional gate blocks each push until released; entered
// signals that a push has started.
type scriptedAdapter struct {
	marketplace domain.Marketplace
	failures    int
	permanent   bool
	entered     chan struct{}
	gate        chan struct{}

	mu     sync.Mutex
	pushes []pushRecord
}

func (a *scriptedAdapter) Marketplace() domain.Marketplace { return a.marketplace }

func (a *scriptedAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) error {
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.gate != nil {
		<-a.gate
	}

	a.mu.Lock()
	a.pushes = append(a.pushes, pushRecord{Article: article, Quantity: quantity})
	count := len(a.pushes)
	a.mu.Unlock()

	if count <= a.failures {
		if a.permanent {
			return domain.NewPermanentError(a.marketplace, "REQUEST_REJECTED", "scripted failure")
		}
		return domain.NewRetryableError(a.marketplace, "SERVER_ERROR", "scripted failure")
	}
	return nil
}

func (a *scriptedAdapter) ListWarehouses(ctx context.Context) ([]domain.ExternalWarehouse, error) {
	return nil, nil
}

func (a *scriptedAdapter) recorded() []pushRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]pushRecord(nil), a.pushes...)
}

type testFixture struct {
	dispatcher *Dispatcher
	links      *memory.LinkStore
	audit      *memory.AuditStore
	aggregates *memory.AggregateStore
	outboxRepo *memory.OutboxRepository
	link       *domain.WarehouseLink
}

func newFixture(t *testing.T, adapter domain.MarketplaceAdapter, config Config) *testFixture {
	t.Helper()

	registry := domain.NewAdapterRegistry()
	registry.Register(adapter)

	links := memory.NewLinkStore()
	link, err := domain.NewWarehouseLink("WH-1", adapter.Marketplace(), "EXT-1")
	require.NoError(t, err)
	require.NoError(t, links.Save(context.Background(), link))

	audit := memory.NewAuditStore()
	aggregates := memory.NewAggregateStore()
	outboxRepo := memory.NewOutboxRepository()
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})

	d := New(config, links, registry, audit, aggregates, outboxRepo, logger, metrics.New(metrics.DefaultConfig("test")))
	d.Start(context.Background())
	t.Cleanup(d.Stop)

	return &testFixture{dispatcher: d, links: links, audit: audit, aggregates: aggregates, outboxRepo: outboxRepo, link: link}
}

func fastConfig() Config {
	return Config{
		WorkersPerMarketplace: 1,
		QueueSize:             128,
		MaxAttempts:           3,
		PushTimeout:           time.Second,
		InitialBackoff:        time.Millisecond,
		MaxBackoff:            5 * time.Millisecond,
	}
}

func TestDispatcherPushesLatestQuantity(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon}
	f := newFixture(t, adapter, fastConfig())

	f.dispatcher.StockChanged("WH-1", "SKU-1", 10)

	require.Eventually(t, func() bool {
		return len(adapter.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pushes := adapter.recorded()
	assert.Equal(t, pushRecord{Article: "SKU-1", Quantity: 10}, pushes[0])

	latest, err := f.audit.Latest(context.Background(), f.link.LinkID, "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.SyncAttemptSuccess, latest.Status)
	assert.Equal(t, 10, latest.QuantitySent)
}

func TestDispatcherCoalescesBurst(t *testing.T) {
	adapter := &scriptedAdapter{
		marketplace: domain.MarketplaceOzon,
		entered:     make(chan struct{}),
		gate:        make(chan struct{}),
	}
	f := newFixture(t, adapter, fastConfig())

	// First change starts a push that blocks on the gate; the rest arrive
	// while it is in flight and must collapse into a single follow-up.
	f.dispatcher.StockChanged("WH-1", "SKU-1", 10)
	<-adapter.entered

	f.dispatcher.StockChanged("WH-1", "SKU-1", 9)
	time.Sleep(50 * time.Millisecond) // let the async fan-out land
	f.dispatcher.StockChanged("WH-1", "SKU-1", 7)
	time.Sleep(50 * time.Millisecond)

	adapter.gate <- struct{}{} // release the in-flight push
	<-adapter.entered
	adapter.gate <- struct{}{} // release the follow-up

	require.Eventually(t, func() bool {
		return f.dispatcher.QueueDepth() == 0
	}, 2*time.Second, time.Millisecond)

	pushes := adapter.recorded()
	require.Len(t, pushes, 2)
	assert.Equal(t, 10, pushes[0].Quantity)
	assert.Equal(t, 7, pushes[1].Quantity)
}

func TestDispatcherRetriesThenSucceeds(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon, failures: 2}
	f := newFixture(t, adapter, fastConfig())

	f.dispatcher.StockChanged("WH-1", "SKU-1", 5)

	require.Eventually(t, func() bool {
		return len(adapter.recorded()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	attempts, err := f.audit.List(context.Background(), domain.SyncHistoryFilter{Article: "SKU-1"})
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	// Newest first: one success after two retryable failures.
	assert.Equal(t, domain.SyncAttemptSuccess, attempts[0].Status)
	assert.Equal(t, 3, attempts[0].AttemptNo)
	assert.Equal(t, domain.SyncAttemptFailed, attempts[1].Status)
	assert.True(t, attempts[1].Retryable)
}

func TestDispatcherRetriesExhausted(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon, failures: 100}
	f := newFixture(t, adapter, fastConfig())

	f.dispatcher.StockChanged("WH-1", "SKU-1", 5)

	require.Eventually(t, func() bool {
		return f.dispatcher.QueueDepth() == 0 && len(adapter.recorded()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Every failed attempt is queryable in the audit log.
	attempts, err := f.audit.List(context.Background(), domain.SyncHistoryFilter{
		Article: "SKU-1",
		Status:  domain.SyncAttemptFailed,
	})
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	// The dropped intent surfaces on the event stream.
	require.Eventually(t, func() bool {
		pending, err := f.outboxRepo.FindUnpublished(context.Background(), 0)
		require.NoError(t, err)
		for _, row := range pending {
			if row.EventType == "sync.retries.exhausted" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherOpenCircuitSuppressionReported(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon, failures: 100}
	config := fastConfig()
	config.MaxAttempts = 5
	f := newFixture(t, adapter, config)

	// Five consecutive failures exhaust the first intent and trip the breaker.
	f.dispatcher.StockChanged("WH-1", "SKU-1", 5)
	require.Eventually(t, func() bool {
		return f.dispatcher.QueueDepth() == 0 && len(adapter.recorded()) == 5
	}, 2*time.Second, 10*time.Millisecond)

	// The next intent never reaches the marketplace: every try is swallowed
	// by the open circuit, with no audit rows and no adapter calls.
	f.dispatcher.StockChanged("WH-1", "SKU-2", 8)
	require.Eventually(t, func() bool {
		return f.dispatcher.QueueDepth() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, adapter.recorded(), 5)

	attempts, err := f.audit.List(context.Background(), domain.SyncHistoryFilter{Article: "SKU-2"})
	require.NoError(t, err)
	assert.Empty(t, attempts)

	// Both drops are on the event stream, and the payloads tell failed-call
	// exhaustion apart from open-circuit exhaustion.
	var events []domain.SyncExhaustedEvent
	require.Eventually(t, func() bool {
		pending, err := f.outboxRepo.FindUnpublished(context.Background(), 0)
		require.NoError(t, err)
		events = events[:0]
		for _, row := range pending {
			if row.EventType != "sync.retries.exhausted" {
				continue
			}
			var event domain.SyncExhaustedEvent
			require.NoError(t, json.Unmarshal(row.Payload, &event))
			events = append(events, event)
		}
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	byArticle := make(map[string]domain.SyncExhaustedEvent)
	for _, event := range events {
		byArticle[event.Article] = event
	}
	assert.Equal(t, 5, byArticle["SKU-1"].Attempts)
	assert.Equal(t, 0, byArticle["SKU-1"].Suppressed)
	assert.Equal(t, 0, byArticle["SKU-2"].Attempts)
	assert.Equal(t, 5, byArticle["SKU-2"].Suppressed)
}

func TestDispatcherPermanentErrorStopsRetries(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon, failures: 100, permanent: true}
	f := newFixture(t, adapter, fastConfig())

	f.dispatcher.StockChanged("WH-1", "SKU-1", 5)

	require.Eventually(t, func() bool {
		return f.dispatcher.QueueDepth() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// One attempt only: permanent errors do not burn the retry budget.
	assert.Len(t, adapter.recorded(), 1)

	attempts, err := f.audit.List(context.Background(), domain.SyncHistoryFilter{Article: "SKU-1"})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Retryable)
}

func TestDispatcherSkipsDisabledLinks(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon}
	f := newFixture(t, adapter, fastConfig())

	f.link.SetEnabled(false)
	require.NoError(t, f.links.Save(context.Background(), f.link))

	f.dispatcher.StockChanged("WH-1", "SKU-1", 5)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, adapter.recorded())
}

func TestDispatcherResyncSweep(t *testing.T) {
	adapter := &scriptedAdapter{marketplace: domain.MarketplaceOzon}
	f := newFixture(t, adapter, fastConfig())

	aggregate := domain.NewStockAggregate("WH-1", "SKU-1")
	aggregate.Quantity = 12
	require.NoError(t, f.aggregates.Put(context.Background(), aggregate))

	require.NoError(t, f.dispatcher.Resync(context.Background()))

	require.Eventually(t, func() bool {
		return len(adapter.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, pushRecord{Article: "SKU-1", Quantity: 12}, adapter.recorded()[0])
}
