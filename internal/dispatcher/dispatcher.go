package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/pkg/kafka"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
	"github.com/sellerhub/stocksync/pkg/outbox"
	"github.com/sellerhub/stocksync/pkg/resilience"
)

// Config tunes the dispatcher.
type Config struct {
	// WorkersPerMarketplace bounds concurrent pushes per marketplace.
	WorkersPerMarketplace int
	// QueueSize is the per-marketplace intent channel capacity.
	QueueSize int
	// MaxAttempts is the total push budget per intent, first try included.
	MaxAttempts int
	// PushTimeout is the hard deadline for one adapter call.
	PushTimeout time.Duration
	// InitialBackoff and MaxBackoff bound the retry delays.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// ResyncInterval triggers a full re-push of every aggregate to every
	// active link, repairing drift from lost intents. Zero disables it.
	ResyncInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		WorkersPerMarketplace: 4,
		QueueSize:             4096,
		MaxAttempts:           5,
		PushTimeout:           30 * time.Second,
		InitialBackoff:        500 * time.Millisecond,
		MaxBackoff:            30 * time.Second,
		ResyncInterval:        15 * time.Minute,
	}
}

// Dispatcher turns availability changes into marketplace pushes. Intents
// coalesce per (link, article) key so bursts collapse into one push carrying
// the latest quantity; each marketplace gets its own bounded worker pool and
// circuit breaker so one slow or failing channel cannot starve the others.
type Dispatcher struct {
	config     Config
	links      domain.LinkStore
	registry   *domain.AdapterRegistry
	audit      domain.AuditStore
	aggregates domain.AggregateStore
	outboxRepo outbox.Repository
	logger     *logging.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	pending  map[intentKey]*pendingIntent
	queues   map[domain.Marketplace]chan intentKey
	breakers map[domain.Marketplace]*resilience.CircuitBreaker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Dispatcher.
func New(
	config Config,
	links domain.LinkStore,
	registry *domain.AdapterRegistry,
	audit domain.AuditStore,
	aggregates domain.AggregateStore,
	outboxRepo outbox.Repository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	d := &Dispatcher{
		config:     config,
		links:      links,
		registry:   registry,
		audit:      audit,
		aggregates: aggregates,
		outboxRepo: outboxRepo,
		logger:     logger.WithComponent("sync-dispatcher"),
		metrics:    m,
		pending:    make(map[intentKey]*pendingIntent),
		queues:     make(map[domain.Marketplace]chan intentKey),
		breakers:   make(map[domain.Marketplace]*resilience.CircuitBreaker),
	}

	for _, marketplace := range registry.Marketplaces() {
		d.queues[marketplace] = make(chan intentKey, config.QueueSize)
		d.breakers[marketplace] = resilience.NewCircuitBreaker(
			resilience.DefaultCircuitBreakerConfig(string(marketplace)), d.logger.Logger)
	}
	return d
}

// Start launches the worker pools and the periodic re-sync sweep.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)

	for marketplace, queue := range d.queues {
		for i := 0; i < d.config.WorkersPerMarketplace; i++ {
			d.wg.Add(1)
			go d.worker(marketplace, queue)
		}
	}

	if d.config.ResyncInterval > 0 {
		d.wg.Add(1)
		go d.resyncLoop()
	}

	d.logger.Info("Sync dispatcher started",
		"marketplaces", len(d.queues), "workersPerMarketplace", d.config.WorkersPerMarketplace)
}

// Stop cancels the workers and waits for in-flight pushes to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("Sync dispatcher stopped")
}

// StockChanged implements application.SyncNotifier. Fan-out to links runs on
// its own goroutine so ledger mutations never wait on the dispatcher.
func (d *Dispatcher) StockChanged(warehouseID, article string, available int) {
	go d.fanOut(warehouseID, article, available)
}

func (d *Dispatcher) fanOut(warehouseID, article string, available int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	links, err := d.links.FindByWarehouse(ctx, warehouseID, true)
	if err != nil {
		d.logger.WithError(err).Error("Failed to resolve links for stock change",
			"warehouseId", warehouseID, "article", article)
		return
	}
	for _, link := range links {
		d.enqueue(link, article, available)
	}
}

// enqueue records the newest quantity for a (link, article) key. A key that
// is already queued is overwritten in place; a key whose push is in flight is
// marked dirty and re-queued when the push completes.
func (d *Dispatcher) enqueue(link *domain.WarehouseLink, article string, quantity int) {
	queue, ok := d.queues[link.Marketplace]
	if !ok {
		d.logger.Warn("No adapter registered for marketplace", "marketplace", link.Marketplace)
		return
	}
	key := intentKey{LinkID: link.LinkID, Article: article}

	d.mu.Lock()
	if intent, exists := d.pending[key]; exists {
		if intent.InFlight {
			intent.Dirty = true
			intent.DirtyQuantity = quantity
		} else {
			intent.Quantity = quantity
		}
		d.mu.Unlock()
		d.metrics.IntentsCoalesced.Inc()
		return
	}
	d.pending[key] = &pendingIntent{Quantity: quantity}
	d.metrics.IntentsQueued.Set(float64(len(d.pending)))
	d.mu.Unlock()

	select {
	case queue <- key:
	default:
		// Queue full: drop the channel entry but keep the pending slot; the
		// next change or re-sync sweep re-delivers it.
		d.mu.Lock()
		delete(d.pending, key)
		d.metrics.IntentsQueued.Set(float64(len(d.pending)))
		d.mu.Unlock()
		d.logger.Warn("Sync queue full, intent dropped",
			"marketplace", link.Marketplace, "linkId", link.LinkID, "article", article)
	}
}

func (d *Dispatcher) worker(marketplace domain.Marketplace, queue chan intentKey) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case key := <-queue:
			d.process(marketplace, key)
		}
	}
}

func (d *Dispatcher) process(marketplace domain.Marketplace, key intentKey) {
	d.mu.Lock()
	intent, ok := d.pending[key]
	if !ok || intent.InFlight {
		d.mu.Unlock()
		return
	}
	intent.InFlight = true
	quantity := intent.Quantity
	d.mu.Unlock()

	d.push(marketplace, key, quantity)
	d.finish(marketplace, key)
}

// finish releases the key's slot. If a newer quantity arrived during the
// push, the slot flips back to queued with that quantity and the key is
// re-delivered.
func (d *Dispatcher) finish(marketplace domain.Marketplace, key intentKey) {
	queue := d.queues[marketplace]

	d.mu.Lock()
	intent, ok := d.pending[key]
	if !ok {
		d.mu.Unlock()
		return
	}
	if intent.Dirty {
		intent.Quantity = intent.DirtyQuantity
		intent.Dirty = false
		intent.InFlight = false
		d.mu.Unlock()
		select {
		case queue <- key:
		default:
			d.mu.Lock()
			delete(d.pending, key)
			d.metrics.IntentsQueued.Set(float64(len(d.pending)))
			d.mu.Unlock()
		}
		return
	}
	delete(d.pending, key)
	d.metrics.IntentsQueued.Set(float64(len(d.pending)))
	d.mu.Unlock()
}

// push drives one intent through the retry loop: exponential backoff, the
// marketplace's circuit breaker, a hard per-attempt timeout, and one audit
// row per real attempt. Exhausting the budget drops the intent and emits a
// sync.retries.exhausted event instead of blocking the queue.
func (d *Dispatcher) push(marketplace domain.Marketplace, key intentKey, quantity int) {
	link, err := d.links.FindByID(d.ctx, key.LinkID)
	if err != nil {
		d.logger.WithError(err).Error("Intent references missing link", "linkId", key.LinkID)
		return
	}

	adapter, err := d.registry.Get(marketplace)
	if err != nil {
		d.logger.WithError(err).Error("No adapter for marketplace", "marketplace", marketplace)
		return
	}
	breaker := d.breakers[marketplace]

	attemptNo := 0
	suppressed := 0
	var lastErr error

	operation := func() error {
		start := time.Now()
		pushCtx, cancel := context.WithTimeout(d.ctx, d.config.PushTimeout)
		err := breaker.Execute(func() error {
			return adapter.PushStock(pushCtx, link.ExternalWarehouseID, key.Article, quantity)
		})
		cancel()

		if errors.Is(err, resilience.ErrCircuitOpen) {
			// No API call happened; retry after backoff without an audit row.
			suppressed++
			lastErr = err
			return err
		}

		attemptNo++
		d.metrics.RecordPush(string(marketplace), err == nil, time.Since(start))

		attempt := domain.NewSyncAttempt(link, key.Article, quantity, attemptNo, err, domain.IsRetryable(err))
		if auditErr := d.audit.Append(d.ctx, attempt); auditErr != nil {
			d.logger.WithError(auditErr).Error("Failed to record sync attempt", "linkId", link.LinkID)
		}

		if err == nil {
			return nil
		}
		lastErr = err
		d.logger.WithError(err).Warn("Marketplace push failed",
			"marketplace", marketplace, "linkId", link.LinkID, "article", key.Article, "attempt", attemptNo)

		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = d.config.InitialBackoff
	expo.MaxInterval = d.config.MaxBackoff
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(d.config.MaxAttempts-1)), d.ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		d.exhausted(link, key.Article, quantity, attemptNo, suppressed, lastErr)
		return
	}

	d.logger.Debug("Marketplace push succeeded",
		"marketplace", marketplace, "linkId", link.LinkID, "article", key.Article, "quantity", quantity, "attempts", attemptNo)
}

// exhausted surfaces a dropped intent on the event stream and in metrics so
// sellers can see the marketplace is stale rather than silently diverging.
func (d *Dispatcher) exhausted(link *domain.WarehouseLink, article string, quantity, attempts, suppressed int, lastErr error) {
	d.metrics.RetriesExhausted.WithLabelValues(string(link.Marketplace)).Inc()

	message := ""
	if lastErr != nil {
		message = lastErr.Error()
	}
	event := &domain.SyncExhaustedEvent{
		LinkID:      link.LinkID,
		Marketplace: string(link.Marketplace),
		Article:     article,
		Quantity:    quantity,
		Attempts:    attempts,
		Suppressed:  suppressed,
		LastError:   message,
		DroppedAt:   time.Now().UTC(),
	}

	row, err := outbox.NewEvent(link.LinkID+"/"+article, "SyncIntent", kafka.Topics.SyncEvents, event)
	if err == nil {
		err = d.outboxRepo.Save(d.ctx, row)
	}
	if err != nil {
		d.logger.WithError(err).Error("Failed to emit exhaustion event", "linkId", link.LinkID, "article", article)
	}

	d.logger.Error("Sync retries exhausted, intent dropped",
		"marketplace", link.Marketplace, "linkId", link.LinkID, "article", article,
		"attempts", attempts, "suppressed", suppressed, "lastError", message)
}

func (d *Dispatcher) resyncLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.Resync(d.ctx); err != nil {
				d.logger.WithError(err).Error("Periodic re-sync failed")
			}
		}
	}
}

// Resync re-enqueues every aggregate's availability for every active link of
// its warehouse. Idempotent by construction: pushes re-state quantities.
func (d *Dispatcher) Resync(ctx context.Context) error {
	aggregates, err := d.aggregates.ListAll(ctx)
	if err != nil {
		return err
	}

	linksByWarehouse := make(map[string][]*domain.WarehouseLink)
	for _, aggregate := range aggregates {
		links, ok := linksByWarehouse[aggregate.WarehouseID]
		if !ok {
			links, err = d.links.FindByWarehouse(ctx, aggregate.WarehouseID, true)
			if err != nil {
				return err
			}
			linksByWarehouse[aggregate.WarehouseID] = links
		}
		for _, link := range links {
			d.enqueue(link, aggregate.Article, aggregate.Available())
		}
	}

	d.logger.Info("Full re-sync enqueued", "aggregates", len(aggregates))
	return nil
}

// QueueDepth reports the pending intent count, for the readiness endpoint.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
