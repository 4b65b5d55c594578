package application

import (
	"context"
	"fmt"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/locking"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
	"github.com/sellerhub/stocksync/pkg/outbox"
)

// SyncNotifier receives availability changes and turns them into marketplace
// sync intents. Enqueueing never blocks the caller.
type SyncNotifier interface {
	StockChanged(warehouseID, article string, available int)
}

// InventoryService handles direct ledger mutations: manual adjustments,
// reservations and their lifecycle, and aggregate rebuilds. Every mutation
// runs under the key's lock so the append and the fold are one critical
// section.
type InventoryService struct {
	ledger     domain.LedgerStore
	aggregates domain.AggregateStore
	outboxRepo outbox.Repository
	locker     locking.KeyLocker
	notifier   SyncNotifier
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewInventoryService creates an InventoryService.
func NewInventoryService(
	ledger domain.LedgerStore,
	aggregates domain.AggregateStore,
	outboxRepo outbox.Repository,
	locker locking.KeyLocker,
	notifier SyncNotifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryService {
	return &InventoryService{
		ledger:     ledger,
		aggregates: aggregates,
		outboxRepo: outboxRepo,
		locker:     locker,
		notifier:   notifier,
		logger:     logger.WithComponent("inventory-service"),
		metrics:    m,
	}
}

// Adjust appends a manual correction with a signed delta.
func (s *InventoryService) Adjust(ctx context.Context, cmd AdjustStockCommand) (*StockDTO, error) {
	event, err := domain.NewStockEvent(cmd.WarehouseID, cmd.Article, cmd.Delta, domain.ReasonManualAdjust, "", cmd.ActorID)
	if err != nil {
		return nil, err
	}
	event.Note = cmd.Note

	aggregate, err := s.applyEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Stock adjusted",
		"warehouseId", cmd.WarehouseID, "article", cmd.Article, "delta", cmd.Delta, "actorId", cmd.ActorID)

	dto := ToStockDTO(aggregate)
	return &dto, nil
}

// Reserve places a hold against available stock. Re-requesting a hold for a
// reference that is still active returns the existing hold instead of
// stacking a second one.
func (s *InventoryService) Reserve(ctx context.Context, cmd ReserveStockCommand) (*ReservationDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	key := domain.StockKey{WarehouseID: cmd.WarehouseID, Article: cmd.Article}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.ledger.FindByReference(ctx, key, cmd.ReferenceID)
	if err != nil {
		return nil, err
	}
	state := domain.FoldReservation(existing, cmd.ReferenceID)
	if state.Active() {
		return &ReservationDTO{
			WarehouseID: cmd.WarehouseID,
			Article:     cmd.Article,
			ReferenceID: cmd.ReferenceID,
			Quantity:    state.Reserved,
			Outstanding: state.Outstanding(),
			Active:      true,
		}, nil
	}

	event, err := domain.NewStockEvent(cmd.WarehouseID, cmd.Article, cmd.Quantity, domain.ReasonOrderReserve, cmd.ReferenceID, cmd.ActorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.applyEventLocked(ctx, event); err != nil {
		if err == domain.ErrInsufficientAvailability {
			s.metrics.ReservationDenied.Inc()
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Stock reserved",
		"warehouseId", cmd.WarehouseID, "article", cmd.Article, "quantity", cmd.Quantity, "referenceId", cmd.ReferenceID)

	return &ReservationDTO{
		WarehouseID: cmd.WarehouseID,
		Article:     cmd.Article,
		ReferenceID: cmd.ReferenceID,
		Quantity:    cmd.Quantity,
		Outstanding: cmd.Quantity,
		Active:      true,
	}, nil
}

// Release returns a hold to the available pool. Releasing a reference that
// was already released is a no-op; a reference that was never reserved fails
// with ErrReservationNotFound.
func (s *InventoryService) Release(ctx context.Context, cmd ReleaseReservationCommand) (*ReservationDTO, error) {
	key := domain.StockKey{WarehouseID: cmd.WarehouseID, Article: cmd.Article}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.reservationState(ctx, key, cmd.ReferenceID)
	if err != nil {
		return nil, err
	}
	if state.Fulfilled > 0 {
		return nil, domain.ErrTokenAlreadyConsumed
	}

	outstanding := state.Outstanding()
	if outstanding == 0 {
		s.logger.WarnContext(ctx, "Release of an already released reservation",
			"warehouseId", cmd.WarehouseID, "article", cmd.Article, "referenceId", cmd.ReferenceID)
		return s.reservationDTO(cmd.WarehouseID, cmd.Article, cmd.ReferenceID, state), nil
	}

	event, err := domain.NewStockEvent(cmd.WarehouseID, cmd.Article, -outstanding, domain.ReasonOrderRelease, cmd.ReferenceID, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyEventLocked(ctx, event); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Reservation released",
		"warehouseId", cmd.WarehouseID, "article", cmd.Article, "quantity", outstanding, "referenceId", cmd.ReferenceID)

	state.Released += outstanding
	return s.reservationDTO(cmd.WarehouseID, cmd.Article, cmd.ReferenceID, state), nil
}

// Fulfill consumes a hold: the units ship, decrementing both quantity and the
// reservation counter. A token can be fulfilled at most once.
func (s *InventoryService) Fulfill(ctx context.Context, cmd FulfillReservationCommand) (*ReservationDTO, error) {
	key := domain.StockKey{WarehouseID: cmd.WarehouseID, Article: cmd.Article}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.reservationState(ctx, key, cmd.ReferenceID)
	if err != nil {
		return nil, err
	}
	if !state.Active() {
		return nil, domain.ErrTokenAlreadyConsumed
	}

	outstanding := state.Outstanding()
	event, err := domain.NewStockEvent(cmd.WarehouseID, cmd.Article, -outstanding, domain.ReasonOrderFulfill, cmd.ReferenceID, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyEventLocked(ctx, event); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Reservation fulfilled",
		"warehouseId", cmd.WarehouseID, "article", cmd.Article, "quantity", outstanding, "referenceId", cmd.ReferenceID)

	state.Fulfilled += outstanding
	return s.reservationDTO(cmd.WarehouseID, cmd.Article, cmd.ReferenceID, state), nil
}

// SetAlertThreshold changes the low-stock alert level for a key.
func (s *InventoryService) SetAlertThreshold(ctx context.Context, cmd SetAlertThresholdCommand) (*StockDTO, error) {
	if cmd.AlertThreshold < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	key := domain.StockKey{WarehouseID: cmd.WarehouseID, Article: cmd.Article}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	aggregate, err := s.aggregates.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if aggregate == nil {
		aggregate = domain.NewStockAggregate(cmd.WarehouseID, cmd.Article)
	}
	aggregate.AlertThreshold = cmd.AlertThreshold

	if err := s.aggregates.Put(ctx, aggregate); err != nil {
		return nil, err
	}

	dto := ToStockDTO(aggregate)
	return &dto, nil
}

// Rebuild refolds one key's aggregate from sequence zero. The result must
// match the incrementally maintained row; divergence means the row was
// corrupted and the rebuilt one replaces it.
func (s *InventoryService) Rebuild(ctx context.Context, cmd RebuildAggregateCommand) (*RebuildResultDTO, error) {
	key := domain.StockKey{WarehouseID: cmd.WarehouseID, Article: cmd.Article}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.aggregates.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	rebuilt := domain.NewStockAggregate(cmd.WarehouseID, cmd.Article)
	if existing != nil {
		rebuilt.AlertThreshold = existing.AlertThreshold
	}

	cursor, err := s.ledger.Replay(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	folded := 0
	for cursor.Next(ctx) {
		if err := rebuilt.Fold(cursor.Event()); err != nil {
			return nil, fmt.Errorf("failed to refold event %d: %w", cursor.Event().SequenceNo, err)
		}
		folded++
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	rebuilt.PullEvents()

	if err := s.aggregates.Put(ctx, rebuilt); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Aggregate rebuilt",
		"warehouseId", cmd.WarehouseID, "article", cmd.Article, "eventsFolded", folded)

	return &RebuildResultDTO{Stock: ToStockDTO(rebuilt), EventsFolded: folded}, nil
}

// applyEvent locks the event's key and runs the append-fold-save sequence.
func (s *InventoryService) applyEvent(ctx context.Context, event *domain.StockEvent) (*domain.StockAggregate, error) {
	unlock, err := s.locker.Lock(ctx, event.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.applyEventLocked(ctx, event)
}

// applyEventLocked runs append-fold-save for a key the caller already holds.
func (s *InventoryService) applyEventLocked(ctx context.Context, event *domain.StockEvent) (*domain.StockAggregate, error) {
	aggregate, err := s.aggregates.Get(ctx, event.Key())
	if err != nil {
		return nil, err
	}
	if aggregate == nil {
		aggregate = domain.NewStockAggregate(event.WarehouseID, event.Article)
	}

	if err := aggregate.CanFold(event); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Append(ctx, event); err != nil {
		if err == domain.ErrConcurrentAppendConflict {
			s.metrics.AppendConflicts.Inc()
		}
		return nil, err
	}
	s.metrics.LedgerAppends.WithLabelValues(string(event.Reason)).Inc()

	if err := aggregate.Fold(event); err != nil {
		return nil, err
	}
	s.metrics.FoldsApplied.WithLabelValues(string(event.Reason)).Inc()

	domainEvents := aggregate.PullEvents()
	if err := s.aggregates.Put(ctx, aggregate); err != nil {
		return nil, err
	}

	s.stashEvents(ctx, event.WarehouseID+"/"+event.Article, domainEvents)

	if s.notifier != nil {
		s.notifier.StockChanged(aggregate.WarehouseID, aggregate.Article, aggregate.Available())
	}
	return aggregate, nil
}

func (s *InventoryService) reservationState(ctx context.Context, key domain.StockKey, referenceID string) (domain.ReservationState, error) {
	events, err := s.ledger.FindByReference(ctx, key, referenceID)
	if err != nil {
		return domain.ReservationState{}, err
	}
	state := domain.FoldReservation(events, referenceID)
	if state.Reserved == 0 {
		return domain.ReservationState{}, domain.ErrReservationNotFound
	}
	return state, nil
}

func (s *InventoryService) reservationDTO(warehouseID, article, referenceID string, state domain.ReservationState) *ReservationDTO {
	return &ReservationDTO{
		WarehouseID: warehouseID,
		Article:     article,
		ReferenceID: referenceID,
		Quantity:    state.Reserved,
		Outstanding: state.Outstanding(),
		Active:      state.Active(),
	}
}

func (s *InventoryService) stashEvents(ctx context.Context, aggregateID string, events []domain.DomainEvent) {
	if len(events) == 0 {
		return
	}
	rows := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		row, err := outbox.NewEvent(aggregateID, "StockAggregate", kafkaTopicFor(event), event)
		if err != nil {
			s.logger.WithError(err).ErrorContext(ctx, "Failed to build outbox event", "eventType", event.EventType())
			continue
		}
		rows = append(rows, row)
	}
	if err := s.outboxRepo.SaveAll(ctx, rows); err != nil {
		// The state change is already durable; the stream just misses an
		// entry until the next change or a rebuild.
		s.logger.WithError(err).ErrorContext(ctx, "Failed to save outbox events", "aggregateId", aggregateID)
	}
}
