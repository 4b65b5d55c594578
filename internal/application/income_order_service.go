package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/locking"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
	"github.com/sellerhub/stocksync/pkg/outbox"
)

// IncomeOrderService handles the supplier receipt lifecycle. Accept and
// Cancel post all of an order's lines to the ledger as one unit of work:
// either every line's event lands and every affected aggregate is updated,
// or nothing changes.
type IncomeOrderService struct {
	orders     domain.IncomeOrderStore
	ledger     domain.LedgerStore
	aggregates domain.AggregateStore
	outboxRepo outbox.Repository
	tx         domain.TxRunner
	locker     locking.KeyLocker
	notifier   SyncNotifier
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewIncomeOrderService creates an IncomeOrderService.
func NewIncomeOrderService(
	orders domain.IncomeOrderStore,
	ledger domain.LedgerStore,
	aggregates domain.AggregateStore,
	outboxRepo outbox.Repository,
	tx domain.TxRunner,
	locker locking.KeyLocker,
	notifier SyncNotifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *IncomeOrderService {
	return &IncomeOrderService{
		orders:     orders,
		ledger:     ledger,
		aggregates: aggregates,
		outboxRepo: outboxRepo,
		tx:         tx,
		locker:     locker,
		notifier:   notifier,
		logger:     logger.WithComponent("income-order-service"),
		metrics:    m,
	}
}

// Create opens a draft receipt, optionally with initial items.
func (s *IncomeOrderService) Create(ctx context.Context, cmd CreateIncomeOrderCommand) (*IncomeOrderDTO, error) {
	order := domain.NewIncomeOrder(cmd.WarehouseID, cmd.SupplierID)
	if len(cmd.Items) > 0 {
		if err := order.SetItems(toDomainItems(cmd.Items)); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create income order: %w", err)
	}

	s.logger.InfoContext(ctx, "Income order created",
		"orderId", order.OrderID, "warehouseId", cmd.WarehouseID, "supplierId", cmd.SupplierID)
	return ToIncomeOrderDTO(order), nil
}

// UpdateItems replaces a draft's items. Non-draft orders are immutable.
func (s *IncomeOrderService) UpdateItems(ctx context.Context, cmd UpdateIncomeOrderCommand) (*IncomeOrderDTO, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.SetItems(toDomainItems(cmd.Items)); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update income order: %w", err)
	}
	return ToIncomeOrderDTO(order), nil
}

// Get returns one order.
func (s *IncomeOrderService) Get(ctx context.Context, orderID string) (*IncomeOrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToIncomeOrderDTO(order), nil
}

// List returns orders filtered by warehouse and status.
func (s *IncomeOrderService) List(ctx context.Context, warehouseID, status string, limit, offset int) ([]*IncomeOrderDTO, error) {
	orders, err := s.orders.List(ctx, warehouseID, domain.IncomeOrderStatus(status), limit, offset)
	if err != nil {
		return nil, err
	}
	return ToIncomeOrderDTOs(orders), nil
}

// Accept posts a draft receipt to stock: one positive event per line, every
// affected aggregate updated, the order flipped to accepted.
func (s *IncomeOrderService) Accept(ctx context.Context, cmd AcceptIncomeOrderCommand) (*IncomeOrderPostingDTO, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	events, err := order.Accept(cmd.ActorID)
	if err != nil {
		return nil, err
	}

	touched, err := s.postEvents(ctx, order, events)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Income order accepted",
		"orderId", order.OrderID, "warehouseId", order.WarehouseID, "items", len(order.Items), "actorId", cmd.ActorID)
	return &IncomeOrderPostingDTO{Order: ToIncomeOrderDTO(order), Stock: ToStockDTOs(touched)}, nil
}

// Cancel reverses an accepted receipt with compensating negative events.
// Quantities already consumed since acceptance may drive availability
// negative on paper; that surfaces in the aggregates rather than blocking
// the cancellation.
func (s *IncomeOrderService) Cancel(ctx context.Context, cmd CancelIncomeOrderCommand) (*IncomeOrderPostingDTO, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	events, err := order.Cancel(cmd.ActorID)
	if err != nil {
		return nil, err
	}

	touched, err := s.postEvents(ctx, order, events)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Income order cancelled",
		"orderId", order.OrderID, "warehouseId", order.WarehouseID, "actorId", cmd.ActorID)
	return &IncomeOrderPostingDTO{Order: ToIncomeOrderDTO(order), Stock: ToStockDTOs(touched)}, nil
}

// postEvents persists the order flip, its ledger events and the aggregate
// updates inside one transaction, holding every touched key's lock. It
// returns the affected aggregates sorted by article.
func (s *IncomeOrderService) postEvents(ctx context.Context, order *domain.IncomeOrder, events []*domain.StockEvent) ([]*domain.StockAggregate, error) {
	keys := make([]domain.StockKey, 0, len(events))
	for _, event := range events {
		keys = append(keys, event.Key())
	}

	unlock, err := s.locker.LockMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Load and pre-validate every aggregate before touching storage.
	touched := make(map[domain.StockKey]*domain.StockAggregate, len(keys))
	for _, event := range events {
		aggregate, ok := touched[event.Key()]
		if !ok {
			aggregate, err = s.aggregates.Get(ctx, event.Key())
			if err != nil {
				return nil, err
			}
			if aggregate == nil {
				aggregate = domain.NewStockAggregate(event.WarehouseID, event.Article)
			}
			touched[event.Key()] = aggregate
		}
		if err := aggregate.CanFold(event); err != nil {
			return nil, err
		}
	}

	var pending []domain.DomainEvent
	err = s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		for _, event := range events {
			if _, err := s.ledger.Append(txCtx, event); err != nil {
				return err
			}
			s.metrics.LedgerAppends.WithLabelValues(string(event.Reason)).Inc()

			aggregate := touched[event.Key()]
			if err := aggregate.Fold(event); err != nil {
				return err
			}
			s.metrics.FoldsApplied.WithLabelValues(string(event.Reason)).Inc()
		}

		for _, aggregate := range touched {
			pending = append(pending, aggregate.PullEvents()...)
			if err := s.aggregates.Put(txCtx, aggregate); err != nil {
				return err
			}
		}

		if err := s.orders.Save(txCtx, order); err != nil {
			return err
		}

		pending = append(pending, order.PullEvents()...)
		return s.saveOutbox(txCtx, order.OrderID, pending)
	})
	if err != nil {
		return nil, err
	}

	affected := make([]*domain.StockAggregate, 0, len(touched))
	for _, aggregate := range touched {
		affected = append(affected, aggregate)
		if s.notifier != nil {
			s.notifier.StockChanged(aggregate.WarehouseID, aggregate.Article, aggregate.Available())
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i].Article < affected[j].Article })
	return affected, nil
}

func (s *IncomeOrderService) saveOutbox(ctx context.Context, orderID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		row, err := outbox.NewEvent(orderID, "IncomeOrder", kafkaTopicFor(event), event)
		if err != nil {
			return fmt.Errorf("failed to build outbox event: %w", err)
		}
		rows = append(rows, row)
	}
	return s.outboxRepo.SaveAll(ctx, rows)
}
