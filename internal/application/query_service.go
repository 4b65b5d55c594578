package application

import (
	"context"

	"github.com/sellerhub/stocksync/internal/domain"
)

// QueryService serves the read side: stock rows, reservation states, ledger
// history and the sync audit log.
type QueryService struct {
	aggregates domain.AggregateStore
	ledger     domain.LedgerStore
	audit      domain.AuditStore
}

// NewQueryService creates a QueryService.
func NewQueryService(aggregates domain.AggregateStore, ledger domain.LedgerStore, audit domain.AuditStore) *QueryService {
	return &QueryService{aggregates: aggregates, ledger: ledger, audit: audit}
}

// GetStock returns one materialized row.
func (s *QueryService) GetStock(ctx context.Context, warehouseID, article string) (*StockDTO, error) {
	aggregate, err := s.aggregates.Get(ctx, domain.StockKey{WarehouseID: warehouseID, Article: article})
	if err != nil {
		return nil, err
	}
	if aggregate == nil {
		return nil, domain.ErrAggregateNotFound
	}
	dto := ToStockDTO(aggregate)
	return &dto, nil
}

// ListStock returns a warehouse's rows.
func (s *QueryService) ListStock(ctx context.Context, query ListStockQuery) ([]StockDTO, error) {
	aggregates, err := s.aggregates.List(ctx, query.WarehouseID, domain.AggregateFilter{
		Article:        query.Article,
		BelowThreshold: query.BelowThreshold,
		Limit:          query.Limit,
		Offset:         query.Offset,
	})
	if err != nil {
		return nil, err
	}
	return ToStockDTOs(aggregates), nil
}

// GetReservation derives a reference's hold state from the ledger.
func (s *QueryService) GetReservation(ctx context.Context, warehouseID, article, referenceID string) (*ReservationDTO, error) {
	key := domain.StockKey{WarehouseID: warehouseID, Article: article}
	events, err := s.ledger.FindByReference(ctx, key, referenceID)
	if err != nil {
		return nil, err
	}
	state := domain.FoldReservation(events, referenceID)
	if state.Reserved == 0 {
		return nil, domain.ErrReservationNotFound
	}
	return &ReservationDTO{
		WarehouseID: warehouseID,
		Article:     article,
		ReferenceID: referenceID,
		Quantity:    state.Reserved,
		Outstanding: state.Outstanding(),
		Active:      state.Active(),
	}, nil
}

// LedgerHistory returns one key's events starting after fromSeq.
func (s *QueryService) LedgerHistory(ctx context.Context, warehouseID, article string, fromSeq int64, limit int) ([]*domain.StockEvent, error) {
	key := domain.StockKey{WarehouseID: warehouseID, Article: article}
	cursor, err := s.ledger.Replay(ctx, key, fromSeq)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := make([]*domain.StockEvent, 0)
	for cursor.Next(ctx) {
		events = append(events, cursor.Event())
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// SyncHistory returns audit rows matching the query, newest first.
func (s *QueryService) SyncHistory(ctx context.Context, query SyncHistoryQuery) ([]*SyncAttemptDTO, error) {
	if query.Marketplace != "" && !domain.Marketplace(query.Marketplace).IsValid() {
		return nil, domain.ErrUnknownMarketplace
	}

	attempts, err := s.audit.List(ctx, domain.SyncHistoryFilter{
		Marketplace: domain.Marketplace(query.Marketplace),
		WarehouseID: query.WarehouseID,
		Article:     query.Article,
		Status:      domain.SyncAttemptStatus(query.Status),
		From:        query.From,
		To:          query.To,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, err
	}
	return ToSyncAttemptDTOs(attempts), nil
}

// LatestSync returns the newest attempt for a (link, article) pair, or nil.
func (s *QueryService) LatestSync(ctx context.Context, linkID, article string) (*SyncAttemptDTO, error) {
	attempt, err := s.audit.Latest(ctx, linkID, article)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, nil
	}
	return ToSyncAttemptDTO(attempt), nil
}
