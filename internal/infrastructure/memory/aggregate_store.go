package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// AggregateStore keeps materialized stock rows keyed by (warehouse, article).
type AggregateStore struct {
	mu   sync.RWMutex
	rows map[domain.StockKey]*domain.StockAggregate
}

// NewAggregateStore creates an empty store.
func NewAggregateStore() *AggregateStore {
	return &AggregateStore{rows: make(map[domain.StockKey]*domain.StockAggregate)}
}

// Get returns a copy of the row, or nil when the key has no row yet.
func (s *AggregateStore) Get(ctx context.Context, key domain.StockKey) (*domain.StockAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[key]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

// Put upserts the row.
func (s *AggregateStore) Put(ctx context.Context, aggregate *domain.StockAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *aggregate
	s.rows[aggregate.Key()] = &copied
	return nil
}

// List returns the warehouse's rows, filtered and ordered by article.
func (s *AggregateStore) List(ctx context.Context, warehouseID string, filter domain.AggregateFilter) ([]*domain.StockAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.StockAggregate, 0)
	for key, row := range s.rows {
		if key.WarehouseID != warehouseID {
			continue
		}
		if filter.Article != "" && key.Article != filter.Article {
			continue
		}
		if filter.BelowThreshold && (row.AlertThreshold <= 0 || row.Available() > row.AlertThreshold) {
			continue
		}
		copied := *row
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Article < matched[j].Article })

	return paginate(matched, filter.Limit, filter.Offset), nil
}

// ListAll returns every row across all warehouses.
func (s *AggregateStore) ListAll(ctx context.Context) ([]*domain.StockAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.StockAggregate, 0, len(s.rows))
	for _, row := range s.rows {
		copied := *row
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].WarehouseID != all[j].WarehouseID {
			return all[i].WarehouseID < all[j].WarehouseID
		}
		return all[i].Article < all[j].Article
	})
	return all, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return []T{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
