package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// IncomeOrderStore keeps income orders keyed by their public order ID.
type IncomeOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.IncomeOrder
}

// NewIncomeOrderStore creates an empty store.
func NewIncomeOrderStore() *IncomeOrderStore {
	return &IncomeOrderStore{orders: make(map[string]*domain.IncomeOrder)}
}

// Save upserts the order.
func (s *IncomeOrderStore) Save(ctx context.Context, order *domain.IncomeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *order
	copied.Items = append([]domain.IncomeOrderItem(nil), order.Items...)
	s.orders[order.OrderID] = &copied
	return nil
}

// FindByID returns the order or ErrOrderNotFound.
func (s *IncomeOrderStore) FindByID(ctx context.Context, orderID string) (*domain.IncomeOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	copied.Items = append([]domain.IncomeOrderItem(nil), order.Items...)
	return &copied, nil
}

// List returns orders filtered by warehouse and status, newest first.
func (s *IncomeOrderStore) List(ctx context.Context, warehouseID string, status domain.IncomeOrderStatus, limit, offset int) ([]*domain.IncomeOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.IncomeOrder, 0)
	for _, order := range s.orders {
		if warehouseID != "" && order.WarehouseID != warehouseID {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		copied := *order
		copied.Items = append([]domain.IncomeOrderItem(nil), order.Items...)
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	return paginate(matched, limit, offset), nil
}
