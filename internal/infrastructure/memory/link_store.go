package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// LinkStore keeps warehouse links keyed by their public link ID.
type LinkStore struct {
	mu    sync.RWMutex
	links map[string]*domain.WarehouseLink
}

// NewLinkStore creates an empty store.
func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[string]*domain.WarehouseLink)}
}

// Save upserts the link. A second link for the same (warehouse, marketplace)
// pair fails with ErrLinkAlreadyExists, mirroring the unique index the mongo
// store carries.
func (s *LinkStore) Save(ctx context.Context, link *domain.WarehouseLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.links {
		if id == link.LinkID {
			continue
		}
		if existing.WarehouseID == link.WarehouseID && existing.Marketplace == link.Marketplace {
			return domain.ErrLinkAlreadyExists
		}
	}

	copied := *link
	s.links[link.LinkID] = &copied
	return nil
}

// FindByID returns the link or ErrLinkNotFound.
func (s *LinkStore) FindByID(ctx context.Context, linkID string) (*domain.WarehouseLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

// FindByWarehouse returns the warehouse's links, ordered by marketplace.
// An empty warehouseID matches every link.
func (s *LinkStore) FindByWarehouse(ctx context.Context, warehouseID string, enabledOnly bool) ([]*domain.WarehouseLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.WarehouseLink, 0)
	for _, link := range s.links {
		if warehouseID != "" && link.WarehouseID != warehouseID {
			continue
		}
		if enabledOnly && !link.Enabled {
			continue
		}
		copied := *link
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].WarehouseID != matched[j].WarehouseID {
			return matched[i].WarehouseID < matched[j].WarehouseID
		}
		return matched[i].Marketplace < matched[j].Marketplace
	})
	return matched, nil
}

// Delete removes the link.
func (s *LinkStore) Delete(ctx context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[linkID]; !ok {
		return domain.ErrLinkNotFound
	}
	delete(s.links, linkID)
	return nil
}
