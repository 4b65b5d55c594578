package memory

import (
	"context"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// AuditStore keeps sync attempts in insertion order.
type AuditStore struct {
	mu       sync.RWMutex
	attempts []*domain.SyncAttempt
}

// NewAuditStore creates an empty store.
func NewAuditStore() *AuditStore {
	return &AuditStore{attempts: make([]*domain.SyncAttempt, 0)}
}

// Append records one attempt.
func (s *AuditStore) Append(ctx context.Context, attempt *domain.SyncAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *attempt
	s.attempts = append(s.attempts, &copied)
	return nil
}

// List returns attempts matching the filter, newest first.
func (s *AuditStore) List(ctx context.Context, filter domain.SyncHistoryFilter) ([]*domain.SyncAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.SyncAttempt, 0)
	for i := len(s.attempts) - 1; i >= 0; i-- {
		attempt := s.attempts[i]
		if filter.Marketplace != "" && attempt.Marketplace != filter.Marketplace {
			continue
		}
		if filter.WarehouseID != "" && attempt.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Article != "" && attempt.Article != filter.Article {
			continue
		}
		if filter.Status != "" && attempt.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && attempt.AttemptedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && attempt.AttemptedAt.After(filter.To) {
			continue
		}
		copied := *attempt
		matched = append(matched, &copied)
	}
	return paginate(matched, filter.Limit, filter.Offset), nil
}

// Latest returns the most recent attempt for a (link, article) pair, or nil
// when none was ever recorded.
func (s *AuditStore) Latest(ctx context.Context, linkID, article string) (*domain.SyncAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.attempts) - 1; i >= 0; i-- {
		attempt := s.attempts[i]
		if attempt.LinkID == linkID && attempt.Article == article {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, nil
}
