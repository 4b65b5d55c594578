package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sellerhub/stocksync/pkg/outbox"
)

// OutboxRepository keeps outbox rows in a map, for tests and dev mode.
type OutboxRepository struct {
	mu     sync.RWMutex
	events map[string]*outbox.Event
}

// NewOutboxRepository creates an empty repository.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{events: make(map[string]*outbox.Event)}
}

// Save stores one event.
func (r *OutboxRepository) Save(ctx context.Context, event *outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// SaveAll stores a batch of events.
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range events {
		copied := *event
		r.events[event.ID] = &copied
	}
	return nil
}

// FindUnpublished returns unpublished events, oldest first.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]*outbox.Event, 0)
	for _, event := range r.events {
		if event.IsPublished() {
			continue
		}
		copied := *event
		pending = append(pending, &copied)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished stamps the event's publish time.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.events[eventID]; ok {
		now := time.Now().UTC()
		event.PublishedAt = &now
	}
	return nil
}

// IncrementRetry bumps the retry counter and records the last error.
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.events[eventID]; ok {
		event.RetryCount++
		event.LastError = errorMsg
	}
	return nil
}
