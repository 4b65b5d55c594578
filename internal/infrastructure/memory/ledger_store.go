// Package memory provides in-process store implementations. They back unit
// tests and the single-binary development mode; production deployments use
// the mongodb package instead.
package memory

import (
	"context"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// LedgerStore keeps every ledger stream as an ordered slice.
type LedgerStore struct {
	mu      sync.RWMutex
	streams map[domain.StockKey][]*domain.StockEvent
}

// NewLedgerStore creates an empty ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{streams: make(map[domain.StockKey][]*domain.StockEvent)}
}

// Append assigns the next sequence number for the event's key and stores a
// copy of the event. The store's lock makes the read-increment-insert atomic,
// so the in-memory ledger never observes a sequence conflict.
func (s *LedgerStore) Append(ctx context.Context, event *domain.StockEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := event.Key()
	seq := int64(len(s.streams[key])) + 1

	stored := *event
	stored.SequenceNo = seq
	s.streams[key] = append(s.streams[key], &stored)

	event.SequenceNo = seq
	return seq, nil
}

// Replay returns a cursor over the stream starting after fromSeq.
func (s *LedgerStore) Replay(ctx context.Context, key domain.StockKey, fromSeq int64) (domain.EventCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.StockEvent, 0)
	for _, event := range s.streams[key] {
		if event.SequenceNo > fromSeq {
			copied := *event
			events = append(events, &copied)
		}
	}
	return &sliceCursor{events: events, pos: -1}, nil
}

// FindByReference returns the stream's events carrying the given reference,
// in sequence order.
func (s *LedgerStore) FindByReference(ctx context.Context, key domain.StockKey, referenceID string) ([]*domain.StockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.StockEvent, 0)
	for _, event := range s.streams[key] {
		if event.ReferenceID == referenceID {
			copied := *event
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

type sliceCursor struct {
	events []*domain.StockEvent
	pos    int
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.pos+1 >= len(c.events) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Event() *domain.StockEvent { return c.events[c.pos] }

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(ctx context.Context) error { return nil }
