package locking

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/sellerhub/stocksync/internal/domain"
)

// KeyLocker serializes ledger mutations per (warehouse, article) key.
// Mutations for different keys proceed in parallel; two mutations for the
// same key never interleave between "append event" and "fold aggregate".
type KeyLocker interface {
	// Lock acquires the exclusive section for one key and returns its
	// release function.
	Lock(ctx context.Context, key domain.StockKey) (func(), error)

	// LockMany acquires the sections for several keys at once, in a
	// deterministic order so concurrent multi-key callers cannot deadlock.
	LockMany(ctx context.Context, keys []domain.StockKey) (func(), error)
}

const defaultStripes = 256

// StripedLocker is the in-process KeyLocker: keys hash onto a fixed set of
// mutexes. Two keys sharing a stripe serialize against each other, which is
// harmless over-serialization, never a correctness issue.
type StripedLocker struct {
	stripes []sync.Mutex
}

// NewStripedLocker creates a locker with the default stripe count.
func NewStripedLocker() *StripedLocker {
	return &StripedLocker{stripes: make([]sync.Mutex, defaultStripes)}
}

func (l *StripedLocker) stripeFor(key domain.StockKey) int {
	h := fnv.New32a()
	h.Write([]byte(key.WarehouseID))
	h.Write([]byte{0})
	h.Write([]byte(key.Article))
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// Lock acquires the stripe for one key.
func (l *StripedLocker) Lock(ctx context.Context, key domain.StockKey) (func(), error) {
	idx := l.stripeFor(key)
	l.stripes[idx].Lock()
	return func() { l.stripes[idx].Unlock() }, nil
}

// LockMany acquires the distinct stripes for the keys in ascending order.
func (l *StripedLocker) LockMany(ctx context.Context, keys []domain.StockKey) (func(), error) {
	seen := make(map[int]struct{}, len(keys))
	indexes := make([]int, 0, len(keys))
	for _, key := range keys {
		idx := l.stripeFor(key)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		l.stripes[idx].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			l.stripes[indexes[i]].Unlock()
		}
	}, nil
}
