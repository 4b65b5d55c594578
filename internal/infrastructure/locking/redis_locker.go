package locking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/sellerhub/stocksync/internal/domain"
)

const (
	lockTTL        = 30 * time.Second
	lockRetryEvery = 50 * time.Millisecond
	lockRetryLimit = 100
)

// RedisLocker is the distributed KeyLocker for multi-instance deployments.
// Each stock key maps to one lock entry; acquisition retries briefly so two
// instances mutating the same key queue up instead of failing fast.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker wraps an already connected redis client.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func lockKey(key domain.StockKey) string {
	return fmt.Sprintf("stocksync:lock:%s:%s", key.WarehouseID, key.Article)
}

func (l *RedisLocker) obtain(ctx context.Context, key domain.StockKey) (*redislock.Lock, error) {
	lock, err := l.client.Obtain(ctx, lockKey(key), lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryEvery), lockRetryLimit),
	})
	if err == redislock.ErrNotObtained {
		return nil, fmt.Errorf("lock for %s/%s is held elsewhere: %w", key.WarehouseID, key.Article, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock for %s/%s: %w", key.WarehouseID, key.Article, err)
	}
	return lock, nil
}

// Lock obtains the distributed lock for one key.
func (l *RedisLocker) Lock(ctx context.Context, key domain.StockKey) (func(), error) {
	lock, err := l.obtain(ctx, key)
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}

// LockMany obtains the locks for all keys in sorted order so two instances
// accepting overlapping orders cannot deadlock against each other.
func (l *RedisLocker) LockMany(ctx context.Context, keys []domain.StockKey) (func(), error) {
	uniq := make(map[domain.StockKey]struct{}, len(keys))
	ordered := make([]domain.StockKey, 0, len(keys))
	for _, key := range keys {
		if _, ok := uniq[key]; ok {
			continue
		}
		uniq[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].WarehouseID != ordered[j].WarehouseID {
			return ordered[i].WarehouseID < ordered[j].WarehouseID
		}
		return ordered[i].Article < ordered[j].Article
	})

	held := make([]*redislock.Lock, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.Background())
		}
	}
	for _, key := range ordered {
		lock, err := l.obtain(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}
