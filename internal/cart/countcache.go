package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/metrics"
)

// CountCache holds the header badge count per user.
type CountCache interface {
	Get(ctx context.Context, userID int64) (int, bool, error)
	Set(ctx context.Context, userID int64, n int) error
	Invalidate(ctx context.Context, userID int64) error
}

type countItem struct {
	n         int
	expiresAt int64
}

// MemoryCountCache is a per-process TTL map. Run GC to drop expired entries.
type MemoryCountCache struct {
	mu    sync.RWMutex
	items map[int64]countItem
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCountCache(ttl time.Duration) *MemoryCountCache {
	return &MemoryCountCache{
		items: make(map[int64]countItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCountCache) Get(_ context.Context, userID int64) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[userID]
	if !ok || c.now().UnixNano() > it.expiresAt {
		return 0, false, nil
	}
	return it.n, true, nil
}

func (c *MemoryCountCache) Set(_ context.Context, userID int64, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[userID] = countItem{n: n, expiresAt: c.now().Add(c.ttl).UnixNano()}
	return nil
}

func (c *MemoryCountCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, userID)
	return nil
}

// GC removes expired entries every interval until ctx is done.
func (c *MemoryCountCache) GC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purge()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *MemoryCountCache) purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	deleted := 0
	for id, it := range c.items {
		if now > it.expiresAt {
			delete(c.items, id)
			deleted++
		}
	}
	return deleted
}

// RedisCountCache shares counts between storefront instances.
type RedisCountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCountCache(rdb *redis.Client, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{rdb: rdb, ttl: ttl}
}

func countKey(userID int64) string {
	return "cart:count:" + strconv.FormatInt(userID, 10)
}

func (r *RedisCountCache) Get(ctx context.Context, userID int64) (int, bool, error) {
	n, err := r.rdb.Get(ctx, countKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cart count: %w", err)
	}
	return n, true, nil
}

func (r *RedisCountCache) Set(ctx context.Context, userID int64, n int) error {
	if err := r.rdb.Set(ctx, countKey(userID), n, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cart count: %w", err)
	}
	return nil
}

func (r *RedisCountCache) Invalidate(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, countKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cart count: %w", err)
	}
	return nil
}

var (
	_ CountCache = (*MemoryCountCache)(nil)
	_ CountCache = (*RedisCountCache)(nil)
)

// CountSource answers the authoritative count. backend.CartService implements it.
type CountSource interface {
	Count(ctx context.Context, userID int64) (int, error)
}

const invalidateTimeout = 2 * time.Second

// Counter serves the header badge from a CountCache and drops a user's entry
// whenever their cart changes. A count read from the source is only cached
// when no change for that user was seen while it was being read.
type Counter struct {
	cache       CountCache
	source      CountSource
	unsubscribe func()

	mu  sync.Mutex
	gen map[int64]uint64
}

func NewCounter(cache CountCache, source CountSource, bus *Bus) *Counter {
	c := &Counter{cache: cache, source: source, gen: make(map[int64]uint64)}
	c.unsubscribe = bus.Subscribe(c.onChanged)
	return c
}

func (c *Counter) Count(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, nil
	}

	n, ok, err := c.cache.Get(ctx, userID)
	if err != nil {
		logging.FromCtx(ctx).Warn("read cart count cache", "user_id", userID, "error", err)
	}
	if err == nil && ok {
		metrics.CartCountCache.WithLabelValues("hit").Inc()
		return n, nil
	}
	metrics.CartCountCache.WithLabelValues("miss").Inc()

	gen := c.generation(userID)
	n, err = c.source.Count(ctx, userID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[userID] != gen {
		return n, nil
	}
	if err := c.cache.Set(ctx, userID, n); err != nil {
		logging.FromCtx(ctx).Warn("write cart count cache", "user_id", userID, "error", err)
	}
	return n, nil
}

func (c *Counter) Close() {
	c.unsubscribe()
}

func (c *Counter) generation(userID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[userID]
}

func (c *Counter) onChanged(evt CartChanged) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[evt.UserID]++
	if err := c.cache.Invalidate(ctx, evt.UserID); err != nil {
		logging.Base().Warn("invalidate cart count", "user_id", evt.UserID, "error", err)
	}
}
