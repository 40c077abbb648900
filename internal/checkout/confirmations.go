package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConfirmationStore holds confirmations between the checkout POST and the
// confirmation page. Take removes what it returns; a missing or expired key
// yields nil without error.
type ConfirmationStore interface {
	Put(ctx context.Context, key string, c *Confirmation, ttl time.Duration) error
	Take(ctx context.Context, key string) (*Confirmation, error)
}

type confirmationItem struct {
	raw       []byte
	expiresAt int64
}

// MemoryConfirmationStore keeps confirmations in process. Run GC to drop
// entries nobody came back for.
type MemoryConfirmationStore struct {
	mu    sync.Mutex
	items map[string]confirmationItem
	now   func() time.Time
}

func NewMemoryConfirmationStore() *MemoryConfirmationStore {
	return &MemoryConfirmationStore{
		items: make(map[string]confirmationItem),
		now:   time.Now,
	}
}

func (m *MemoryConfirmationStore) Put(_ context.Context, key string, c *Confirmation, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = confirmationItem{raw: raw, expiresAt: m.now().Add(ttl).UnixNano()}
	return nil
}

func (m *MemoryConfirmationStore) Take(_ context.Context, key string) (*Confirmation, error) {
	m.mu.Lock()
	it, ok := m.items[key]
	delete(m.items, key)
	m.mu.Unlock()

	if !ok || m.now().UnixNano() > it.expiresAt {
		return nil, nil
	}
	return decodeConfirmation(it.raw)
}

// GC removes expired entries every interval until ctx is done.
func (m *MemoryConfirmationStore) GC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.purge()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *MemoryConfirmationStore) purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixNano()
	deleted := 0
	for key, it := range m.items {
		if now > it.expiresAt {
			delete(m.items, key)
			deleted++
		}
	}
	return deleted
}

// RedisConfirmationStore lets the confirmation page land on any instance.
type RedisConfirmationStore struct {
	rdb *redis.Client
}

func NewRedisConfirmationStore(rdb *redis.Client) *RedisConfirmationStore {
	return &RedisConfirmationStore{rdb: rdb}
}

func confirmationKey(key string) string {
	return "checkout:confirmation:" + key
}

func (s *RedisConfirmationStore) Put(ctx context.Context, key string, c *Confirmation, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	if err := s.rdb.Set(ctx, confirmationKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}
	return nil
}

func (s *RedisConfirmationStore) Take(ctx context.Context, key string) (*Confirmation, error) {
	raw, err := s.rdb.GetDel(ctx, confirmationKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take confirmation: %w", err)
	}
	return decodeConfirmation(raw)
}

func decodeConfirmation(raw []byte) (*Confirmation, error) {
	var c Confirmation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode confirmation: %w", err)
	}
	return &c, nil
}

var (
	_ ConfirmationStore = (*MemoryConfirmationStore)(nil)
	_ ConfirmationStore = (*RedisConfirmationStore)(nil)
)
