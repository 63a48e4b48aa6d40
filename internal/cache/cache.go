// Package cache provides small typed key/value caches over Redis or process memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrMiss is returned by MemoryStore for absent or expired keys.
var ErrMiss = errors.New("cache: miss")

// Store is the raw string store; *pkg/redis.MetricsClient satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache namespaces keys under prefix and decodes typed values.
type Cache struct {
	store  Store
	prefix string
}

// New constructs a cache backed by store.
func New(store Store, prefix string) *Cache {
	return &Cache{store: store, prefix: prefix}
}

// GetInt64 returns the cached value and whether it was present.
func (c *Cache) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	if c == nil || c.store == nil {
		return 0, false, nil
	}

	raw, err := c.store.Get(ctx, c.key(key))
	if err != nil {
		if isMiss(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get cached %s: %w", key, err)
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode cached %s: %w", key, err)
	}

	return value, true, nil
}

// SetInt64 stores value for ttl. A zero ttl keeps the key forever.
func (c *Cache) SetInt64(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if c == nil || c.store == nil {
		return nil
	}

	if err := c.store.Set(ctx, c.key(key), strconv.FormatInt(value, 10), ttl); err != nil {
		return fmt.Errorf("set cached %s: %w", key, err)
	}

	return nil
}

// Delete removes the entry if it exists.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}

	if err := c.store.Delete(ctx, c.key(key)); err != nil {
		return fmt.Errorf("delete cached %s: %w", key, err)
	}

	return nil
}

func (c *Cache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func isMiss(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrMiss)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a Store kept in process memory, used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", ErrMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return "", ErrMiss
	}

	return entry.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: fmt.Sprint(value)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
