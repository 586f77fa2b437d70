// Package cache keeps the active agency list close to the request path.
// Redis is used when configured so every instance sees the same invalidation;
// otherwise entries live in process memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cpcaisse/internal/referential/models"
)

// KeyActiveAgencies holds the active agency list.
const KeyActiveAgencies = "ref:agences"

// RedisCache stores agency lists as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Agency, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var agencies []models.Agency
	if err := json.Unmarshal(raw, &agencies); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return agencies, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, agencies []models.Agency, ttl time.Duration) error {
	raw, err := json.Marshal(agencies)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

type entry struct {
	agencies  []models.Agency
	expiresAt time.Time
}

// MemoryCache is the single-instance fallback.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

// NewMemoryWithClock is NewMemory with an injectable time source.
func NewMemoryWithClock(now func() time.Time) *MemoryCache {
	c := NewMemory()
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]models.Agency, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return append([]models.Agency(nil), e.agencies...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, agencies []models.Agency, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		agencies:  append([]models.Agency(nil), agencies...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
