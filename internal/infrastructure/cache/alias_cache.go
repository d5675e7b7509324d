package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stocksync/backend/internal/domain/mapping"
)

const aliasLookupKey = "mapping:lookup"

// RedisAliasLookupCache caches the materialized alias lookup table as a
// JSON blob with a short TTL. Writers invalidate; readers rebuild on miss.
type RedisAliasLookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAliasLookupCache creates a Redis-backed lookup cache
func NewRedisAliasLookupCache(client *redis.Client, ttl time.Duration) *RedisAliasLookupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisAliasLookupCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached table; ok is false on a miss
func (c *RedisAliasLookupCache) Get(ctx context.Context) (mapping.LookupTable, bool, error) {
	raw, err := c.client.Get(ctx, aliasLookupKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read alias lookup cache: %w", err)
	}

	var table mapping.LookupTable
	if err := json.Unmarshal(raw, &table); err != nil {
		// A corrupt entry is a miss; the caller rebuilds and overwrites it
		return nil, false, nil
	}
	return table, true, nil
}

// Set stores the table with the configured TTL
func (c *RedisAliasLookupCache) Set(ctx context.Context, table mapping.LookupTable) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode alias lookup table: %w", err)
	}
	if err := c.client.Set(ctx, aliasLookupKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write alias lookup cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached table
func (c *RedisAliasLookupCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, aliasLookupKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate alias lookup cache: %w", err)
	}
	return nil
}

// Ensure RedisAliasLookupCache implements LookupCache
var _ mapping.LookupCache = (*RedisAliasLookupCache)(nil)

// InMemoryAliasCache caches the lookup table in process memory. Suitable
// for single-instance deployments and tests.
type InMemoryAliasCache struct {
	ttl time.Duration

	mu        gosync.RWMutex
	table     mapping.LookupTable
	expiresAt time.Time
}

// NewInMemoryAliasCache creates an in-memory lookup cache
func NewInMemoryAliasCache(ttl time.Duration) *InMemoryAliasCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &InMemoryAliasCache{ttl: ttl}
}

// Get returns the cached table; ok is false on a miss or expiry
func (c *InMemoryAliasCache) Get(ctx context.Context) (mapping.LookupTable, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.table == nil || time.Now().After(c.expiresAt) {
		return nil, false, nil
	}
	return c.table, true, nil
}

// Set stores the table with the configured TTL
func (c *InMemoryAliasCache) Set(ctx context.Context, table mapping.LookupTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = table
	c.expiresAt = time.Now().Add(c.ttl)
	return nil
}

// Invalidate drops the cached table
func (c *InMemoryAliasCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = nil
	return nil
}

// Ensure InMemoryAliasCache implements LookupCache
var _ mapping.LookupCache = (*InMemoryAliasCache)(nil)
