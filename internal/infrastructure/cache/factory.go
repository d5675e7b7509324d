package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SyncCacheFactory creates the Redis-backed sync caches based on configuration
type SyncCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	// client is shared by everything the factory creates
	client *redis.Client
}

// SyncCacheFactoryOption is a functional option for configuring the factory
type SyncCacheFactoryOption func(*SyncCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SyncCacheFactoryOption {
	return func(f *SyncCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory caches when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) SyncCacheFactoryOption {
	return func(f *SyncCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSyncCacheFactory creates a new factory
func NewSyncCacheFactory(cfg config.RedisConfig, opts ...SyncCacheFactoryOption) *SyncCacheFactory {
	f := &SyncCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true, // Default to allowing fallback
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// connect returns the shared Redis client, dialing on first use
func (f *SyncCacheFactory) connect() (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port),
		Password:     f.redisConfig.Password,
		DB:           f.redisConfig.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.client = client
	return client, nil
}

// Client returns the shared Redis client, or nil when the factory has not
// connected (fallback deployments). Callers must not close it; the factory
// owns it.
func (f *SyncCacheFactory) Client() *redis.Client {
	return f.client
}

// Close releases the shared Redis client
func (f *SyncCacheFactory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

// CreateSourceGuard creates a source guard backed by Redis, falling back to
// an in-memory guard when Redis is unavailable and fallback is allowed.
// The in-memory guard only serializes fetches within one process; running
// multiple instances against it breaks the one-fetch-per-source rule.
func (f *SyncCacheFactory) CreateSourceGuard(ttl time.Duration) (sync.SourceGuard, error) {
	client, err := f.connect()
	if err == nil {
		f.logger.Info("using Redis source guard")
		return NewRedisSourceGuard(client, ttl, f.logger), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for the source guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory source guard. "+
		"Concurrent fetches are only prevented within this instance.",
		zap.Error(err),
	)
	return NewInMemorySourceGuard(ttl), nil
}

// CreateAliasCache creates an alias lookup cache backed by Redis, falling
// back to an in-memory cache when Redis is unavailable and fallback is
// allowed. The fallback only costs cross-instance invalidation; entries
// still expire on their TTL.
func (f *SyncCacheFactory) CreateAliasCache(ttl time.Duration) (mapping.LookupCache, error) {
	client, err := f.connect()
	if err == nil {
		f.logger.Info("using Redis alias lookup cache")
		return NewRedisAliasLookupCache(client, ttl), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for the alias lookup cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory alias lookup cache. "+
		"Mapping changes on other instances are only picked up after the TTL expires.",
		zap.Error(err),
	)
	return NewInMemoryAliasCache(ttl), nil
}
