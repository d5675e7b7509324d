package cache

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stocksync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// releaseScript deletes the guard key only when its value is still the
// releasing holder's token. Prevents a slow fetch whose guard expired from
// releasing the guard a later fetch now holds.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// RedisSourceGuard enforces one in-flight fetch per source across all
// instances. Acquire is SETNX with a TTL backstop so a crashed fetch cannot
// hold a source forever; Release is token-checked.
type RedisSourceGuard struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger

	mu     gosync.Mutex
	tokens map[sync.Source]string
}

// NewRedisSourceGuard creates a Redis-backed source guard. The TTL bounds
// how long a crashed holder blocks its source.
func NewRedisSourceGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSourceGuard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSourceGuard{
		client:    client,
		keyPrefix: "sync:guard:",
		ttl:       ttl,
		logger:    logger,
		tokens:    make(map[sync.Source]string),
	}
}

// Acquire claims the source. ErrSyncInProgress when any holder (this
// instance or another) already has it.
func (g *RedisSourceGuard) Acquire(ctx context.Context, source sync.Source) error {
	key := g.keyPrefix + source.String()
	token := uuid.New().String()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire source guard: %w", err)
	}
	if !ok {
		return sync.ErrSyncInProgress
	}

	g.mu.Lock()
	g.tokens[source] = token
	g.mu.Unlock()
	return nil
}

// Release frees the source if this instance still holds it. Releasing a
// guard that expired and was re-acquired elsewhere is a logged no-op.
func (g *RedisSourceGuard) Release(ctx context.Context, source sync.Source) error {
	g.mu.Lock()
	token, held := g.tokens[source]
	delete(g.tokens, source)
	g.mu.Unlock()
	if !held {
		return nil
	}

	key := g.keyPrefix + source.String()
	deleted, err := releaseScript.Run(ctx, g.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release source guard: %w", err)
	}
	if deleted == 0 {
		g.logger.Warn("source guard expired before release; another fetch may hold it",
			zap.String("source", source.String()))
	}
	return nil
}

// Ensure RedisSourceGuard implements SourceGuard
var _ sync.SourceGuard = (*RedisSourceGuard)(nil)

// InMemorySourceGuard enforces one in-flight fetch per source within a
// single process. Suitable for single-instance deployments and tests.
type InMemorySourceGuard struct {
	ttl time.Duration

	mu    gosync.Mutex
	until map[sync.Source]time.Time
}

// NewInMemorySourceGuard creates an in-memory source guard with the given
// TTL backstop.
func NewInMemorySourceGuard(ttl time.Duration) *InMemorySourceGuard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &InMemorySourceGuard{
		ttl:   ttl,
		until: make(map[sync.Source]time.Time),
	}
}

// Acquire claims the source. Expired holds are treated as released.
func (g *InMemorySourceGuard) Acquire(ctx context.Context, source sync.Source) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, held := g.until[source]; held && time.Now().Before(expiry) {
		return sync.ErrSyncInProgress
	}
	g.until[source] = time.Now().Add(g.ttl)
	return nil
}

// Release frees the source. Releasing an unheld source is a no-op.
func (g *InMemorySourceGuard) Release(ctx context.Context, source sync.Source) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.until, source)
	return nil
}

// Held reports whether the source is currently held (for testing/monitoring)
func (g *InMemorySourceGuard) Held(source sync.Source) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, held := g.until[source]
	return held && time.Now().Before(expiry)
}

// Ensure InMemorySourceGuard implements SourceGuard
var _ sync.SourceGuard = (*InMemorySourceGuard)(nil)
