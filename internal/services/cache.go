package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/internal/metrics"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

// Cache keys. Every list key carries the id whose projects it holds, so two
// callers can never be served each other's cached list.
const (
	ProjectsPattern      = "projects:*"
	AdminProjectsPattern = "admin:projects:*"

	adminAllProjectsKey = "admin:projects:all"

	defaultCacheTTL  = 60 * time.Second
	invalidateBatch  = 100
	defaultScanCount = 100
)

func UserProjectsKey(userID uint) string {
	return fmt.Sprintf("projects:user:%d", userID)
}

func AdminAllProjectsKey() string {
	return adminAllProjectsKey
}

func AdminUserProjectsKey(userID uint) string {
	return fmt.Sprintf("admin:projects:user:%d", userID)
}

// CacheClient is the subset of go-redis used by ResponseCache.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// ResponseCache stores serialized read responses. A nil client disables it:
// reads miss and writes succeed without doing anything.
type ResponseCache struct {
	client CacheClient
	ttl    time.Duration

	// generation is bumped by every Invalidate in this process.
	generation atomic.Uint64
}

func NewResponseCache(client CacheClient, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

func (c *ResponseCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *ResponseCache) TTL() time.Duration {
	if c == nil {
		return defaultCacheTTL
	}
	return c.ttl
}

// Get returns the cached value and whether it was present.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	metrics.RecordCacheLookup("hit")
	return val, true, nil
}

// Set stores value under key with the given TTL, or the cache default when
// ttl is zero.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Generation returns the invalidation counter. A read that started under
// one generation must not be stored once it has moved on.
func (c *ResponseCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation.Load()
}

// SetIfCurrent stores value only when no Invalidate ran since gen was read,
// and reports whether it stored. Another instance's invalidation is not
// seen here; the TTL bounds that window.
func (c *ResponseCache) SetIfCurrent(ctx context.Context, key string, value []byte, gen uint64) (bool, error) {
	if !c.Enabled() || c.generation.Load() != gen {
		return false, nil
	}
	if err := c.Set(ctx, key, value, 0); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate deletes every key matching pattern and reports how many were
// removed. No match is not an error. The SCAN completes before any DEL so
// deletions cannot shift keys past the cursor.
func (c *ResponseCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	c.generation.Add(1)

	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanCount).Result()
		if err != nil {
			return 0, fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	removed := 0
	for start := 0; start < len(keys); start += invalidateBatch {
		end := min(start+invalidateBatch, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			metrics.RecordInvalidatedKeys(removed)
			return removed, fmt.Errorf("cache invalidate %s: %w", pattern, err)
		}
		removed += int(n)
	}

	metrics.RecordInvalidatedKeys(removed)
	return removed, nil
}

func (c *ResponseCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// ConnectRedis opens a client for cfg and verifies it with PING. Callers
// treat an error as "run without Redis".
func ConnectRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("[Redis] connected")
	return client, nil
}
