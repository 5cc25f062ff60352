package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

// RedisCacheConfig configures the shared interpretation cache.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisSharedCache implements SharedCache on redis. Entries are shared
// across charts: two charts with the same placement hit the same entry.
type RedisSharedCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Verify interface implementation at compile time.
var _ SharedCache = (*RedisSharedCache)(nil)

// NewRedisSharedCache creates a redis-backed shared cache.
func NewRedisSharedCache(cfg RedisCacheConfig) *RedisSharedCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "interp:"
	}
	return &RedisSharedCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl:    ttl,
		prefix: prefix,
	}
}

// Get returns the entry for key, or nil on miss. A hit bumps the hit count
// and last-accessed time; that write-back is best effort.
func (c *RedisSharedCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeSharedCache, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is a miss, not a failure.
		slog.Warn("shared_cache_entry_corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, nil
	}

	entry.HitCount++
	entry.LastAccessedAt = time.Now().UTC()
	if touched, err := json.Marshal(&entry); err == nil {
		if err := c.client.Set(ctx, c.prefix+key, touched, redis.KeepTTL).Err(); err != nil {
			slog.Debug("shared_cache_touch_failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}

	return &entry, nil
}

// Set stores the entry under key with the configured TTL.
func (c *RedisSharedCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	if entry.LastAccessedAt.IsZero() {
		entry.LastAccessedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeSharedCache, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeSharedCache, err)
	}
	return nil
}

// Close closes the redis client.
func (c *RedisSharedCache) Close() error {
	return c.client.Close()
}
