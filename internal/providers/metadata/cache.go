package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"wsaddon/internal/metrics"
)

const (
	cacheKeyPrefix  = "wsaddon:meta:"
	defaultCacheTTL = 24 * time.Hour
)

// cacheStore is the subset of *redis.Client the cache uses.
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a cache-aside wrapper around another Provider. Only found titles
// are stored; redis failures degrade to a direct lookup.
type RedisCache struct {
	store  cacheStore
	next   Provider
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(store cacheStore, next Provider, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{store: store, next: next, ttl: ttl, logger: logger}
}

func cacheKey(ref Ref) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, ref.Kind, ref.IMDbID)
}

func (c *RedisCache) Lookup(ctx context.Context, ref Ref) (Title, error) {
	key := cacheKey(ref)

	data, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Title
		if json.Unmarshal(data, &cached) == nil && cached.Name != "" {
			metrics.MetadataCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.MetadataCacheTotal.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		metrics.MetadataCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.MetadataCacheTotal.WithLabelValues("error").Inc()
		c.logger.Debug("metadata cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	title, err := c.next.Lookup(ctx, ref)
	if err != nil {
		return Title{}, err
	}
	if payload, marshalErr := json.Marshal(title); marshalErr == nil {
		if setErr := c.store.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Debug("metadata cache write failed", slog.String("key", key), slog.String("error", setErr.Error()))
		}
	}
	return title, nil
}
