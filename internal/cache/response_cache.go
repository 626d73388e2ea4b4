// Package cache provides a Redis-backed HTTP response cache keyed by
// request URL, with explicit TTL and invalidation by key pattern. It sits
// entirely outside the domain services as a transport decorator.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "httpcache:"

// ResponseCache caches successful GET responses in Redis.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// NewResponseCache builds the cache. A nil client disables caching.
func NewResponseCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl, logger: logger}
}

// Middleware replays cached responses for GET requests and stores fresh
// 200 responses. Cache failures fall through to the handler.
func (rc *ResponseCache) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rc == nil || rc.client == nil || c.Method() != fiber.MethodGet {
			return c.Next()
		}
		key := keyPrefix + c.OriginalURL()

		raw, err := rc.client.Get(c.UserContext(), key).Bytes()
		if err == nil {
			var cached cachedResponse
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				c.Set(fiber.HeaderContentType, cached.ContentType)
				c.Set("X-Cache", "HIT")
				return c.Status(cached.Status).Send(cached.Body)
			}
		} else if !errors.Is(err, redis.Nil) {
			rc.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		entry := cachedResponse{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		raw, err = json.Marshal(entry)
		if err != nil {
			return nil
		}
		if err := rc.client.Set(c.UserContext(), key, raw, rc.ttl).Err(); err != nil {
			rc.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

// Invalidate removes all cached entries whose URL matches the pattern,
// e.g. "/categories*".
func (rc *ResponseCache) Invalidate(ctx context.Context, pattern string) {
	if rc == nil || rc.client == nil {
		return
	}
	match := keyPrefix + pattern
	iter := rc.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			rc.logger.Warn("cache invalidation failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		rc.logger.Warn("cache scan failed", zap.String("pattern", match), zap.Error(err))
	}
}
