package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const phoneKeyPrefix = "phone_tenant:"

// PhoneTenantCache implements domain.PhoneTenantCache on Redis string keys
// with a fixed TTL.
type PhoneTenantCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewPhoneTenantCache creates a new Redis-backed phone to tenant cache.
func NewPhoneTenantCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *PhoneTenantCache {
	return &PhoneTenantCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_phone_cache"),
	}
}

func phoneKey(number string) string { return phoneKeyPrefix + number }

// Get returns the cached tenant id for number. A missing key is a miss, not an error.
func (c *PhoneTenantCache) Get(ctx context.Context, number string) (string, bool, error) {
	tenantID, err := c.client.Get(ctx, phoneKey(number)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read phone cache for %s: %w", number, err)
	}
	return tenantID, true, nil
}

func (c *PhoneTenantCache) Set(ctx context.Context, number, tenantID string) error {
	if err := c.client.Set(ctx, phoneKey(number), tenantID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write phone cache for %s: %w", number, err)
	}
	return nil
}

// Invalidate drops the cached entry for number.
func (c *PhoneTenantCache) Invalidate(ctx context.Context, number string) error {
	if err := c.client.Del(ctx, phoneKey(number)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate phone cache for %s: %w", number, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *PhoneTenantCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
