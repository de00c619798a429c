package entitlements

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "entitlement:"
	DefaultTTL = 30 * time.Second
	MaxTTL     = 5 * time.Minute
)

// Cache stores entitlement decisions in Redis with a bounded TTL, so a stale
// decision never outlives the TTL even if an invalidation is lost.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache creates a cache. The TTL falls back to DefaultTTL and is capped
// at MaxTTL.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// TTL returns the effective time to live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached decision and whether one was present.
func (c *Cache) Get(ctx context.Context, userID string) (entitled bool, found bool, err error) {
	val, err := c.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// Set stores a decision.
func (c *Cache) Set(ctx context.Context, userID string, entitled bool) error {
	val := "0"
	if entitled {
		val = "1"
	}
	return c.client.Set(ctx, keyPrefix+userID, val, c.ttl).Err()
}

// Delete removes a decision.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, keyPrefix+userID).Err()
}
