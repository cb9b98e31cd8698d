// Package dedup suppresses repeated emission of unchanged poll results,
// modeled on Mercury's delta engine: a cheap content comparison guards a
// downstream write that would otherwise repeat identical state every
// cycle.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checker reports whether content under key has changed since the last
// call that recorded it, recording content as the new baseline either
// way.
type Checker interface {
	Changed(ctx context.Context, key, content string) (bool, error)
}

// RedisChecker stores the last-seen content per key in Redis with a
// TTL, so a restarted Engine starts cold instead of replaying a stale
// baseline after a long gap.
type RedisChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChecker returns a Checker backed by the Redis instance at addr.
func NewRedisChecker(addr string, ttl time.Duration) *RedisChecker {
	return &RedisChecker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Changed compares content against the stored baseline for key. A Redis
// error is treated as "changed" so a transient outage never silently
// drops odds — it only costs a redundant sink call.
func (c *RedisChecker) Changed(ctx context.Context, key, content string) (bool, error) {
	prev, err := c.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return true, err
	}
	if err == nil && prev == content {
		return false, nil
	}
	if err := c.client.Set(ctx, key, content, c.ttl).Err(); err != nil {
		return true, err
	}
	return true, nil
}

// Ping verifies the Redis connection at startup.
func (c *RedisChecker) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client.
func (c *RedisChecker) Close() error {
	return c.client.Close()
}
