// Package cache provides an optional multi-instance mirror of per-session
// last-activity timestamps for the sandbox subsystem.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActivityCache mirrors Registry.SetLastActivity so a future
// multi-instance deployment can read last_activity without an RPC back to
// whichever process owns the in-memory registry. It is never required for
// correctness of a single process's I1-I3 invariants.
type ActivityCache interface {
	SetLastActivity(ctx context.Context, chatKey string, t time.Time)
	LastActivity(ctx context.Context, chatKey string) (time.Time, bool)
}

// NullActivityCache is used when REDIS_URL is unset. Every call is a no-op.
type NullActivityCache struct{}

func (NullActivityCache) SetLastActivity(context.Context, string, time.Time) {}
func (NullActivityCache) LastActivity(context.Context, string) (time.Time, bool) {
	return time.Time{}, false
}

// RedisActivityCache backs ActivityCache with a Redis key per chat key,
// storing the activity timestamp as a Unix-nanosecond string.
type RedisActivityCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisActivityCache connects to redisURL (redis://[:password@]host:port[/db])
// and verifies it is reachable before returning.
func NewRedisActivityCache(redisURL string) (*RedisActivityCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisActivityCache{client: client, prefix: "sandboxd:activity:", ttl: 2 * time.Hour}, nil
}

func (c *RedisActivityCache) SetLastActivity(ctx context.Context, chatKey string, t time.Time) {
	c.client.Set(ctx, c.prefix+chatKey, strconv.FormatInt(t.UnixNano(), 10), c.ttl)
}

func (c *RedisActivityCache) LastActivity(ctx context.Context, chatKey string) (time.Time, bool) {
	val, err := c.client.Get(ctx, c.prefix+chatKey).Result()
	if err != nil {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

func (c *RedisActivityCache) Close() error {
	return c.client.Close()
}
