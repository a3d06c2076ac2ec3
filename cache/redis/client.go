// Package redis implements the cache.Backend contract on top of a pooled
// go-redis client.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salesdash/servekit/cache"
)

// Client implements cache.Backend using Redis.
type Client struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ cache.Backend = (*Client)(nil)

// NewClient validates the configuration, establishes a pooled connection,
// and verifies it with PING.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, cache.NewConnectionError("ping", cfg.Address(), err)
	}

	return &Client{client: client, config: cfg}, nil
}

// Dialer returns a cache.Dialer that connects with the given configuration.
func Dialer(cfg *Config) cache.Dialer {
	return func(ctx context.Context) (cache.Backend, error) {
		return NewClient(ctx, cfg)
	}
}

// Get retrieves a value from Redis.
// Returns cache.ErrNotFound if the key doesn't exist.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, cache.ErrClosed
	}

	result, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, cache.NewOperationError("get", key, err)
	}
	return result, nil
}

// Set stores a value with the specified TTL. TTL of 0 means no expiration.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	if ttl < 0 {
		return cache.ErrInvalidTTL
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cache.NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes a key. Returns true iff the key existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, cache.ErrClosed
	}

	removed, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, cache.NewOperationError("delete", key, err)
	}
	return removed > 0, nil
}

// DeletePattern enumerates keys matching a glob pattern with SCAN and
// deletes them in a single DEL batch. Returns the number of keys removed.
func (c *Client) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if c.closed.Load() {
		return 0, cache.ErrClosed
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, cache.NewOperationError("scan", pattern, err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, cache.NewOperationError("delete_pattern", pattern, err)
	}
	return int(removed), nil
}

// Exists reports whether a key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, cache.ErrClosed
	}

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, cache.NewOperationError("exists", key, err)
	}
	return count > 0, nil
}

// TTL returns the remaining lifetime of a key. ok is false when the key
// doesn't exist (-2) or has no expiration (-1).
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if c.closed.Load() {
		return 0, false, cache.ErrClosed
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, cache.NewOperationError("ttl", key, err)
	}
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// FlushAll removes every key in the current database.
func (c *Client) FlushAll(ctx context.Context) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return cache.NewOperationError("flushall", "", err)
	}
	return nil
}

// Health verifies connectivity with PING.
func (c *Client) Health(ctx context.Context) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		return cache.NewConnectionError("ping", c.config.Address(), err)
	}
	return nil
}

// PoolStats returns connection pool statistics for observability.
func (c *Client) PoolStats() map[string]any {
	stats := c.client.PoolStats()
	return map[string]any{
		"pool_hits":        stats.Hits,
		"pool_misses":      stats.Misses,
		"pool_timeouts":    stats.Timeouts,
		"pool_total_conns": stats.TotalConns,
		"pool_idle_conns":  stats.IdleConns,
	}
}

// Close closes the Redis client. Idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.Close()
}
