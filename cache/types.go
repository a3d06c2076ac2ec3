// Package cache provides the remote cache contract and the fail-open Store
// used by the serving layer. Backends return explicit errors; the Store
// swallows them so cache unavailability never propagates into request
// handling.
package cache

import (
	"context"
	"time"
)

// Backend is the raw key-value store contract. Implementations must be safe
// for concurrent use and honor context cancellation on every call.
type Backend interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL of 0 stores the value
	// without expiration. Overwrites existing values.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Returns true if the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes every key matching a glob pattern
	// (e.g. "analytics:product:*") and returns the number removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of a key, or ok=false if the key
	// doesn't exist or has no expiration.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// FlushAll removes every key in the backend's database.
	FlushAll(ctx context.Context) error

	// Health checks connectivity. Should be fast and safe to call often.
	Health(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Dialer establishes a Backend connection. Used by Store.Connect so tests
// can inject fakes and production can defer the dial to startup.
type Dialer func(ctx context.Context) (Backend, error)

// Stats is a snapshot of the Store's running hit/miss counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Total     int64   `json:"total_requests"`
	HitRate   float64 `json:"hit_rate_percent"`
	Connected bool    `json:"connected"`
}
