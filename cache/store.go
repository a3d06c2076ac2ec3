package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salesdash/servekit/cache/internal/tracking"
	"github.com/salesdash/servekit/logger"
)

// DefaultOperationTimeout bounds every backend call issued by the Store.
// A backend that exceeds it is treated as unavailable for that call.
const DefaultOperationTimeout = 2 * time.Second

// Store is the fail-open cache facade used by request serving. Every
// operation degrades to a miss or no-op when the backend is unreachable,
// errors, or times out; backend failures never cross this boundary.
//
// The Store keeps process-wide hit/miss counters. Counters only reset via
// ResetStats.
type Store struct {
	mu      sync.RWMutex
	backend Backend

	dial      Dialer
	log       logger.Logger
	opTimeout time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates a disconnected Store. Call Connect to establish the
// backend connection; until then (and after any failed dial) the Store
// serves misses and discards writes.
func NewStore(dial Dialer, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		dial:      dial,
		log:       log,
		opTimeout: DefaultOperationTimeout,
	}
}

// NewStoreWithBackend creates a Store over an already-connected backend.
func NewStoreWithBackend(backend Backend, log logger.Logger) *Store {
	s := NewStore(nil, log)
	s.backend = backend
	return s
}

// Connect dials the backend. On failure it logs a warning and leaves the
// Store disconnected so the rest of the system runs cache-less; it never
// returns the dial error to the caller.
func (s *Store) Connect(ctx context.Context) {
	if s.dial == nil {
		return
	}

	backend, err := s.dial(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache connection failed, running cache-less")
		return
	}

	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()

	s.log.Info().Msg("cache connection established")
}

// Connected reports whether a backend is attached.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend != nil
}

func (s *Store) getBackend() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// lookup fetches raw bytes without touching the hit/miss counters. Callers
// that decode the payload count the outcome themselves so a corrupt entry
// registers as a miss.
func (s *Store) lookup(ctx context.Context, key string) ([]byte, bool) {
	backend := s.getBackend()
	if backend == nil {
		return nil, false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	value, err := backend.Get(opCtx, key)
	tracking.RecordOperation(ctx, tracking.OpGet, time.Since(start), err == nil, err)

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		}
		return nil, false
	}
	return value, true
}

func (s *Store) recordHit(key string) {
	s.hits.Add(1)
	s.log.Debug().Str("key", key).Msg("cache hit")
}

func (s *Store) recordMiss(key string) {
	s.misses.Add(1)
	s.log.Debug().Str("key", key).Msg("cache miss")
}

// Get retrieves raw bytes for a key. The second return value is false on
// miss, disconnection, timeout, or any backend error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := s.lookup(ctx, key)
	if !ok {
		s.recordMiss(key)
		return nil, false
	}
	s.recordHit(key)
	return value, true
}

// GetValue retrieves and decodes a cached value. A payload that fails to
// decode counts as a miss; the corrupt entry is left to expire.
func GetValue[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T

	data, ok := s.lookup(ctx, key)
	if !ok {
		s.recordMiss(key)
		return zero, false
	}

	value, err := Unmarshal[T](data)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to decode cached value")
		s.recordMiss(key)
		return zero, false
	}

	s.recordHit(key)
	return value, true
}

// Set stores raw bytes with the given TTL (0 = no expiration). Returns
// false without raising on any failure.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	backend := s.getBackend()
	if backend == nil {
		return false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	err := backend.Set(opCtx, key, value, ttl)
	tracking.RecordOperation(ctx, tracking.OpSet, time.Since(start), false, err)

	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return false
	}
	return true
}

// SetValue encodes and stores a value. A value that cannot be serialized
// logs at error level and returns false.
func SetValue[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) bool {
	data, err := Marshal(value)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to encode value for cache")
		return false
	}
	return s.Set(ctx, key, data, ttl)
}

// Delete removes a key. Returns true iff the key existed and was removed.
func (s *Store) Delete(ctx context.Context, key string) bool {
	backend := s.getBackend()
	if backend == nil {
		return false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	existed, err := backend.Delete(opCtx, key)
	tracking.RecordOperation(ctx, tracking.OpDelete, time.Since(start), false, err)

	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		return false
	}
	return existed
}

// DeletePattern removes all keys matching a glob pattern and returns the
// number removed. Returns 0 when disconnected or on error.
func (s *Store) DeletePattern(ctx context.Context, pattern string) int {
	backend := s.getBackend()
	if backend == nil {
		return 0
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	count, err := backend.DeletePattern(opCtx, pattern)
	tracking.RecordOperation(ctx, tracking.OpDeletePattern, time.Since(start), false, err)

	if err != nil {
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("cache pattern delete failed")
		return 0
	}

	if count > 0 {
		s.log.Info().Str("pattern", pattern).Int("keys", count).Msg("cache pattern invalidated")
	}
	return count
}

// Exists reports whether a key is present. False when disconnected.
func (s *Store) Exists(ctx context.Context, key string) bool {
	backend := s.getBackend()
	if backend == nil {
		return false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := backend.Exists(opCtx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache exists check failed")
		return false
	}
	return exists
}

// TTLRemaining returns the remaining lifetime of a key, or ok=false if the
// key doesn't exist, has no expiration, or the store is unavailable.
func (s *Store) TTLRemaining(ctx context.Context, key string) (time.Duration, bool) {
	backend := s.getBackend()
	if backend == nil {
		return 0, false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	ttl, ok, err := backend.TTL(opCtx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache ttl check failed")
		return 0, false
	}
	return ttl, ok
}

// ClearAll flushes the entire cache database. Operator paths only; never
// called from per-request logic.
func (s *Store) ClearAll(ctx context.Context) bool {
	backend := s.getBackend()
	if backend == nil {
		return false
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := backend.FlushAll(opCtx); err != nil {
		s.log.Warn().Err(err).Msg("cache flush failed")
		return false
	}

	s.log.Warn().Msg("all cache keys cleared")
	return true
}

// Stats returns a snapshot of the running hit/miss counters.
func (s *Store) Stats() Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Hits:      hits,
		Misses:    misses,
		Total:     total,
		HitRate:   hitRate,
		Connected: s.Connected(),
	}
}

// ResetStats zeroes the hit/miss counters. Operator action only.
func (s *Store) ResetStats() {
	s.hits.Store(0)
	s.misses.Store(0)
}

// Close detaches and closes the backend. The Store serves misses afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	backend := s.backend
	s.backend = nil
	s.mu.Unlock()

	if backend == nil {
		return nil
	}
	return backend.Close()
}
