// Package memoize wraps units of work with cache-aside behavior. The
// wrappers are explicit higher-order functions parameterized by a Policy;
// callers compose them at the call site instead of relying on hidden
// instrumentation.
//
// Failure semantics are uniform: if the Store is disconnected or errors,
// every wrapper degrades to "always miss / never persists", and errors from
// the wrapped computation always propagate unchanged.
package memoize

import (
	"context"
	"crypto/md5" //nolint:gosec // key derivation, not authentication
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/salesdash/servekit/cache"
)

// Policy configures a single cache-aside call.
type Policy struct {
	// Key is the cache key for this call, usually built from a keyspace
	// template or derived with DeriveKey/FuncKey. An empty key disables
	// caching for the call.
	Key string

	// TTL is the entry lifetime. Zero stores without expiration.
	TTL time.Duration

	// MaxItems bounds list results: DoList truncates longer results to the
	// first MaxItems elements before storing. Zero means unbounded.
	MaxItems int

	// Skip bypasses the cache entirely for this call. Evaluate the
	// predicate over the call's arguments at the call site.
	Skip bool

	// Flight, when set, deduplicates concurrent misses on the same key so
	// only one computation runs (single-flight). Callers share one group
	// across the calls they want deduplicated.
	Flight *singleflight.Group
}

// Do runs a computation with cache-aside semantics: consult the store, and
// on miss invoke compute and persist its result under p.Key.
//
// Without p.Flight there is no dedup of concurrent misses; every concurrent
// caller that observes a miss computes.
func Do[T any](ctx context.Context, store *cache.Store, p Policy, compute func(ctx context.Context) (T, error)) (T, error) {
	if p.Skip || p.Key == "" {
		return compute(ctx)
	}

	if value, ok := cache.GetValue[T](ctx, store, p.Key); ok {
		return value, nil
	}

	if p.Flight != nil {
		result, err, _ := p.Flight.Do(p.Key, func() (any, error) {
			// Re-check: another flight member may have populated the key.
			if value, ok := cache.GetValue[T](ctx, store, p.Key); ok {
				return value, nil
			}
			return computeAndStore(ctx, store, p, compute)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return result.(T), nil
	}

	return computeAndStore(ctx, store, p, compute)
}

func computeAndStore[T any](ctx context.Context, store *cache.Store, p Policy, compute func(ctx context.Context) (T, error)) (T, error) {
	result, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	cache.SetValue(ctx, store, p.Key, result, p.TTL)
	return result, nil
}

// DoList is Do for list results with an optional size bound. When the
// computed list is longer than p.MaxItems, it is truncated before storing
// and the truncated list is returned, so cached and first-call results
// agree.
func DoList[T any](ctx context.Context, store *cache.Store, p Policy, compute func(ctx context.Context) ([]T, error)) ([]T, error) {
	bounded := func(ctx context.Context) ([]T, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if p.MaxItems > 0 && len(result) > p.MaxItems {
			result = result[:p.MaxItems]
		}
		return result, nil
	}
	return Do(ctx, store, p, bounded)
}

// Mutate wraps a mutating operation with invalidate-after-call semantics:
// after mutate returns successfully, every pattern is deleted from the
// store. If mutate fails, no invalidation occurs.
func Mutate[T any](ctx context.Context, store *cache.Store, patterns []string, mutate func(ctx context.Context) (T, error)) (T, error) {
	result, err := mutate(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	for _, pattern := range patterns {
		store.DeletePattern(ctx, pattern)
	}
	return result, nil
}

// DeriveKey builds a content-hash cache key: prefix plus the hex MD5 of a
// canonical JSON rendering of the arguments. Identical argument values map
// to identical keys regardless of type identity.
func DeriveKey(prefix string, args ...any) string {
	rendered := make([]string, len(args))
	for i, arg := range args {
		rendered[i] = fmt.Sprint(arg)
	}

	// json.Marshal of a string slice is deterministic, and map arguments
	// rendered by fmt.Sprint print in sorted key order.
	payload, err := json.Marshal(rendered)
	if err != nil {
		payload = []byte(fmt.Sprint(rendered))
	}

	sum := md5.Sum(payload) //nolint:gosec
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// FuncKey derives a cache key from a function's identity and its
// arguments, the auto-keyed flavor of DeriveKey.
func FuncKey(fn any, args ...any) string {
	name := "anonymous"
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		name = f.Name()
	}
	return DeriveKey(name, args...)
}
