// Package ratelimit implements an in-process sliding-window rate limiter
// keyed by (client, endpoint). Window state lives in memory only; a
// horizontally scaled deployment needs a shared store instead.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCleanupInterval is how often Allow sweeps expired observations
// across all tracked (client, endpoint) pairs.
const DefaultCleanupInterval = 60 * time.Second

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Count is the number of requests in the current window, including
	// this one when admitted.
	Count int

	// ResetSeconds is how long until the oldest retained observation
	// leaves the window. Zero for admitted requests.
	ResetSeconds int
}

type recordKey struct {
	clientID string
	endpoint string
}

type observation struct {
	ts    time.Time
	count int
}

// windowRecord holds the retained observations for one (client, endpoint)
// pair. Its mutex makes prune+count+append atomic per key, so two
// concurrent requests cannot both take the last slot.
type windowRecord struct {
	mu           sync.Mutex
	observations []observation
}

// Limiter is a sliding-window admission controller. Safe for concurrent
// use; the outer mutex is held only for record lookup and insertion.
type Limiter struct {
	mu      sync.Mutex
	records map[recordKey]*windowRecord

	cleanupInterval time.Duration
	lastCleanup     time.Time

	now func() time.Time // injectable clock for tests
}

// NewLimiter creates a limiter. A non-positive cleanupInterval falls back
// to DefaultCleanupInterval.
func NewLimiter(cleanupInterval time.Duration) *Limiter {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Limiter{
		records:         make(map[recordKey]*windowRecord),
		cleanupInterval: cleanupInterval,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

// Allow checks whether a request from clientID to endpoint is admitted
// under limit requests per window. Throttled/unthrottled classification is
// evaluated fresh on every call from the retained window contents; there is
// no persistent throttled flag.
func (l *Limiter) Allow(clientID, endpoint string, limit int, window time.Duration) Decision {
	now := l.now()
	windowStart := now.Add(-window)

	l.maybeCleanup(now, windowStart)

	record := l.record(recordKey{clientID: clientID, endpoint: endpoint})

	record.mu.Lock()
	defer record.mu.Unlock()

	// Prune observations that have aged out of the window.
	retained := record.observations[:0]
	for _, obs := range record.observations {
		if obs.ts.After(windowStart) {
			retained = append(retained, obs)
		}
	}
	record.observations = retained

	count := 0
	for _, obs := range record.observations {
		count += obs.count
	}

	if count >= limit {
		reset := int(window / time.Second)
		if len(record.observations) > 0 {
			oldest := record.observations[0].ts
			reset = int(oldest.Add(window).Sub(now) / time.Second)
			if reset < 1 {
				reset = 1
			}
		}
		return Decision{Allowed: false, Count: count, ResetSeconds: reset}
	}

	record.observations = append(record.observations, observation{ts: now, count: 1})
	return Decision{Allowed: true, Count: count + 1, ResetSeconds: 0}
}

// record returns the window record for a key, creating it on first use.
func (l *Limiter) record(key recordKey) *windowRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[key]
	if !ok {
		record = &windowRecord{}
		l.records[key] = record
	}
	return record
}

// maybeCleanup sweeps all tracked records when the cleanup interval has
// elapsed, dropping expired observations and empty records so memory stays
// bounded under client churn.
func (l *Limiter) maybeCleanup(now time.Time, cutoff time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		l.mu.Unlock()
		return
	}
	l.lastCleanup = now

	// Snapshot so record locks aren't taken under the map lock.
	type entry struct {
		key    recordKey
		record *windowRecord
	}
	snapshot := make([]entry, 0, len(l.records))
	for key, record := range l.records {
		snapshot = append(snapshot, entry{key: key, record: record})
	}
	l.mu.Unlock()

	var empty []recordKey
	for _, e := range snapshot {
		e.record.mu.Lock()
		retained := e.record.observations[:0]
		for _, obs := range e.record.observations {
			if obs.ts.After(cutoff) {
				retained = append(retained, obs)
			}
		}
		e.record.observations = retained
		if len(retained) == 0 {
			empty = append(empty, e.key)
		}
		e.record.mu.Unlock()
	}

	if len(empty) == 0 {
		return
	}

	l.mu.Lock()
	for _, key := range empty {
		record, ok := l.records[key]
		if !ok {
			continue
		}
		// Re-check under the record lock; a request may have landed since.
		record.mu.Lock()
		if len(record.observations) == 0 {
			delete(l.records, key)
		}
		record.mu.Unlock()
	}
	l.mu.Unlock()
}

// Tracked returns the number of (client, endpoint) records currently held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
