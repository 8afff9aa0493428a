// Package ratelimit implements the per-IP fixed-window limiters of §6:
// 5 creates and 10 deletes per 10 minutes, plus a 100-write-per-15-min
// global backstop. GET and /health requests are exempt (enforced by the
// caller, not this package).
//
// echo/middleware's own rate limiter (golang.org/x/time/rate) is a
// token bucket, not a fixed window, and can't reproduce the exact §6
// numbers without reinterpreting them — so this is plain code in the
// teacher's own struct-with-mutex style rather than a dependency.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces one fixed-window cap per key (typically a client
// IP). Each Limiter instance is independent; the admission surface
// holds one per §6 rule (create, delete, global).
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
}

type windowCount struct {
	count     int
	windowEnd time.Time
}

// New builds a Limiter allowing at most limit calls per window, per
// key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		counts: map[string]*windowCount{},
	}
}

// Allow reports whether key may proceed, incrementing its counter when
// it does. A stale window resets the count rather than accumulating
// across windows.
func (l *Limiter) Allow(key string) bool {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.counts[key]
	if !ok || now.After(wc.windowEnd) {
		wc = &windowCount{count: 0, windowEnd: now.Add(l.window)}
		l.counts[key] = wc
	}

	if wc.count >= l.limit {
		return false
	}
	wc.count++
	return true
}

// Sweep drops expired per-key windows so the counter map doesn't grow
// unbounded under a wide spread of client IPs. Intended to run
// periodically from a background loop, not on every request.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, wc := range l.counts {
		if now.After(wc.windowEnd) {
			delete(l.counts, k)
		}
	}
}

// Store adapts a Limiter to echo/middleware's RateLimiterStore
// interface (Allow(identifier string) (bool, error)), so the fixed-
// window limiter can sit directly behind middleware.RateLimiterWithConfig.
type Store struct {
	limiter *Limiter
}

// NewStore builds a Store backed by a fresh Limiter.
func NewStore(limit int, window time.Duration) *Store {
	return &Store{limiter: New(limit, window)}
}

func (s *Store) Allow(identifier string) (bool, error) {
	return s.limiter.Allow(identifier), nil
}
