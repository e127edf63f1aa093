// Package ratelimit implements fixed-window request admission.
//
// DESIGN: One Limiter per route so the summarize and email windows never
// interfere. Buckets are keyed by client identity (source address) and
// created lazily; window rollover is time-based. Identity keying conflates
// clients behind shared NAT — a known limitation carried over deliberately.
package ratelimit

import (
	"sync"
	"time"

	"github.com/mangodesk/summary-gateway/internal/config"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits up to limit requests per identity per window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a fixed-window limiter.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit decides whether identity may proceed and counts the attempt when
// admitted. The decision carries the header values the caller should set.
func (l *Limiter) Admit(identity string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok || !now.Before(b.resetAt) {
		if !ok && len(l.buckets) >= config.MaxRateLimitBuckets {
			l.sweepLocked(now)
		}
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[identity] = b
	}

	if b.count >= l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: b.resetAt}
	}
	b.count++
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - b.count, ResetAt: b.resetAt}
}

// sweepLocked drops expired buckets. Called only when the bucket count hits
// the cap, so steady-state admission stays O(1).
func (l *Limiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, id)
		}
	}
}
