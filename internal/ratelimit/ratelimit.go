// Package ratelimit provides per-client request rate limiting.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a request from the given client key may proceed.
// Allow performs a check-and-increment: a true result consumes one slot.
type Limiter interface {
	Allow(key string) bool
}

// Compile-time check that FixedWindow implements Limiter.
var _ Limiter = (*FixedWindow)(nil)

// window tracks the request count for one client within the current window.
type window struct {
	count int
	until time.Time
}

// FixedWindow is a process-local fixed-window rate limiter.
// Counters live in memory and are not shared across instances; multi-instance
// deployments need an external counter store behind the Limiter interface.
type FixedWindow struct {
	mu      sync.Mutex
	limit   int
	per     time.Duration
	windows map[string]*window
	now     func() time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		f.now = now
	}
}

// NewFixedWindow creates a limiter allowing limit requests per window per key.
func NewFixedWindow(limit int, per time.Duration, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		limit:   limit,
		per:     per,
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allow reports whether a request from key fits in the current window and, if
// so, counts it. A rejected request does not grow the counter and does not
// extend the window.
func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w, ok := f.windows[key]
	if !ok || now.After(w.until) {
		w = &window{until: now.Add(f.per)}
		f.windows[key] = w
	}
	if w.count >= f.limit {
		return false
	}
	w.count++
	return true
}
