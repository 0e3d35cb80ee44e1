package server

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

type limiterKey struct {
	actor string
	kind  string
}

// RateLimiter is a sliding-window gate per (actor, command kind). Each key
// keeps the timestamps of its recent accepts; a command passes while fewer
// than limit of them fall inside the window.
type RateLimiter struct {
	clock  quartz.Clock
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[limiterKey][]time.Time
}

// NewRateLimiter builds a limiter allowing limit commands per window for
// each (actor, kind) pair.
func NewRateLimiter(clock quartz.Clock, limit int, window time.Duration) *RateLimiter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &RateLimiter{
		clock:  clock,
		limit:  limit,
		window: window,
		hits:   make(map[limiterKey][]time.Time),
	}
}

// Allow records and admits the command unless the key's window is full.
// Rejected commands are not recorded, so the slice never exceeds limit.
func (l *RateLimiter) Allow(actor, kind string) bool {
	now := l.clock.Now()
	cutoff := now.Add(-l.window)
	key := limiterKey{actor: actor, kind: kind}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key]
	alive := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			alive = append(alive, t)
		}
	}
	if len(alive) >= l.limit {
		l.hits[key] = alive
		return false
	}
	l.hits[key] = append(alive, now)
	return true
}

// Forget drops every window the actor holds, freeing memory when a session
// disconnects.
func (l *RateLimiter) Forget(actor string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.hits {
		if key.actor == actor {
			delete(l.hits, key)
		}
	}
}
