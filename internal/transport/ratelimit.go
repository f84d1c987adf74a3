package transport

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per principal. Buckets are evicted
// lazily: each lookup sweeps entries idle longer than the eviction window,
// so no background timer is needed.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit     rate.Limit
	burst     int
	idleEvict time.Duration
	nowFn     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute sustained
// with the given burst per principal.
func NewRateLimiter(requestsPerMinute, burst int, idleEvict time.Duration) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	if idleEvict <= 0 {
		idleEvict = 10 * time.Minute
	}
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		idleEvict: idleEvict,
		nowFn:     time.Now,
	}
}

// Allow reports whether the principal may proceed, consuming one token.
func (rl *RateLimiter) Allow(principal string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()
	rl.evictIdle(now)

	b, ok := rl.buckets[principal]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[principal] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdle drops buckets not seen within the eviction window. Caller
// holds the mutex.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleEvict {
			delete(rl.buckets, key)
		}
	}
}

// size reports the live bucket count, for tests.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
