package share

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AttemptGuard throttles password verification per key.
type AttemptGuard interface {
	Allow(key string) bool
}

// AttemptLimiter keeps one token bucket per (link token, viewer) pair.
// Idle buckets are swept lazily once they would have refilled completely.
type AttemptLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*attemptBucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type attemptBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewAttemptLimiter allows perMinute password attempts per key with the
// given burst. It returns nil when perMinute is not positive; a nil
// *AttemptLimiter allows everything.
func NewAttemptLimiter(perMinute, burst int) *AttemptLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	interval := time.Minute / time.Duration(perMinute)
	idle := time.Duration(burst) * interval
	if idle < time.Minute {
		idle = time.Minute
	}
	return &AttemptLimiter{
		buckets: make(map[string]*attemptBucket),
		limit:   rate.Every(interval),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

// Allow consumes one attempt for key and reports whether it was available.
func (l *AttemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &attemptBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

// Len reports the number of tracked keys.
func (l *AttemptLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *AttemptLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, key)
		}
	}
}
