// Package ratelimit implements a token-bucket rate limiter, adapted from the
// teacher's lsm/token_bucket package. The teacher's bucket persists its state
// to disk so limits survive a restart; this engine only needs to shed load
// at the HTTP edge, so the disk-backed state is dropped in favor of a plain
// in-memory bucket (§10 of the spec).
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// TokenBucket allows up to capacity actions in a burst, refilling by
// refillAmount every refillInterval.
type TokenBucket struct {
	mu             sync.Mutex
	capacity       int
	tokens         int
	refillAmount   int
	refillInterval time.Duration
	lastRefill     time.Time
}

// New creates a token bucket starting at full capacity.
func New(capacity, refillAmount int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:       capacity,
		tokens:         capacity,
		refillAmount:   refillAmount,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// Allow reports whether an action may proceed, consuming one token if so.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (b *TokenBucket) refillLocked() {
	if b.refillInterval <= 0 {
		return
	}
	elapsed := time.Since(b.lastRefill)
	intervals := int(elapsed / b.refillInterval)
	if intervals <= 0 {
		return
	}

	b.tokens += intervals * b.refillAmount
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * b.refillInterval)
}

// Limiter grants each distinct client its own TokenBucket, created lazily on
// first use with the configured parameters.
type Limiter struct {
	mu             sync.Mutex
	buckets        map[string]*TokenBucket
	capacity       int
	refillAmount   int
	refillInterval time.Duration
}

// NewLimiter creates a Limiter whose per-client buckets share the given
// capacity and refill rate.
func NewLimiter(capacity, refillAmount int, refillInterval time.Duration) *Limiter {
	return &Limiter{
		buckets:        make(map[string]*TokenBucket),
		capacity:       capacity,
		refillAmount:   refillAmount,
		refillInterval: refillInterval,
	}
}

// Allow reports whether the client identified by key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = New(l.capacity, l.refillAmount, l.refillInterval)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.Allow()
}

// Middleware rejects requests over the limit with 429, keying clients by the
// remote address's host part.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}

			if !l.Allow(key) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
