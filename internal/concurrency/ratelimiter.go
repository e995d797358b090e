package concurrency

import (
	"sync"
	"time"
)

// TokenBucket is an in-process token-bucket rate limiter. Nothing outside
// this package's tests uses it: the reasoner's global rate bucket is a
// cache-backed per-window counter (pkg/reasoner), and providers back off
// after a 429 through retrieval.CooldownTracker. Adapted from the teacher's
// tokenBucketLimiter (pkg/processing/queue/rate_limiter.go).
type TokenBucket struct {
	rate       float64 // tokens per second
	burst      float64
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewTokenBucket builds a bucket allowing ratePerMinute operations per
// minute with the given burst size.
func NewTokenBucket(ratePerMinute int, burst int) *TokenBucket {
	return &TokenBucket{
		rate:       float64(ratePerMinute) / 60.0,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow reports whether one operation may proceed now, consuming a token if
// so.
func (b *TokenBucket) Allow() bool {
	return b.AllowN(1)
}

// AllowN reports whether n operations may proceed now.
func (b *TokenBucket) AllowN(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

func (b *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastUpdate = now
}
