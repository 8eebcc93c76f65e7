package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucket is the in-memory limiter used when Redis is not configured.
// Each key refills Limit tokens evenly over Window.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	policy  Policy
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter for p and starts pruning idle keys
func NewTokenBucket(p Policy) *TokenBucket {
	tb := &TokenBucket{
		buckets: make(map[string]*bucket),
		policy:  p,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go tb.prune(2 * p.Window)
	return tb
}

func (tb *TokenBucket) rate() float64 {
	return float64(tb.policy.Limit) / tb.policy.Window.Seconds()
}

// Allow takes a token for key when one is available
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	limit := float64(tb.policy.Limit)

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: limit, last: now}
		tb.buckets[key] = b
	} else if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = math.Min(limit, b.tokens+elapsed.Seconds()*tb.rate())
		b.last = now
	}

	info := &Info{Limit: tb.policy.Limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)

	missing := limit - b.tokens
	info.ResetAt = now.Add(time.Duration(missing * float64(tb.policy.Window) / limit))
	return info, nil
}

func (tb *TokenBucket) prune(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.mu.Lock()
			now := tb.now()
			for key, b := range tb.buckets {
				if now.Sub(b.last) > idle {
					delete(tb.buckets, key)
				}
			}
			tb.mu.Unlock()
		case <-tb.done:
			return
		}
	}
}

// Close stops the pruning goroutine
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() { close(tb.done) })
	return nil
}
