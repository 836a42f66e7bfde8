package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Allower grants permission to proceed with n units of work, blocking
// until they are available. The Execute stage uses one to cap subprocess
// spawns per second independently of the pipeline's concurrency bound: a
// permit pool limits how many run at once, an Allower limits how fast new
// ones start.
type Allower interface {
	// Allow blocks until n tokens are available or ctx is done.
	Allow(ctx context.Context, n int64) error
}

// leakyBucketAllower refills at a fixed rate up to a fixed capacity.
// Callers that arrive when the bucket is empty poll on a short interval
// rather than queueing, so token grants are not strictly FIFO.
type leakyBucketAllower struct {
	rate     float64 // tokens per second
	capacity int64
	tokens   float64
	last     time.Time
	mu       sync.Mutex
}

// NewLeakyBucketAllower returns an Allower that adds rate tokens per
// second up to capacity. The bucket starts full, so a burst of up to
// capacity spawns is allowed before the rate limit bites.
func NewLeakyBucketAllower(rate float64, capacity int64) Allower {
	return &leakyBucketAllower{
		rate:     rate,
		capacity: capacity,
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

func (a *leakyBucketAllower) Allow(ctx context.Context, n int64) error {
	if n <= 0 {
		n = 1
	}
	if n > a.capacity {
		return fmt.Errorf("throttle: requested %d tokens, but capacity is %d", n, a.capacity)
	}
	for {
		a.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(a.last).Seconds()
		a.tokens += elapsed * a.rate
		if a.tokens > float64(a.capacity) {
			a.tokens = float64(a.capacity)
		}
		a.last = now

		if a.tokens >= float64(n) {
			a.tokens -= float64(n)
			a.mu.Unlock()
			return nil
		}
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("throttle: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
