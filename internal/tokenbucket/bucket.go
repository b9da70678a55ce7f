// Package tokenbucket implements admission control for outbound calls to
// the rate-limited external price API: a single process-wide bucket,
// lazily refilled on every acquire attempt and periodically reconciled
// against the server-reported token count.
package tokenbucket

import (
	"context"
	"sync"
	"time"

	"github.com/ktrack/pricecore/pkg/e"
)

const (
	defaultCapacity    = 200
	defaultRatePerMin  = 20
	defaultMaxWait     = 120 * time.Second
	pollInterval       = 500 * time.Millisecond
)

// Bucket is a lazy-refill token bucket guarded by a single mutex. It is
// process-wide: every caller across every component shares one instance.
type Bucket struct {
	mu             sync.Mutex
	available      float64
	capacity       float64
	ratePerMinute  float64
	lastRefill     time.Time
	totalConsumed  int64
}

// New builds a Bucket starting full. capacity/ratePerMinute fall back to
// their spec-mandated defaults (200 tokens, 20/min) when zero.
func New(capacity, ratePerMinute int) *Bucket {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if ratePerMinute <= 0 {
		ratePerMinute = defaultRatePerMin
	}

	return &Bucket{
		available:     float64(capacity),
		capacity:      float64(capacity),
		ratePerMinute: float64(ratePerMinute),
		lastRefill:    time.Now(),
	}
}

// refill adds floor(elapsed*rate/60) tokens, capped at capacity. Must be
// called with mu held.
func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	added := float64(int64(elapsed * b.ratePerMinute / 60))
	if added <= 0 {
		return
	}

	b.available += added
	if b.available > b.capacity {
		b.available = b.capacity
	}
	b.lastRefill = now
}

// Acquire blocks until cost tokens are available and consumes them
// atomically, or returns ErrTokensExhausted once maxWait elapses. A
// maxWait of zero uses the default 120s budget.
func (b *Bucket) Acquire(ctx context.Context, cost int, maxWait time.Duration) error {
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

	deadline := time.Now().Add(maxWait)
	for {
		b.mu.Lock()
		b.refill()
		if b.available >= float64(cost) {
			b.available -= float64(cost)
			b.totalConsumed += int64(cost)
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		if time.Now().After(deadline) {
			return e.ErrTokensExhausted
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Sync atomically replaces the current available count with the value
// the server reported for the call that just completed, eliminating
// client-server drift. Concurrent calls serialize on the same mutex as
// Acquire; the last one to land wins (see DESIGN.md Open Question 1).
func (b *Bucket) Sync(serverReported int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.available = float64(serverReported)
	if b.available > b.capacity {
		b.available = b.capacity
	}
	b.lastRefill = time.Now()
}

// Snapshot is the observable bucket state.
type Snapshot struct {
	Available     int
	PerMinute     int
	LastRefill    time.Time
	TotalConsumed int64
}

func (b *Bucket) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		Available:     int(b.available),
		PerMinute:     int(b.ratePerMinute),
		LastRefill:    b.lastRefill,
		TotalConsumed: b.totalConsumed,
	}
}
