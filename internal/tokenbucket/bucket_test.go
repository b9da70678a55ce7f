package tokenbucket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ktrack/pricecore/pkg/e"
)

func TestAcquireConsumesTokens(t *testing.T) {
	b := New(100, 60)

	if err := b.Acquire(context.Background(), 15, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := b.Snapshot()
	if snap.TotalConsumed != 15 {
		t.Errorf("TotalConsumed = %d, want 15", snap.TotalConsumed)
	}
	if snap.Available > 85 {
		t.Errorf("Available = %d, want <= 85", snap.Available)
	}
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	b := New(10, 0)
	b.ratePerMinute = 0

	if err := b.Acquire(context.Background(), 10, time.Second); err != nil {
		t.Fatalf("unexpected error draining bucket: %v", err)
	}

	err := b.Acquire(context.Background(), 1, 50*time.Millisecond)
	if !errors.Is(err, e.ErrTokensExhausted) {
		t.Errorf("err = %v, want ErrTokensExhausted", err)
	}
}

func TestSyncOverridesAvailable(t *testing.T) {
	b := New(200, 20)
	b.Sync(0)
	if got := b.Snapshot().Available; got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	b.Sync(1000)
	if got := b.Snapshot().Available; got != 200 {
		t.Errorf("Available = %d, want 200 (capped at capacity)", got)
	}
}

func TestRefillIsLazyAndProportional(t *testing.T) {
	b := New(200, 60) // 1 token/sec
	b.Sync(0)
	b.lastRefill = time.Now().Add(-5 * time.Second)

	if err := b.Acquire(context.Background(), 5, time.Second); err != nil {
		t.Fatalf("expected refill to cover cost, got error: %v", err)
	}
}
