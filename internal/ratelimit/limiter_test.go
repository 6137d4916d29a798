package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestDefaultConfig checks the exchange defaults.
func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.RequestsPerSecond != 5 {
		t.Errorf("RequestsPerSecond = %v, want 5", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 20 {
		t.Errorf("Burst = %v, want 20", cfg.Burst)
	}
}

// TestBurstThenRefusal drains a full bucket: 20 consecutive calls pass, the
// 21st is refused.
func TestBurstThenRefusal(t *testing.T) {
	t.Parallel()

	l := New(DefaultConfig())
	for i := 0; i < 20; i++ {
		if !l.Allow() {
			t.Fatalf("call %d refused, want first 20 allowed", i+1)
		}
	}
	if l.Allow() {
		t.Fatal("21st call allowed, want refused")
	}
}

// TestRefillAfterWait drains the bucket, waits 0.2s and expects at least one
// token back (5/s x 0.2s = 1).
func TestRefillAfterWait(t *testing.T) {
	t.Parallel()

	l := New(DefaultConfig())
	for l.Allow() {
	}

	time.Sleep(210 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("no token refilled after 0.2s at 5 tokens/s")
	}
}

// TestDisabledAlwaysAllows checks the no-limit configuration.
func TestDisabledAlwaysAllows(t *testing.T) {
	t.Parallel()

	l := New(NoLimit())
	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatal("disabled limiter refused a request")
		}
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on disabled limiter: %v", err)
	}
}

// TestWaitHonorsContext asserts Wait returns promptly when the context is
// cancelled while the bucket is empty.
func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(&Config{RequestsPerSecond: 0.001, Burst: 1, Enabled: true})
	if !l.Allow() {
		t.Fatal("initial token missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait should fail once the context deadline passes")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait did not honor context cancellation")
	}
}
