package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiterRegistry(t *testing.T) {
	reg := NewLimiterRegistry(100, 10, 100*time.Millisecond)
	defer reg.Stop()

	a := reg.Get("127.0.0.1")
	b := reg.Get("10.0.0.2")
	if a == b {
		t.Error("expected different limiters for different clients")
	}
	if reg.Get("127.0.0.1") != a {
		t.Error("expected same limiter for same client")
	}

	time.Sleep(250 * time.Millisecond)
	if reg.Len() != 0 {
		t.Errorf("expected idle limiters to be dropped, %d left", reg.Len())
	}
	if reg.Get("127.0.0.1") == a {
		t.Error("expected old limiter to be cleaned up and replaced")
	}
	reg.Stop()
}

func TestLimiter_NonPositiveRateNeverThrottles(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		throttled, err := l.Take(context.Background())
		if err != nil || throttled {
			t.Fatalf("iteration %d: throttled=%v err=%v", i, throttled, err)
		}
	}
}

func TestLimiter_TakeReportsThrottle(t *testing.T) {
	l := NewLimiter(50, 1)
	if throttled, err := l.Take(context.Background()); err != nil || throttled {
		t.Fatalf("first take should not wait: throttled=%v err=%v", throttled, err)
	}
	throttled, err := l.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !throttled {
		t.Error("expected second take to wait for a refill")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1) // consume burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Wait(ctx, 1)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait returned too early")
	}
}
