package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.Burst() != 5 {
		t.Errorf("expected burst 5, got %d", limiter.Burst())
	}
	if limiter.Limit() != 10 {
		t.Errorf("expected limit 10, got %v", limiter.Limit())
	}

	l2 := NewLimiter(10, -1)
	if l2.Burst() != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.Burst())
	}
}

func TestLimiter_SharedBudget(t *testing.T) {
	// 1 rps, burst 2: the budget is global, not per host or per caller
	limiter := NewLimiter(1, 2)

	if !limiter.Allow() {
		t.Error("first permit should be available")
	}
	if !limiter.Allow() {
		t.Error("second permit should be available (burst 2)")
	}
	if limiter.Allow() {
		t.Error("third permit should be refused")
	}
}

func TestLimiter_ConcurrentWaiters(t *testing.T) {
	// 50 rps, burst 1: 5 concurrent waiters need at least ~80ms in total
	limiter := NewLimiter(50, 1)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				t.Errorf("wait failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected permits to be spaced out, all granted in %v", elapsed)
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow() // drain the only token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected error from canceled wait")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.WaitWithDelay(ctx, 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if duration := time.Since(start); duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate(0.1, 1)

	if limiter.Burst() != 1 {
		t.Errorf("expected burst 1, got %d", limiter.Burst())
	}
	if !limiter.Allow() {
		t.Error("first request should pass")
	}
	if limiter.Allow() {
		t.Error("second request should fail")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatalf("unlimited limiter refused permit %d", i)
		}
	}
}
