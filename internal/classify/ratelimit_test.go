package classify

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_FirstCallDoesNotWait(t *testing.T) {
	l := NewLimiter(time.Second)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait took %v, expected no delay", elapsed)
	}
}

func TestLimiter_EnforcesSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	l := NewLimiter(interval)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval-5*time.Millisecond {
		t.Errorf("second Wait returned after %v, want at least %v", elapsed, interval)
	}
}

func TestLimiter_ZeroIntervalDisablesSpacing(t *testing.T) {
	l := NewLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("5 Waits took %v, expected no delay", elapsed)
	}
}

func TestLimiter_ContextCancelledWhileWaiting(t *testing.T) {
	l := NewLimiter(time.Hour)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelCtx); err == nil {
		t.Fatal("expected context error from second Wait")
	}
}
