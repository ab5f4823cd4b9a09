package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAllow_Unlimited(t *testing.T) {
	l := New()
	for range 100 {
		if !l.Allow("wh-1", 0) {
			t.Fatal("Allow(0) should always return true")
		}
	}
}

func TestAllow_RateLimited(t *testing.T) {
	l := New()
	whID := "wh-limited"
	rateLimit := 2

	// First two should be allowed (bucket starts full).
	if !l.Allow(whID, rateLimit) {
		t.Fatal("first call should be allowed")
	}
	if !l.Allow(whID, rateLimit) {
		t.Fatal("second call should be allowed")
	}

	// Third should be denied (bucket exhausted).
	if l.Allow(whID, rateLimit) {
		t.Fatal("third call should be denied")
	}
}

func TestAllow_Refills(t *testing.T) {
	l := New()
	whID := "wh-refill"
	rateLimit := 10 // 10 per second

	// Exhaust the bucket.
	for range 10 {
		l.Allow(whID, rateLimit)
	}

	if l.Allow(whID, rateLimit) {
		t.Fatal("should be denied after exhausting bucket")
	}

	// Wait for refill.
	time.Sleep(200 * time.Millisecond)

	// Should be allowed again (at least 1 token refilled).
	if !l.Allow(whID, rateLimit) {
		t.Fatal("should be allowed after refill")
	}
}

func TestWait_Unlimited(t *testing.T) {
	l := New()
	ctx := context.Background()
	if err := l.Wait(ctx, "wh-1", 0); err != nil {
		t.Fatalf("Wait(0) should return nil, got %v", err)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	l := New()
	whID := "wh-wait"
	rateLimit := 1

	// Exhaust the bucket.
	l.Allow(whID, rateLimit)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, whID, rateLimit)
	if err == nil {
		t.Fatal("Wait should return error when context is cancelled")
	}
}

func TestWait_EventuallyAllowed(t *testing.T) {
	l := New()
	whID := "wh-eventual"
	rateLimit := 20 // 20 per second, so ~50ms per token

	// Exhaust all tokens.
	for range 20 {
		l.Allow(whID, rateLimit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx, whID, rateLimit); err != nil {
		t.Fatalf("Wait should succeed, got %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 20*time.Millisecond {
		t.Fatal("Wait should have blocked for at least some time")
	}
}

func TestReset(t *testing.T) {
	l := New()
	whID := "wh-reset"
	rateLimit := 1

	l.Allow(whID, rateLimit)
	if l.Allow(whID, rateLimit) {
		t.Fatal("should be denied")
	}

	l.Reset(whID)

	if !l.Allow(whID, rateLimit) {
		t.Fatal("should be allowed after reset")
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New()
	whID := "wh-concurrent"
	rateLimit := 100

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)

	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow(whID, rateLimit)
		}()
	}

	wg.Wait()
	close(allowed)

	trueCount := 0
	for v := range allowed {
		if v {
			trueCount++
		}
	}

	// 100 tokens up front plus whatever refills while the goroutines run.
	if trueCount < 100 || trueCount > 110 {
		t.Fatalf("expected about 100 allowed, got %d", trueCount)
	}
}

func TestRateChangeRetunesBucket(t *testing.T) {
	l := New()

	if !l.Allow("wh-retune", 1) {
		t.Fatal("first call should be allowed")
	}
	if l.Allow("wh-retune", 1) {
		t.Fatal("second call at 1/s should be denied")
	}

	// Raising the limit raises the burst; refill accrues from here on.
	l.Allow("wh-retune", 50)
	time.Sleep(100 * time.Millisecond)
	if !l.Allow("wh-retune", 50) {
		t.Fatal("expected tokens after raising the limit")
	}
}
