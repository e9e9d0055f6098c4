package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{AuthPerMin: 5})

	for i := range 5 {
		if err := rl.Allow(KindAuth, ""); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}

	// 6th should be denied.
	if err := rl.Allow(KindAuth, ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{AssistantPerMin: 2})
	rl.now = func() time.Time { return now }

	_ = rl.Allow(KindAssistant, "42")
	_ = rl.Allow(KindAssistant, "42")

	if err := rl.Allow(KindAssistant, "42"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(61 * time.Second)

	if err := rl.Allow(KindAssistant, "42"); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{AssistantPerMin: 1})

	if err := rl.Allow(KindAssistant, "1"); err != nil {
		t.Fatal(err)
	}
	if err := rl.Allow(KindAssistant, "2"); err != nil {
		t.Fatalf("user 2 limited by user 1: %v", err)
	}
	if err := rl.Allow(KindAssistant, "1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	for range 100 {
		if err := rl.Allow(KindAuth, ""); err != nil {
			t.Fatalf("unconfigured kind limited: %v", err)
		}
	}
	if rl.Enabled(KindAuth) {
		t.Error("Enabled(auth) = true with zero limit")
	}

	var nilLimiter *RateLimiter
	if err := nilLimiter.Allow(KindAuth, ""); err != nil {
		t.Errorf("nil limiter returned %v", err)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{AssistantPerMin: 1})
	rl.now = func() time.Time { return now }

	for i := range maxIdleBuckets {
		_ = rl.Allow(KindAssistant, string(rune('a'+i%26))+time.Duration(i).String())
	}
	now = now.Add(2 * time.Minute)
	_ = rl.Allow(KindAssistant, "fresh")

	rl.mu.Lock()
	n := len(rl.buckets)
	rl.mu.Unlock()
	if n != 1 {
		t.Errorf("buckets = %d, want 1 after sweep", n)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{AuthPerMin: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow(KindAuth, "") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
