package security

import (
	"errors"
	"sync"
	"time"
)

// RateLimiterService is the service name the shared limiter is registered under.
const RateLimiterService = "security.rate_limiter"

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit kinds.
const (
	// KindAuth limits admin API authentication attempts, across all clients.
	KindAuth = "auth"
	// KindAssistant limits assistant answers per user.
	KindAssistant = "assistant"
)

// RateLimitConfig holds configurable rate limits. Zero disables a limit.
type RateLimitConfig struct {
	AuthPerMin      int `yaml:"auth_per_min"`
	AssistantPerMin int `yaml:"assistant_per_min"`
}

// maxIdleBuckets bounds how many per-key buckets are kept before empty ones
// are swept.
const maxIdleBuckets = 10_000

// RateLimiter implements sliding window rate limiting using stdlib only.
// Each (kind, key) pair has its own bucket tracking the timestamps of recent
// events within a one-minute window.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	limits := make(map[string]int)
	if cfg.AuthPerMin > 0 {
		limits[KindAuth] = cfg.AuthPerMin
	}
	if cfg.AssistantPerMin > 0 {
		limits[KindAssistant] = cfg.AssistantPerMin
	}
	return &RateLimiter{
		limits:  limits,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records one event of kind for key. It returns nil if allowed and
// ErrRateLimited if the limit is exceeded. Kinds without a configured limit
// are always allowed. A nil RateLimiter allows everything.
func (rl *RateLimiter) Allow(kind, key string) error {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	id := kind + ":" + key
	b, ok := rl.buckets[id]
	if !ok {
		if len(rl.buckets) >= maxIdleBuckets {
			rl.sweep(now)
		}
		b = &bucket{window: time.Minute, limit: limit}
		rl.buckets[id] = b
	}
	b.evict(now)

	if len(b.events) >= b.limit {
		return ErrRateLimited
	}

	b.events = append(b.events, now)
	return nil
}

// Enabled reports whether kind has a configured limit.
func (rl *RateLimiter) Enabled(kind string) bool {
	if rl == nil {
		return false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, ok := rl.limits[kind]
	return ok
}

// sweep drops buckets with no event left in their window.
func (rl *RateLimiter) sweep(now time.Time) {
	for id, b := range rl.buckets {
		b.evict(now)
		if len(b.events) == 0 {
			delete(rl.buckets, id)
		}
	}
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	// Events are chronologically ordered.
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
