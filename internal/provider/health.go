package provider

import (
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

type healthState int

const (
	stateHealthy  healthState = iota
	stateCooldown             // transient failure, backing off
	stateDead                 // too many consecutive failures
)

func (s healthState) String() string {
	switch s {
	case stateHealthy:
		return "healthy"
	case stateCooldown:
		return "cooldown"
	case stateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HealthConfig controls how a chain entry backs off after failures.
type HealthConfig struct {
	// InitialBackoff is the cooldown after the first failure. Default: 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff caps the cooldown. Default: 60s.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// MaxFailures marks the provider dead. Default: 5.
	MaxFailures int `yaml:"max_failures"`
	// CheckInterval is how often dead providers are probed. Default: 10s.
	CheckInterval time.Duration `yaml:"check_interval"`
}

func (c *HealthConfig) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Second
	}
}

// healthTracker follows one provider's availability. Cooldowns grow along
// a capped exponential backoff that restarts on success.
type healthTracker struct {
	cfg           HealthConfig
	onStateChange func(from, to healthState)

	mu       sync.Mutex
	state    healthState
	failures int
	backoff  retry.Backoff
	lastWait time.Duration
	until    time.Time

	now func() time.Time
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	cfg.defaults()
	h := &healthTracker{cfg: cfg, now: time.Now}
	h.backoff = h.newBackoff()
	return h
}

func (h *healthTracker) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(h.cfg.MaxBackoff, retry.NewExponential(h.cfg.InitialBackoff))
}

// IsAvailable reports whether the provider may take a request. A cooldown
// expires on its own; a dead provider waits for a health probe.
func (h *healthTracker) IsAvailable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case stateHealthy:
		return true
	case stateCooldown:
		return !h.now().Before(h.until)
	default:
		return false
	}
}

// ShouldHealthCheck is true for dead and cooldown-expired providers.
func (h *healthTracker) ShouldHealthCheck() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case stateDead:
		return true
	case stateCooldown:
		return !h.now().Before(h.until)
	default:
		return false
	}
}

func (h *healthTracker) RecordSuccess() {
	h.mu.Lock()
	prev := h.state
	h.state = stateHealthy
	h.failures = 0
	h.lastWait = 0
	h.backoff = h.newBackoff()
	h.mu.Unlock()

	h.notify(prev, stateHealthy)
}

func (h *healthTracker) RecordFailure() {
	h.mu.Lock()
	prev := h.state
	h.failures++
	if h.failures >= h.cfg.MaxFailures {
		h.state = stateDead
	} else {
		wait, _ := h.backoff.Next()
		h.lastWait = wait
		h.until = h.now().Add(wait)
		h.state = stateCooldown
	}
	next := h.state
	h.mu.Unlock()

	h.notify(prev, next)
}

func (h *healthTracker) notify(from, to healthState) {
	if from != to && h.onStateChange != nil {
		h.onStateChange(from, to)
	}
}

func (h *healthTracker) snapshot() (state healthState, failures int, wait time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.failures, h.lastWait
}
