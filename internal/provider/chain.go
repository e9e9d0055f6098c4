// Package provider defines the Provider interface for LLM backends, a
// health-aware failover chain across them, and the adapter that exposes a
// chain role as a moderation oracle.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ChainService is the service name the assembled chain is registered under.
const ChainService = "provider.chain"

// ChainEntry configures a single provider in the chain.
type ChainEntry struct {
	Name        string
	Provider    Provider
	Role        Role
	Health      HealthConfig
	FallbackFor []Role // empty = fallback for all roles
}

type chainEntry struct {
	ChainEntry
	health *healthTracker
}

// Chain routes completions by role and fails over between providers.
type Chain struct {
	entries []chainEntry
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewChain creates a chain from the given entries. A nil logger discards
// output.
func NewChain(entries []ChainEntry, logger *slog.Logger) (*Chain, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Chain{entries: make([]chainEntry, len(entries)), logger: logger}
	for i, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("%w: entry %q has nil provider", ErrNoProvider, e.Name)
		}
		c.entries[i] = chainEntry{ChainEntry: e, health: newHealthTracker(e.Health)}
		c.watch(&c.entries[i])
	}
	return c, nil
}

func (c *Chain) watch(e *chainEntry) {
	e.health.onStateChange = func(from, to healthState) {
		_, failures, wait := e.health.snapshot()
		switch to {
		case stateCooldown:
			c.logger.Warn("provider entered cooldown", "provider", e.Name, "backoff", wait, "failures", failures)
		case stateDead:
			c.logger.Error("provider marked dead", "provider", e.Name, "failures", failures)
		case stateHealthy:
			c.logger.Info("provider revived", "provider", e.Name, "previous_state", from.String())
		}
	}
}

// Start launches the background health probe loop.
func (c *Chain) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	go c.probe(ctx, c.checkInterval())
}

// Stop cancels the health probe loop.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Complete sends req to the first available provider for role, failing
// over on retryable errors.
func (c *Chain) Complete(ctx context.Context, role Role, req CompletionRequest) (CompletionResponse, error) {
	candidates := c.candidates(role)
	if len(candidates) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w for role %q", ErrNoProvider, role)
	}

	var lastErr error
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		if !e.health.IsAvailable() {
			continue
		}

		resp, err := e.Provider.Complete(ctx, req)
		if err == nil {
			e.health.RecordSuccess()
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return CompletionResponse{}, err
		}
		e.health.RecordFailure()
		c.logger.Warn("provider failed, failing over", "provider", e.Name, "role", role, "error", err)
	}

	if lastErr != nil {
		return CompletionResponse{}, fmt.Errorf("%w: last error: %w", ErrAllProviders, lastErr)
	}
	return CompletionResponse{}, fmt.Errorf("%w for role %q: all candidates unavailable", ErrAllProviders, role)
}

// Names lists the configured entries in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i := range c.entries {
		names[i] = c.entries[i].Name
	}
	return names
}

// Status is one entry's health as reported by /health.
type Status struct {
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	State     string `json:"state"`
	Available bool   `json:"available"`
	Failures  int    `json:"failures"`
}

// HealthReport returns the health of every entry in chain order.
func (c *Chain) HealthReport() []Status {
	out := make([]Status, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		state, failures, _ := e.health.snapshot()
		out[i] = Status{
			Name:      e.Name,
			Role:      e.Role,
			State:     state.String(),
			Available: e.health.IsAvailable(),
			Failures:  failures,
		}
	}
	return out
}

// candidates returns direct role matches first, then fallbacks.
func (c *Chain) candidates(role Role) []*chainEntry {
	var direct, fallbacks []*chainEntry
	for i := range c.entries {
		e := &c.entries[i]
		switch {
		case e.Role == role:
			direct = append(direct, e)
		case e.Role == RoleFallback && (len(e.FallbackFor) == 0 || slices.Contains(e.FallbackFor, role)):
			fallbacks = append(fallbacks, e)
		}
	}
	return append(direct, fallbacks...)
}

func (c *Chain) checkInterval() time.Duration {
	interval := c.entries[0].health.cfg.CheckInterval
	for i := 1; i < len(c.entries); i++ {
		interval = min(interval, c.entries[i].health.cfg.CheckInterval)
	}
	return interval
}

func (c *Chain) probe(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range c.entries {
				e := &c.entries[i]
				if !e.health.ShouldHealthCheck() {
					continue
				}
				checker, ok := e.Provider.(HealthChecker)
				if !ok {
					continue
				}
				if err := checker.HealthCheck(ctx); err == nil {
					e.health.RecordSuccess()
				}
			}
		}
	}
}
