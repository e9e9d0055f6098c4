package provider

import "context"

// Provider is a text-completion backend. Concrete implementations live in
// modules/provider/* and also implement core.Module.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is implemented by providers that can be probed while the
// chain holds them in cooldown.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Member is implemented by provider modules that join the failover chain.
// Each returned entry binds the provider to one role.
type Member interface {
	Provider
	ChainEntries() []ChainEntry
}
