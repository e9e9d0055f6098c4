// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/warden/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Unset CompleteFunc panics on call. All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	HealthCheckFunc func(ctx context.Context) error
	Model           string

	mu            sync.Mutex
	CompleteCalls int
	HealthCalls   int
	LastRequest   provider.CompletionRequest
}

// Complete delegates to CompleteFunc and tracks call count.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastRequest = req
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ModelName returns Model.
func (m *MockProvider) ModelName() string { return m.Model }

// HealthCheck delegates to HealthCheckFunc; nil means healthy.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}

// Calls returns the number of Complete invocations.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls
}

// Reply returns a provider that always answers content.
func Reply(content string) *MockProvider {
	return &MockProvider{
		Model: "mock",
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: content, FinishReason: provider.FinishReasonStop}, nil
		},
	}
}

// Failing returns a provider that always fails with err.
func Failing(err error) *MockProvider {
	return &MockProvider{
		Model: "mock",
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{}, err
		},
	}
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
