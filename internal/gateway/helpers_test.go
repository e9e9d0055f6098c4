package gateway

import (
	"io"
	"log/slog"
	"testing"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/metrics"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/provider"
	"gopkg.in/yaml.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestChain creates a Chain for testing.
func newTestChain(t *testing.T, entries []provider.ChainEntry) *provider.Chain {
	t.Helper()
	chain, err := provider.NewChain(entries, nil)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return chain
}

// newTestStore returns an in-memory escalation store holding counts.
func newTestStore(counts map[int64]int) *moderation.Store {
	s := moderation.NewStore(moderation.StoreConfig{Logger: testLogger()})
	s.Restore(counts)
	return s
}

// newRoutedGateway returns a provisioned gateway whose router can be
// exercised with httptest, without binding a port.
func newRoutedGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()
	cfg.defaults()
	g := &Gateway{
		config:     cfg,
		appCtx:     core.NewAppContext(testLogger(), t.TempDir()),
		logger:     testLogger(),
		registry:   metrics.NewRegistry(),
		dispatcher: NewWebhookDispatcher(testLogger()),
	}
	g.httpStats = newHTTPMetrics(g.registry)
	return g
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
