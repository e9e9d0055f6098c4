// Package gateway implements the gateway.http module: the bot's HTTP
// surface. It serves the banner, health and Prometheus endpoints, routes
// Telegram webhooks through a WebhookDispatcher, and mounts an
// authenticated admin API over the escalation counters.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/metrics"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/provider"
	"github.com/flemzord/warden/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// ViolationStore is the counter surface the admin API reads and resets.
// *moderation.Store satisfies it.
type ViolationStore interface {
	Get(userID int64) int
	ResetBy(ctx context.Context, chatID, userID, by int64)
	Snapshot() map[int64]int
}

var _ ViolationStore = (*moderation.Store)(nil)

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it except through the webhook dispatcher service.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	registry   *prometheus.Registry
	httpStats  *httpMetrics
	dispatcher *WebhookDispatcher
	audit      *security.AuditLogger
	limiter    *security.RateLimiter
	startedAt  time.Time

	mu   sync.Mutex
	addr net.Addr

	// Resolved lazily at Start() via service registry.
	store ViolationStore
	chain *provider.Chain
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	// Configure is skipped when the module has no config block.
	g.config.defaults()

	g.appCtx = ctx
	g.logger = ctx.Logger

	g.registry = metrics.NewRegistry()
	if svc, ok := ctx.GetService(metrics.RegistryService); ok {
		if reg, ok := svc.(*prometheus.Registry); ok {
			g.registry = reg
		}
	}
	g.httpStats = newHTTPMetrics(g.registry)

	if svc, ok := ctx.GetService(security.AuditService); ok {
		g.audit, _ = svc.(*security.AuditLogger)
	}
	if svc, ok := ctx.GetService(security.RateLimiterService); ok {
		g.limiter, _ = svc.(*security.RateLimiter)
	}

	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.dispatcher.SetLimits(g.config.MaxBodyBytes, g.config.MaxJSONDepth)
	g.dispatcher.SetAuditLogger(g.audit)
	for source, cfg := range g.config.Webhooks {
		if cfg.Secret != "" {
			g.dispatcher.SetSecret(source, cfg.Secret)
			g.logger.Info("webhook source configured", "source", source)
		}
	}

	// Channel modules provisioned after this one mount their receivers here.
	ctx.RegisterService(WebhookDispatcherService, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	// Resolve optional services. Missing ones degrade the endpoints that
	// need them instead of failing startup.
	if svc, ok := g.appCtx.GetService(moderation.StoreService); ok {
		if store, ok := svc.(ViolationStore); ok {
			g.store = store
		}
	}
	if svc, ok := g.appCtx.GetService(provider.ChainService); ok {
		if chain, ok := svc.(*provider.Chain); ok {
			g.chain = chain
		}
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}
	g.mu.Lock()
	g.addr = ln.Addr()
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
