package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/warden/internal/bot"
	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/cron"
	"github.com/flemzord/warden/internal/metrics"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/provider"
	"github.com/flemzord/warden/internal/security"
)

const (
	defaultAuditFile = "audit.jsonl"
	loadTimeout      = 10 * time.Second
	moderationTemp   = 0.0
)

// BuildParams are the inputs of Build.
type BuildParams struct {
	Config   *config.Config
	DataDir  string
	Logger   *slog.Logger
	Redactor *security.Redactor
	// Registry defaults to a fresh metrics registry.
	Registry *prometheus.Registry
}

// Runtime is a fully wired, not yet started application.
type Runtime struct {
	App        *core.App
	Context    *core.AppContext
	Store      *moderation.Store
	Policy     *moderation.Policy
	Chain      *provider.Chain
	Bot        *bot.Dispatcher
	Dispatcher *channel.Dispatcher
	Scheduler  *cron.Scheduler

	logger  *slog.Logger
	closers []io.Closer
}

// Build loads every configured module, then assembles the moderation core
// (chain, store, classifier, policy, bot dispatcher) around them. Components
// built here join the module lifecycle so Start and Stop cover them.
func Build(ctx context.Context, p BuildParams) (*Runtime, error) {
	if p.Config == nil {
		return nil, errors.New("app: config is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(p.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", p.DataDir, err)
	}

	rt := &Runtime{logger: logger}

	appCtx := core.NewAppContext(logger, p.DataDir).WithModuleConfigs(p.Config.Modules)
	rt.Context = appCtx

	registry := p.Registry
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	appCtx.RegisterService(metrics.RegistryService, registry)

	audit, err := rt.openAudit(p)
	if err != nil {
		return nil, err
	}
	appCtx.RegisterService(security.AuditService, audit)

	limiter := security.NewRateLimiter(p.Config.Security.RateLimit)
	appCtx.RegisterService(security.RateLimiterService, limiter)

	rt.Scheduler = cron.NewScheduler(logger)
	appCtx.RegisterService(cron.SchedulerService, rt.Scheduler)

	rt.Dispatcher = channel.NewDispatcher()
	appCtx.RegisterService(channel.DispatcherService, rt.Dispatcher)

	rt.App = core.NewApp(appCtx)
	ids := config.Resolve(p.Config)
	if err := rt.App.LoadModules(ids); err != nil {
		rt.Close()
		return nil, err
	}

	if err := rt.wire(ctx, p, ids, registry, audit, limiter); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) wire(
	ctx context.Context,
	p BuildParams,
	ids []string,
	registry *prometheus.Registry,
	audit *security.AuditLogger,
	limiter *security.RateLimiter,
) error {
	logger := rt.logger
	appCtx := rt.Context

	// Channels and providers.
	var (
		channels []channel.Channel
		entries  []provider.ChainEntry
	)
	for _, id := range ids {
		mod, ok := rt.App.Module(id)
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			// Inbound messages carry the full module ID as their channel.
			if err := rt.Dispatcher.Register(id, ch); err != nil {
				return fmt.Errorf("registering channel %s: %w", id, err)
			}
			channels = append(channels, ch)
		}
		if m, ok := mod.(provider.Member); ok {
			entries = append(entries, m.ChainEntries()...)
		}
	}

	chain, err := provider.NewChain(entries, logger.With("component", "provider-chain"))
	if err != nil {
		return fmt.Errorf("building provider chain: %w", err)
	}
	rt.Chain = chain
	appCtx.RegisterService(provider.ChainService, chain)
	chainCtx, cancelChain := context.WithCancel(context.WithoutCancel(ctx))
	rt.App.AppendModule("provider.chain", &component{
		start: func() error { chain.Start(chainCtx); return nil },
		stop: func(context.Context) error {
			chain.Stop()
			cancelChain()
			return nil
		},
	})

	// Observers.
	observers := moderation.Observers{
		metrics.NewModeration(registry),
		newAuditObserver(audit),
	}
	if svc, ok := appCtx.GetService(moderation.ObserverService); ok {
		if obs, ok := svc.(moderation.Observer); ok {
			observers = append(observers, obs)
		}
	}

	// Escalation store.
	var persist moderation.Persistence
	if svc, ok := appCtx.GetService(moderation.PersistenceService); ok {
		persist, _ = svc.(moderation.Persistence)
	}
	if persist == nil {
		logger.Warn("no store module configured, violation counters are kept in memory only")
	}
	store := moderation.NewStore(moderation.StoreConfig{
		Persistence: persist,
		Logger:      logger,
		Observer:    observers,
	})
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := store.Load(loadCtx); err != nil {
		// Moderation keeps working from an empty store.
		logger.Error("violation counters not restored, starting empty", "error", err)
	}
	rt.Store = store
	appCtx.RegisterService(moderation.StoreService, store)

	if persist != nil {
		if err := rt.Scheduler.RegisterJob(&cron.SnapshotFlushJob{
			Store:  store,
			Logger: logger,
		}); err != nil {
			return err
		}
		// Released after every started module has stopped and before the
		// store modules close.
		rt.App.AppendModule("moderation.store", releaseFunc(store.Flush))
	}

	// Moderation policy.
	svc, ok := appCtx.GetService(moderation.TransportService)
	if !ok {
		return fmt.Errorf("%w: no channel provides %s", bot.ErrMissingDependency, moderation.TransportService)
	}
	transport, ok := svc.(moderation.Transport)
	if !ok {
		return fmt.Errorf("%w: %s is %T", bot.ErrMissingDependency, moderation.TransportService, svc)
	}

	temp := moderationTemp
	classifier := moderation.NewClassifier(moderation.ClassifierConfig{
		Oracle: provider.NewOracle(chain, provider.OracleConfig{
			Role:        provider.RoleModeration,
			Temperature: &temp,
			Retries:     1,
		}),
		Rules:    p.Config.Moderation,
		Logger:   logger,
		Observer: observers,
	})
	policy, err := moderation.NewPolicy(moderation.PolicyConfig{
		Classifier: classifier,
		Store:      store,
		Transport:  transport,
		Rules:      p.Config.Moderation,
		Logger:     logger,
		Observer:   observers,
	})
	if err != nil {
		return err
	}
	rt.Policy = policy

	// Bot dispatcher.
	assistantCfg := p.Config.Bot.Assistant
	dispatcher, err := bot.New(bot.Options{
		Config:    p.Config.Bot,
		Moderator: policy,
		Assistant: provider.NewOracle(chain, provider.OracleConfig{
			Role:        provider.RoleAssistant,
			MaxTokens:   assistantCfg.MaxTokens,
			Temperature: assistantCfg.Temperature,
			Retries:     1,
		}),
		Outbox:   rt.Dispatcher,
		Limiter:  limiter,
		Recorder: metrics.NewBot(registry),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	rt.Bot = dispatcher
	for _, ch := range channels {
		ch.SetInbox(dispatcher.Inbox())
	}

	rt.App.AppendModule("cron.scheduler", &component{
		start: rt.Scheduler.Start,
		stop:  rt.Scheduler.Stop,
	})

	logger.Info("moderation wired",
		"channels", len(channels),
		"providers", len(chain.Names()),
		"threshold", policy.Threshold(),
		"persistent", persist != nil,
		"jobs", len(rt.Scheduler.Jobs()),
	)
	return nil
}

func (rt *Runtime) openAudit(p BuildParams) (*security.AuditLogger, error) {
	cfg := p.Config.Security.Audit
	if cfg.Disabled {
		return nil, nil
	}
	path := cfg.Path
	if path == "" {
		path = filepath.Join(p.DataDir, defaultAuditFile)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	rt.closers = append(rt.closers, f)
	return security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   f,
		Redactor: p.Redactor,
	}), nil
}

// Start starts every module and wired component in order.
func (rt *Runtime) Start() error {
	return rt.App.Start()
}

// Stop stops everything in reverse start order, then flushes the
// escalation store and closes the store modules.
func (rt *Runtime) Stop() {
	rt.App.Stop()
}

// Close releases modules that were never stopped, then files opened by
// Build. Call it after Stop.
func (rt *Runtime) Close() {
	if rt.App != nil {
		rt.App.Close()
	}
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

// component adapts start/stop functions to the module lifecycle.
type component struct {
	start func() error
	stop  func(ctx context.Context) error
}

func (c *component) ModuleInfo() core.ModuleInfo { return core.ModuleInfo{} }

func (c *component) Start() error {
	if c.start == nil {
		return nil
	}
	return c.start()
}

func (c *component) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	return c.stop(ctx)
}

// releaseFunc is a lifecycle member with Stop and no Start. The app
// releases it after every started module has stopped.
type releaseFunc func(ctx context.Context) error

func (f releaseFunc) ModuleInfo() core.ModuleInfo { return core.ModuleInfo{} }

func (f releaseFunc) Stop(ctx context.Context) error { return f(ctx) }
