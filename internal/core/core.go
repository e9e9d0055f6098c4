package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
	// released is set once Stop has been called on the module.
	released bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, provisions, and validates all modules for the
// given IDs in order. If any step fails, already-loaded modules are cleaned up.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.cleanup()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		a.modules = append(a.modules, moduleInstance{
			id:     info.ID,
			module: mod,
		})
		a.logger.Info("module loaded", "module", string(info.ID))
	}
	return nil
}

// Module returns the loaded module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// Modules returns the loaded modules in load order.
func (a *App) Modules() []Module {
	out := make([]Module, len(a.modules))
	for i, mi := range a.modules {
		out[i] = mi.module
	}
	return out
}

// AppendModule adds an already-built component to the lifecycle. It is
// started after every loaded module and stopped before them. A component
// without Start is instead released after every started module, before
// the loaded modules without Start.
func (a *App) AppendModule(id ModuleID, mod Module) {
	a.modules = append(a.modules, moduleInstance{id: id, module: mod})
}

// Start starts all loaded modules that implement Starter, in order.
// If any Start() fails, already-started modules are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			a.stopModules(i - 1)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.started = true
	}
	a.logger.Info("all modules started")
	return nil
}

// Stop shuts the app down with a timeout. Started modules are stopped in
// reverse order first. Modules with Stop but no Start (stores, for
// example) are released afterwards, also in reverse order, so nothing
// that is still running can reach a closed resource.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.stopStarted(ctx, len(a.modules)-1)
	a.release(ctx)
}

// Close releases every module not yet stopped, started or not. The offline
// CLI commands use it on modules that were loaded but never started.
func (a *App) Close() {
	a.cleanup()
}

func (a *App) stopModules(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.stopStarted(ctx, fromIndex)
}

func (a *App) stopStarted(ctx context.Context, fromIndex int) {
	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		a.stopOne(ctx, mi)
		mi.started = false
	}
}

func (a *App) release(ctx context.Context) {
	for i := len(a.modules) - 1; i >= 0; i-- {
		mi := &a.modules[i]
		if mi.released {
			continue
		}
		if _, ok := mi.module.(Starter); ok {
			continue
		}
		a.stopOne(ctx, mi)
	}
}

func (a *App) stopOne(ctx context.Context, mi *moduleInstance) {
	mi.released = true
	s, ok := mi.module.(Stopper)
	if !ok {
		return
	}
	a.logger.Info("stopping module", "module", string(mi.id))
	if err := s.Stop(ctx); err != nil {
		a.logger.Error("module stop error", "module", string(mi.id), "error", err)
	}
}

func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		mi := &a.modules[i]
		if mi.released {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.modules = nil
}
