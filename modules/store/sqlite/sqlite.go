// Package sqlite persists escalation counters in a SQLite database using
// modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module provides a SQLite moderation.Persistence.
type Module struct {
	config  Config
	logger  *slog.Logger
	backend *Backend
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := open(openCtx, m.config)
	if err != nil {
		return err
	}
	m.backend = &Backend{db: db}
	ctx.RegisterService(moderation.PersistenceService, m.backend)

	m.logger.Info("sqlite store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.backend == nil {
		return fmt.Errorf("sqlite: not provisioned")
	}
	if err := m.backend.Ping(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.backend == nil {
		return nil
	}
	m.logger.Info("sqlite store stopping")
	return m.backend.Close()
}

// Backend returns the provisioned backend, nil before Provision.
func (m *Module) Backend() *Backend {
	return m.backend
}
