// Package file persists escalation counters as a JSON snapshot on disk.
package file

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
	"gopkg.in/yaml.v3"
)

const defaultFile = "violations.json"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
)

// Config holds the file store configuration.
type Config struct {
	// Path is the snapshot file. Defaults to {DataDir}/violations.json.
	Path string `yaml:"path"`
}

// Module provides a JSON-file moderation.Persistence.
type Module struct {
	config  Config
	backend *Backend
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.file",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("file: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultFile)
	}
	m.backend = NewBackend(m.config.Path)
	ctx.RegisterService(moderation.PersistenceService, m.backend)
	ctx.Logger.Info("file store provisioned", slog.String("path", m.config.Path))
	return nil
}

// Backend returns the provisioned backend, nil before Provision.
func (m *Module) Backend() *Backend {
	return m.backend
}
