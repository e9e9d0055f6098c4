// Package nats publishes moderation events to a NATS server so other
// services can react to warnings, bans and resets.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
)

const (
	defaultURL           = natsgo.DefaultURL
	defaultName          = "warden"
	defaultPrefix        = "warden.moderation"
	defaultReconnectWait = 2 * time.Second
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the NATS events configuration.
type Config struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	// MaxReconnects is -1 for unlimited. Zero means the default (unlimited).
	MaxReconnects int `yaml:"max_reconnects"`
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultPrefix
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = defaultReconnectWait
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
}

func (c *Config) validate() error {
	if strings.ContainsAny(c.SubjectPrefix, " \t*>") || strings.HasSuffix(c.SubjectPrefix, ".") {
		return fmt.Errorf("nats: invalid subject_prefix %q", c.SubjectPrefix)
	}
	if c.ReconnectWait < 0 {
		return errors.New("nats: reconnect_wait must be non-negative")
	}
	return nil
}

// Module connects to NATS and provides the events Observer.
type Module struct {
	config   Config
	logger   *slog.Logger
	conn     *natsgo.Conn
	observer *Observer
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "events.nats",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("nats: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The observer is registered
// before the connection exists; events published before Start are
// dropped with a warning.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger.With("module", "events.nats")
	m.observer = NewObserver(m, m.config.SubjectPrefix, m.logger)
	ctx.RegisterService(moderation.ObserverService, m.observer)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. An unreachable server is not fatal: the
// client keeps retrying in the background.
func (m *Module) Start() error {
	logger := m.logger
	opts := []natsgo.Option{
		natsgo.Name(m.config.Name),
		natsgo.ReconnectWait(m.config.ReconnectWait),
		natsgo.MaxReconnects(m.config.MaxReconnects),
		natsgo.RetryOnFailedConnect(true),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := natsgo.Connect(m.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats: connect %s: %w", m.config.URL, err)
	}
	m.conn = conn
	logger.Info("nats events started", "url", m.config.URL, "prefix", m.config.SubjectPrefix)
	return nil
}

// Stop implements core.Stopper. Pending publishes are flushed before the
// connection closes.
func (m *Module) Stop(ctx context.Context) error {
	if m.conn == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := m.conn.FlushWithContext(ctx); err != nil && m.conn.IsConnected() {
		m.logger.Warn("nats flush failed", "error", err)
	}
	m.conn.Close()
	return nil
}

// Publish implements Publisher over the module's connection.
func (m *Module) Publish(subject string, data []byte) error {
	if m.conn == nil {
		return errors.New("nats: not connected")
	}
	return m.conn.Publish(subject, data)
}

// Observer returns the provisioned observer, nil before Provision.
func (m *Module) Observer() *Observer {
	return m.observer
}
