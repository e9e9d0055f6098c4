// Package redis persists escalation counters in a Redis hash so several
// bot replicas can share them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
)

const (
	defaultAddr        = "localhost:6379"
	defaultKey         = "warden:violations"
	defaultDialTimeout = 5 * time.Second
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

// Config holds the Redis store configuration.
type Config struct {
	// URL is a redis:// connection URL. When set it overrides Addr,
	// Password and DB.
	URL         string        `yaml:"url"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Key         string        `yaml:"key"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

func (c *Config) defaults() {
	if c.Addr == "" && c.URL == "" {
		c.Addr = defaultAddr
	}
	if c.Key == "" {
		c.Key = defaultKey
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
}

func (c *Config) options() (*goredis.Options, error) {
	if c.URL != "" {
		opts, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts.DialTimeout = c.DialTimeout
		return opts, nil
	}
	return &goredis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	}, nil
}

func (c *Config) validate() error {
	if c.DB < 0 {
		return fmt.Errorf("redis: db must be non-negative, got %d", c.DB)
	}
	if c.DialTimeout < 0 {
		return errors.New("redis: dial_timeout must be non-negative")
	}
	return nil
}

// Module provides a Redis moderation.Persistence.
type Module struct {
	config  Config
	logger  *slog.Logger
	client  *goredis.Client
	backend *Backend
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.redis",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redis: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The connection is lazy: Validate
// is where an unreachable server is reported.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	opts, err := m.config.options()
	if err != nil {
		return err
	}
	m.client = goredis.NewClient(opts)
	m.backend = NewBackend(m.client, m.config.Key)
	ctx.RegisterService(moderation.PersistenceService, m.backend)

	m.logger.Info("redis store provisioned", "addr", opts.Addr, "key", m.config.Key)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.client == nil {
		return errors.New("redis: not provisioned")
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.config.DialTimeout)
	defer cancel()
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.client == nil {
		return nil
	}
	m.logger.Info("redis store stopping")
	return m.client.Close()
}

// Backend returns the provisioned backend, nil before Provision.
func (m *Module) Backend() *Backend {
	return m.backend
}
