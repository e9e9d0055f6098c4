// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for warden.
package config

import (
	"time"

	"github.com/flemzord/warden/internal/bot"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/observability"
	"github.com/flemzord/warden/internal/security"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the directory holding the audit log and file stores.
	DataDir string `yaml:"data_dir,omitempty"`

	Logging    LoggingConfig        `yaml:"logging"`
	Telemetry  observability.Config `yaml:"telemetry"`
	Security   SecurityConfig       `yaml:"security"`
	Moderation moderation.Rules     `yaml:"moderation"`
	Bot        bot.Config           `yaml:"bot"`
	Reload     ReloadConfig         `yaml:"reload"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LoggingConfig selects the root slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// SecurityConfig holds rate limiting and audit settings.
type SecurityConfig struct {
	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig              `yaml:"audit"`
}

// AuditConfig controls the JSONL audit trail.
type AuditConfig struct {
	Disabled bool `yaml:"disabled"`
	// Path defaults to audit.jsonl in the data directory.
	Path string `yaml:"path,omitempty"`
}

// ReloadConfig controls live reloading of the moderation rules. SIGHUP
// always triggers a reload; Watch adds polling of the config file.
type ReloadConfig struct {
	Watch        bool          `yaml:"watch"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ApplyDefaults fills every unset section. Load calls it.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.Telemetry.ApplyDefaults()
	c.Moderation.ApplyDefaults()
	c.Bot.ApplyDefaults()
}
