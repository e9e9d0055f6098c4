package openai

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/warden/internal/provider"
)

// Config holds the configuration for the OpenAI provider module.
type Config struct {
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	Timeout     string   `yaml:"timeout"`

	// Roles lists what this provider serves in the chain. "fallback"
	// makes it a backup for FallbackFor (all roles when empty).
	Roles       []string              `yaml:"roles"`
	FallbackFor []string              `yaml:"fallback_for"`
	Health      provider.HealthConfig `yaml:"health"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-3.5-turbo"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if len(c.Roles) == 0 {
		c.Roles = []string{
			string(provider.RoleModeration),
			string(provider.RoleAssistant),
			string(provider.RoleAnnouncement),
		}
	}
}

// parsedTimeout assumes validate has accepted the value.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func (c *Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid timeout %q", c.Timeout))
	}
	for _, r := range append(append([]string(nil), c.Roles...), c.FallbackFor...) {
		if _, ok := provider.ParseRole(r); !ok {
			errs = append(errs, fmt.Errorf("unknown role %q", r))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("provider.openai: %w", err)
	}
	return nil
}
