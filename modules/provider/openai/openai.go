// Package openai implements the provider.openai module: chat completions
// against the OpenAI API or any server that speaks the same protocol.
package openai

import (
	"log/slog"
	"net/http"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Member        = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
)

// Provider implements the OpenAI Chat Completions API as a warden module.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.client = &http.Client{Timeout: p.config.parsedTimeout()}
	ctx.RegisterService("provider.openai", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// ChainEntries implements provider.Member.
func (p *Provider) ChainEntries() []provider.ChainEntry {
	var fallbackFor []provider.Role
	for _, r := range p.config.FallbackFor {
		role, _ := provider.ParseRole(r)
		fallbackFor = append(fallbackFor, role)
	}

	entries := make([]provider.ChainEntry, 0, len(p.config.Roles))
	for _, r := range p.config.Roles {
		role, _ := provider.ParseRole(r)
		entries = append(entries, provider.ChainEntry{
			Name:        "openai/" + p.config.Model + "/" + r,
			Provider:    p,
			Role:        role,
			Health:      p.config.Health,
			FallbackFor: fallbackFor,
		})
	}
	return entries
}
