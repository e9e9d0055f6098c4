package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/warden/internal/core"
)

// Module namespaces the validator knows about.
const (
	namespaceChannel  = "channel"
	namespaceProvider = "provider"
	namespaceStore    = "store"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures every referenced module ID exists
// in the registry, and that the deployment has a channel and an LLM
// provider and at most one violation store. Embedded sections are
// validated by their own packages.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	counts := make(map[string][]string)
	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
			continue
		}
		ns := core.ModuleID(id).Namespace()
		counts[ns] = append(counts[ns], id)
	}
	if len(cfg.Modules) > 0 {
		if len(counts[namespaceChannel]) == 0 {
			errs = append(errs, errors.New("config: no channel module configured"))
		}
		if len(counts[namespaceProvider]) == 0 {
			errs = append(errs, errors.New("config: no provider module configured"))
		}
	}
	if stores := counts[namespaceStore]; len(stores) > 1 {
		errs = append(errs, fmt.Errorf("config: at most one store module may be configured, got %s", strings.Join(stores, ", ")))
	}

	errs = append(errs, validateLogging(cfg.Logging)...)
	errs = append(errs, validateSecurity(cfg.Security)...)
	if cfg.Reload.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("config: reload.poll_interval must not be negative, got %s", cfg.Reload.PollInterval))
	}

	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := cfg.Moderation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: moderation: %w", err))
	}
	if err := cfg.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", l.Level))
	}
	if l.Format != "text" && l.Format != "json" {
		errs = append(errs, fmt.Errorf("config: logging.format %q must be text or json", l.Format))
	}
	return errs
}

func validateSecurity(sec SecurityConfig) []error {
	var errs []error
	if sec.RateLimit.AuthPerMin < 0 {
		errs = append(errs, errors.New("config: security.rate_limit.auth_per_min must not be negative"))
	}
	if sec.RateLimit.AssistantPerMin < 0 {
		errs = append(errs, errors.New("config: security.rate_limit.assistant_per_min must not be negative"))
	}
	return errs
}
