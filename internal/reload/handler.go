package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/moderation"
)

// RulesTarget accepts a new moderation rule set. *moderation.Policy
// implements it.
type RulesTarget interface {
	UpdateRules(rules moderation.Rules) error
}

// Handler reloads the configuration file and applies its moderation rules.
// Module changes are not applied: they need a restart.
type Handler struct {
	target  RulesTarget
	modules []string
	logger  *slog.Logger
}

// NewHandler returns a Handler for target. modules is the resolved module
// list the process started with.
func NewHandler(target RulesTarget, modules []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		target:  target,
		modules: slices.Clone(modules),
		logger:  logger.With("component", "reload"),
	}
}

// HandleReload loads and validates path, then applies its rules. The rules
// in effect are left untouched on any error.
func (h *Handler) HandleReload(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	if ids := config.Resolve(cfg); !slices.Equal(ids, h.modules) {
		h.logger.Warn("module list changed, restart to apply", "running", h.modules, "configured", ids)
	}

	if err := h.target.UpdateRules(cfg.Moderation); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	h.logger.Info("configuration reloaded", "path", path)
	return nil
}
