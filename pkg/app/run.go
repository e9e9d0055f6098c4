// Package app provides the entry point shared by the warden commands: it
// loads configuration, wires the moderation core to the loaded modules and
// runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/observability"
	"github.com/flemzord/warden/internal/reload"
	"github.com/flemzord/warden/internal/security"
)

const tracingShutdownTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// EnvFile is loaded into the environment before the configuration is
	// expanded. If empty, ./.env is loaded when present.
	EnvFile string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides both data_dir from the configuration and the
	// default persistent data directory.
	DataDir string
}

// Run blocks until SIGINT or SIGTERM, then shuts every module down.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with the shutdown trigger supplied by the caller.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params)
	if err != nil {
		return err
	}

	redactor := security.NewRedactor()
	logger := NewLogger(os.Stderr, cfg.Logging, redactor)
	logger.Info("configuration loaded", "path", cfgPath, "version", params.Version)

	shutdownTracing, err := observability.Setup(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	rt, err := Build(ctx, BuildParams{
		Config:   cfg,
		DataDir:  resolveDataDir(params, cfg),
		Logger:   logger,
		Redactor: redactor,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Start(); err != nil {
		return err
	}

	watchConfig(ctx, cfg, cfgPath, rt, logger)
	logger.Info("shutdown signal received")
	rt.Stop()
	logger.Info("shutdown complete")
	return nil
}

// watchConfig blocks until ctx is done, reloading the moderation rules on
// SIGHUP and, when enabled, whenever the config file changes.
func watchConfig(ctx context.Context, cfg *config.Config, path string, rt *Runtime, logger *slog.Logger) {
	handler := reload.NewHandler(rt.Policy, config.Resolve(cfg), logger)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var changes <-chan struct{}
	if cfg.Reload.Watch {
		w := reload.NewWatcher(path, cfg.Reload.PollInterval)
		go w.Run(ctx)
		changes = w.Changes()
	}

	for {
		var trigger string
		select {
		case <-ctx.Done():
			return
		case <-hup:
			trigger = "signal"
		case <-changes:
			trigger = "file change"
		}
		if err := handler.HandleReload(ctx, path); err != nil {
			logger.Error("configuration reload failed, keeping current rules", "trigger", trigger, "error", err)
		}
	}
}

// LoadConfig loads the env file, resolves the config path, then loads and
// validates the configuration.
func LoadConfig(params RunParams) (*config.Config, string, error) {
	if err := loadEnv(params.EnvFile); err != nil {
		return nil, "", err
	}

	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, cfgPath, nil
}

// loadEnv loads path into the process environment without overriding
// variables that are already set. A missing default .env is not an error.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func resolveDataDir(params RunParams, cfg *config.Config) string {
	switch {
	case params.DataDir != "":
		return params.DataDir
	case cfg.DataDir != "":
		return cfg.DataDir
	default:
		return DefaultDataDir()
	}
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/warden/warden.yaml → ~/.config/warden/warden.yaml → ./warden.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "warden", "warden.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "warden", "warden.yaml"))
	}

	candidates = append(candidates, "warden.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultConfigPath is where `warden config init` writes by default.
func DefaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "warden", "warden.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "warden", "warden.yaml")
	}
	return "warden.yaml"
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/warden if set, otherwise ~/.local/share/warden per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "warden")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "warden")
}

// NewLogger builds the root logger: a text or JSON handler at the
// configured level, wrapped so secrets never reach the output.
func NewLogger(w io.Writer, cfg config.LoggingConfig, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
