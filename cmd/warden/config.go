package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/security"
	"github.com/flemzord/warden/pkg/app"
)

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(flags), configInitCmd(flags))
	return cmd
}

func configCheckCmd(flags *globalFlags) *cobra.Command {
	var printCfg bool
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate a configuration file and provision its modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := flags.params()
			if len(args) == 1 {
				params.ConfigPath = args[0]
			}
			return checkConfig(cmd.OutOrStdout(), cmd.ErrOrStderr(), params, printCfg)
		},
	}
	cmd.Flags().BoolVar(&printCfg, "print", false, "Print the expanded configuration with secrets redacted")
	return cmd
}

// checkConfig loads and validates the configuration, then provisions every
// module without starting any. Nothing connects to Telegram or the LLM.
func checkConfig(out, logw io.Writer, params app.RunParams, printCfg bool) error {
	cfg, path, err := app.LoadConfig(params)
	if err != nil {
		return err
	}

	// Store modules create their files on provision; keep them out of the
	// real data directory.
	scratch, err := os.MkdirTemp("", "warden-check-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	logger := app.NewLogger(logw, config.LoggingConfig{Level: "warn", Format: "text"}, security.NewRedactor())
	appCtx := core.NewAppContext(logger, scratch).WithModuleConfigs(cfg.Modules)
	a := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := a.LoadModules(ids); err != nil {
		return err
	}
	a.Close()

	fmt.Fprintf(out, "Configuration valid: %s (%d modules)\n", path, len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}

	if printCfg {
		fmt.Fprintln(out)
		return printRedacted(out, cfg)
	}
	return nil
}

// printRedacted round-trips cfg through a generic map so the redactor can
// walk every string value, module blocks included.
func printRedacted(w io.Writer, cfg *config.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("re-read config: %w", err)
	}
	security.NewRedactor().RedactMap(tree)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return err
	}
	return enc.Close()
}

// Store backends offered by config init.
const (
	storeNone   = "none"
	storeFile   = "file"
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

// initAnswers collects the config init choices. Empty secrets are written
// as environment references.
type initAnswers struct {
	TelegramToken    string
	Mode             string
	WebhookURL       string
	OpenAIKey        string
	Model            string
	Store            string
	Announcements    bool
	AnnouncementChat string
	Timezone         string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Mode:  "polling",
		Model: "gpt-3.5-turbo",
		Store: storeFile,
	}
}

func configInitCmd(flags *globalFlags) *cobra.Command {
	var (
		force          bool
		nonInteractive bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = app.DefaultConfigPath()
			}

			answers := defaultAnswers()
			if !nonInteractive {
				if err := runInitForm(cmd.Context(), &answers); err != nil {
					return err
				}
			}
			if err := writeConfig(path, answers, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Check it with: warden config check "+path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Write defaults without prompting")
	return cmd
}

func runInitForm(ctx context.Context, a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Leave empty to read TELEGRAM_BOT_TOKEN from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&a.TelegramToken),
			huh.NewSelect[string]().
				Title("Update mode").
				Options(
					huh.NewOption("Long polling", "polling"),
					huh.NewOption("Webhook", "webhook"),
				).
				Value(&a.Mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.com/webhooks/telegram").
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") {
						return errors.New("must be an https:// URL")
					}
					return nil
				}).
				Value(&a.WebhookURL),
		).WithHideFunc(func() bool { return a.Mode != "webhook" }),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API key").
				Description("Leave empty to read OPENAI_API_KEY from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&a.OpenAIKey),
			huh.NewInput().
				Title("Model").
				Value(&a.Model),
			huh.NewSelect[string]().
				Title("Violation store").
				Options(
					huh.NewOption("JSON file", storeFile),
					huh.NewOption("SQLite", storeSQLite),
					huh.NewOption("Redis", storeRedis),
					huh.NewOption("Memory only", storeNone),
				).
				Value(&a.Store),
			huh.NewConfirm().
				Title("Post scheduled announcements?").
				Value(&a.Announcements),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Announcement chat").
				Description("Numeric chat ID or @username.").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("chat is required")
					}
					return nil
				}).
				Value(&a.AnnouncementChat),
			huh.NewInput().
				Title("Time zone").
				Placeholder("Europe/Paris").
				Value(&a.Timezone),
		).WithHideFunc(func() bool { return !a.Announcements }),
	)
	return form.RunWithContext(ctx)
}

func writeConfig(path string, a initAnswers, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	data, err := renderConfig(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	// The file may hold a bot token.
	return os.WriteFile(path, data, 0o600)
}

type initFile struct {
	Version string            `yaml:"version"`
	Logging map[string]string `yaml:"logging"`
	Modules map[string]any    `yaml:"modules"`
}

// renderConfig builds the YAML document for a. Missing secrets become
// ${VAR} references expanded by config.Load.
func renderConfig(a initAnswers) ([]byte, error) {
	if a.Mode == "" {
		a.Mode = "polling"
	}

	telegram := map[string]any{
		"token": orEnv(a.TelegramToken, "TELEGRAM_BOT_TOKEN"),
		"mode":  a.Mode,
	}
	modules := map[string]any{
		"channel.telegram": telegram,
		"provider.openai": map[string]any{
			"api_key": orEnv(a.OpenAIKey, "OPENAI_API_KEY"),
			"model":   orDefault(a.Model, "gpt-3.5-turbo"),
			"roles":   []string{"moderation", "assistant"},
		},
	}

	switch a.Mode {
	case "polling":
	case "webhook":
		if a.WebhookURL == "" {
			return nil, errors.New("webhook mode needs a webhook URL")
		}
		telegram["webhook_url"] = a.WebhookURL
		telegram["webhook_secret"] = "${TELEGRAM_WEBHOOK_SECRET:-}"
		modules["gateway.http"] = map[string]any{"bind": "0.0.0.0:8080"}
	default:
		return nil, fmt.Errorf("unknown mode %q", a.Mode)
	}

	switch a.Store {
	case storeNone:
	case storeFile:
		modules["store.file"] = map[string]any{}
	case storeSQLite:
		modules["store.sqlite"] = map[string]any{}
	case storeRedis:
		modules["store.redis"] = map[string]any{"addr": "${REDIS_ADDR:-localhost:6379}"}
	default:
		return nil, fmt.Errorf("unknown store %q", a.Store)
	}

	if a.Announcements {
		if a.AnnouncementChat == "" {
			return nil, errors.New("announcements need a chat")
		}
		ann := map[string]any{
			"channel": "channel.telegram",
			"chat":    a.AnnouncementChat,
		}
		if a.Timezone != "" {
			ann["timezone"] = a.Timezone
		}
		modules["cron.announcements"] = ann
	}

	out, err := yaml.Marshal(initFile{
		Version: "1",
		Logging: map[string]string{"level": "info", "format": "text"},
		Modules: modules,
	})
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return append([]byte("# Generated by warden config init.\n"), out...), nil
}

func orEnv(v, env string) string {
	if v != "" {
		return v
	}
	return "${" + env + "}"
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
