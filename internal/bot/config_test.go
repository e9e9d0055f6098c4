package bot

import (
	"errors"
	"testing"

	"github.com/flemzord/warden/pkg/message"
	"gopkg.in/yaml.v3"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, name := range []string{"/start", "/askmeanything", "/rules", "/rewards"} {
		if _, ok := cfg.Commands[name]; !ok {
			t.Errorf("default command %s missing", name)
		}
	}
	for _, data := range []string{"what_is_solium", "ask_question", "fun_fact", "try_fun"} {
		if _, ok := cfg.Callbacks[data]; !ok {
			t.Errorf("default callback %s missing", data)
		}
	}
	if cfg.ResetCommand != "/resetviolations" {
		t.Errorf("ResetCommand = %q", cfg.ResetCommand)
	}
	if cfg.Assistant.Fallback != "Sorry, I can't answer right now." {
		t.Errorf("Fallback = %q", cfg.Assistant.Fallback)
	}
	if cfg.MaxReplyLength != 4096 {
		t.Errorf("MaxReplyLength = %d", cfg.MaxReplyLength)
	}
}

func TestConfig_FromYAML(t *testing.T) {
	t.Parallel()

	const doc = `
welcome:
  text: "Hi there"
commands:
  Help:
    text: "Ask away"
    buttons:
      - - text: "Site"
          url: "https://example.org"
reset_command: "Pardon"
assistant:
  fallback: "Try later"
  timeout: 5s
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Welcome.Text != "Hi there" {
		t.Errorf("Welcome = %q", cfg.Welcome.Text)
	}
	if len(cfg.Commands) != 1 {
		t.Errorf("configured commands should replace the defaults, got %d", len(cfg.Commands))
	}
	help, ok := cfg.Commands["/help"]
	if !ok {
		t.Fatalf("command keys not normalized: %v", cfg.Commands)
	}
	if help.Buttons[0][0].URL != "https://example.org" {
		t.Errorf("buttons = %+v", help.Buttons)
	}
	if cfg.ResetCommand != "/pardon" {
		t.Errorf("ResetCommand = %q", cfg.ResetCommand)
	}
	if cfg.Assistant.Fallback != "Try later" || cfg.Assistant.SystemPrompt == "" {
		t.Errorf("assistant = %+v", cfg.Assistant)
	}
	if len(cfg.Callbacks) == 0 {
		t.Error("callbacks should keep their defaults")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty command text", func(c *Config) {
			c.Commands["/help"] = Reply{}
		}},
		{"button with both targets", func(c *Config) {
			c.Commands["/help"] = Reply{Text: "x", Buttons: [][]message.Button{{{Text: "b", CallbackData: "d", URL: "https://x"}}}}
		}},
		{"button without target", func(c *Config) {
			c.Callbacks["d"] = Reply{Text: "x", Buttons: [][]message.Button{{{Text: "b"}}}}
		}},
		{"callback data too long", func(c *Config) {
			c.Callbacks[string(make([]byte, 65))] = Reply{Text: "x"}
		}},
		{"command shadows reset", func(c *Config) {
			c.Commands["/resetviolations"] = Reply{Text: "x"}
		}},
		{"reply too long", func(c *Config) {
			c.MaxReplyLength = 5000
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
