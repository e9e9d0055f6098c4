package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/security"
)

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "warden")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "warden.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
	if DefaultConfigPath() != cfgPath {
		t.Errorf("DefaultConfigPath() = %q, want %q", DefaultConfigPath(), cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	if _, err := ResolveConfigPath(); err == nil {
		t.Error("expected error when no config file found")
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got, want := DefaultDataDir(), "/custom/data/warden"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	home, _ := os.UserHomeDir()
	if got, want := DefaultDataDir(), filepath.Join(home, ".local", "share", "warden"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")

	tests := []struct {
		name   string
		params RunParams
		cfg    config.Config
		want   string
	}{
		{"flag wins", RunParams{DataDir: "/flag"}, config.Config{DataDir: "/cfg"}, "/flag"},
		{"config", RunParams{}, config.Config{DataDir: "/cfg"}, "/cfg"},
		{"default", RunParams{}, config.Config{}, "/xdg/warden"},
	}
	for _, tt := range tests {
		if got := resolveDataDir(tt.params, &tt.cfg); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// No .env in the working directory is fine.
	if err := loadEnv(""); err != nil {
		t.Fatalf("loadEnv without .env: %v", err)
	}

	path := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(path, []byte("WARDEN_TEST_TOKEN=from-file\nWARDEN_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_TEST_TOKEN", "")
	_ = os.Unsetenv("WARDEN_TEST_TOKEN")
	t.Setenv("WARDEN_TEST_KEEP", "from-env")

	if err := loadEnv(path); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if got := os.Getenv("WARDEN_TEST_TOKEN"); got != "from-file" {
		t.Errorf("WARDEN_TEST_TOKEN = %q, want from-file", got)
	}
	if got := os.Getenv("WARDEN_TEST_KEEP"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}

	if err := loadEnv(filepath.Join(dir, "missing.env")); err == nil {
		t.Error("explicit missing env file should fail")
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantSub string
		debug   bool
	}{
		{"text", config.LoggingConfig{Level: "info", Format: "text"}, "msg=hello", false},
		{"json", config.LoggingConfig{Level: "debug", Format: "json"}, `"msg":"hello"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.cfg, security.NewRedactor())
			logger.Debug("debug line")
			logger.Info("hello", "token", "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

			out := buf.String()
			if !strings.Contains(out, tt.wantSub) {
				t.Errorf("output %q missing %q", out, tt.wantSub)
			}
			if strings.Contains(out, "AAAAAAAAAAAAAAAAAAAA") {
				t.Errorf("bot token leaked: %q", out)
			}
			if strings.Contains(out, "debug line") != tt.debug {
				t.Errorf("debug line present = %v, want %v", !tt.debug, tt.debug)
			}
		})
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Run(RunParams{ConfigPath: "/nonexistent/config.yaml"}); err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := Run(RunParams{ConfigPath: path}); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "noversion.yaml")
	if err := os.WriteFile(path, []byte("modules:\n  foo: {}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := Run(RunParams{ConfigPath: path}); err == nil {
		t.Error("expected validation error")
	}
}
