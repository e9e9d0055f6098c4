package file

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
)

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	b := NewBackend(filepath.Join(t.TempDir(), "violations.json"))
	got, err := b.Load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestLoadExistingFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "violations.json")
	if err := os.WriteFile(path, []byte(`{"12345": 2, "678": 0}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewBackend(path).Load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[12345] != 2 || len(got) != 2 {
		t.Errorf("got %v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"1": `},
		{"non-numeric key", `{"alice": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "violations.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := NewBackend(path).Load(t.Context()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "violations.json")
	b := NewBackend(path)

	if err := b.Save(t.Context(), map[int64]int{1: 1, -100: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Save(t.Context(), map[int64]int{1: 0}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := b.Load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[1] != 0 {
		t.Errorf("got %v, want map[1:0]", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the snapshot", len(entries))
	}
}

func TestSaveCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	path := filepath.Join(t.TempDir(), "violations.json")
	if err := NewBackend(path).Save(ctx, map[int64]int{1: 1}); err == nil {
		t.Error("expected error on canceled context")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("file written despite cancellation")
	}
}

func TestModuleProvision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	appCtx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), dir)

	m := &Module{}
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if m.Backend().Path() != filepath.Join(dir, defaultFile) {
		t.Errorf("path = %q", m.Backend().Path())
	}
	svc, ok := appCtx.GetService(moderation.PersistenceService)
	if !ok || svc.(*Backend) != m.Backend() {
		t.Error("persistence service not registered")
	}
}

func TestStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "violations.json")

	first := moderation.NewStore(moderation.StoreConfig{Persistence: NewBackend(path)})
	first.Increment(t.Context(), 42)
	first.Increment(t.Context(), 42)

	second := moderation.NewStore(moderation.StoreConfig{Persistence: NewBackend(path)})
	if err := second.Load(t.Context()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := second.Get(42); got != 2 {
		t.Errorf("count after restart = %d, want 2", got)
	}
}
