package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Let the first poll record the initial state.
	time.Sleep(60 * time.Millisecond)
	if err := os.WriteFile(path, []byte("modified content"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change")
	}
}

func TestWatcher_NoChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	select {
	case <-w.Changes():
		t.Error("change reported for an untouched file")
	default:
	}
}

func TestWatcher_MissingFileIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "warden.yaml")
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	select {
	case <-w.Changes():
		t.Error("change reported for a removed file")
	default:
	}
}

func TestWatcher_DefaultInterval(t *testing.T) {
	t.Parallel()

	if w := NewWatcher("x", 0); w.interval != defaultPollInterval {
		t.Errorf("interval = %v, want %v", w.interval, defaultPollInterval)
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	t.Parallel()

	w := NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
