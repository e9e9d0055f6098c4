package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/flemzord/warden/internal/moderation"
)

var _ moderation.Persistence = (*Backend)(nil)

// Backend stores the counter snapshot as a JSON object keyed by the
// decimal user ID, e.g. {"12345": 2}.
type Backend struct {
	path string
	mu   sync.Mutex
}

// NewBackend returns a Backend writing to path.
func NewBackend(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the snapshot file path.
func (b *Backend) Path() string {
	return b.path
}

// Load implements moderation.Persistence. A missing file is an empty
// snapshot.
func (b *Backend) Load(_ context.Context) (map[int64]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[int64]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", b.path, err)
	}

	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("file: decode %s: %w", b.path, err)
	}

	counts := make(map[int64]int, len(raw))
	for key, n := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("file: invalid user id %q: %w", key, err)
		}
		counts[id] = n
	}
	return counts, nil
}

// Save implements moderation.Persistence. The snapshot is written to a
// temporary file in the same directory and renamed over the old one, so
// a crash never leaves a truncated file behind.
func (b *Backend) Save(ctx context.Context, counts map[int64]int) error {
	raw := make(map[string]int, len(counts))
	for id, n := range counts {
		raw[strconv.FormatInt(id, 10)] = n
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("file: encode: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("file: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".violations-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close temp: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("file: replace %s: %w", b.path, err)
	}
	return nil
}
