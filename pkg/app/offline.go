package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/flemzord/warden/internal/config"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/security"
)

// ErrNoStore is returned when the configuration loads no store.* module.
var ErrNoStore = errors.New("no store module configured")

// ViolationStore gives the CLI direct access to the configured counter
// backend. Only the store.* module is loaded: no channel connects and no
// provider is called.
type ViolationStore struct {
	persist moderation.Persistence
	app     *core.App
}

// OpenViolationStore loads the configuration named by params and
// provisions its store module. Logs go to logw.
func OpenViolationStore(params RunParams, logw io.Writer) (*ViolationStore, error) {
	cfg, _, err := LoadConfig(params)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(logw, config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}, security.NewRedactor())
	appCtx := core.NewAppContext(logger, resolveDataDir(params, cfg)).WithModuleConfigs(cfg.Modules)

	ids := core.InNamespace(config.Resolve(cfg), "store")
	if len(ids) == 0 {
		return nil, ErrNoStore
	}

	a := core.NewApp(appCtx)
	if err := a.LoadModules(ids); err != nil {
		return nil, err
	}

	svc, ok := appCtx.GetService(moderation.PersistenceService)
	persist, _ := svc.(moderation.Persistence)
	if !ok || persist == nil {
		a.Close()
		return nil, fmt.Errorf("%s did not register a persistence backend", ids[0])
	}
	return &ViolationStore{persist: persist, app: a}, nil
}

// Record is one user's counter.
type Record struct {
	UserID int64
	Count  int
}

// List returns every stored counter, highest count first then by user ID.
// With activeOnly, zeroed counters are left out.
func (s *ViolationStore) List(ctx context.Context, activeOnly bool) ([]Record, error) {
	counts, err := s.persist.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(counts))
	for _, id := range slices.Sorted(maps.Keys(counts)) {
		if activeOnly && counts[id] == 0 {
			continue
		}
		out = append(out, Record{UserID: id, Count: counts[id]})
	}
	slices.SortStableFunc(out, func(a, b Record) int { return b.Count - a.Count })
	return out, nil
}

// Reset zeroes userID's counter and returns its previous value. The record
// is kept, as a chat reset does.
func (s *ViolationStore) Reset(ctx context.Context, userID int64) (int, error) {
	counts, err := s.persist.Load(ctx)
	if err != nil {
		return 0, err
	}
	prev := counts[userID]

	if w, ok := s.persist.(moderation.RecordWriter); ok {
		return prev, w.Put(ctx, userID, 0)
	}
	counts[userID] = 0
	return prev, s.persist.Save(ctx, counts)
}

// Close releases the store module.
func (s *ViolationStore) Close() {
	s.app.Close()
}
