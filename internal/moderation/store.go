package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Persistence is a durable backend for escalation counters.
type Persistence interface {
	// Load returns the last saved snapshot. A missing snapshot is not an
	// error: implementations return an empty map.
	Load(ctx context.Context) (map[int64]int, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, counts map[int64]int) error
}

// RecordWriter is implemented by backends that can persist a single
// counter without rewriting the whole snapshot.
type RecordWriter interface {
	Put(ctx context.Context, userID int64, count int) error
}

// EscalationStore is the counter surface the policy depends on.
type EscalationStore interface {
	Get(userID int64) int
	Increment(ctx context.Context, userID int64) int
	Escalate(ctx context.Context, userID int64, threshold int) (count int, banned bool)
	Reset(ctx context.Context, userID int64)
}

// Service names used to share escalation state between modules.
const (
	// StoreService is the escalation Store.
	StoreService = "moderation.store"
	// PersistenceService is the Persistence backend provided by a store.* module.
	PersistenceService = "moderation.persistence"
	// TransportService is the Transport of the channel the policy acts through.
	TransportService = "moderation.transport"
	// ObserverService is an extra Observer provided by an events.* module.
	ObserverService = "moderation.observer"
)

const persistTimeout = 5 * time.Second

type counter struct {
	mu    sync.Mutex
	count int
}

// StoreConfig holds the dependencies of a Store.
type StoreConfig struct {
	Persistence Persistence
	Logger      *slog.Logger
	Observer    Observer
}

// Store keeps per-user violation counters in memory and mirrors every
// mutation to its Persistence backend. Mutations for one user are
// serialized by that user's lock; different users never contend.
type Store struct {
	mu       sync.RWMutex
	counters map[int64]*counter

	persist  Persistence
	writer   RecordWriter
	logger   *slog.Logger
	observer Observer

	// saveMu orders backend writes. Full saves hold it exclusively and
	// single-record writes share it, so a flush never lands after a Put
	// with an older snapshot.
	saveMu sync.RWMutex
}

var _ EscalationStore = (*Store)(nil)

// NewStore returns an empty store. A nil Persistence keeps counters in
// memory only.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		counters: make(map[int64]*counter),
		persist:  cfg.Persistence,
		logger:   logger.With("component", "escalation-store"),
		observer: observerOrNop(cfg.Observer),
	}
	if w, ok := cfg.Persistence.(RecordWriter); ok {
		s.writer = w
	}
	return s
}

// Load restores the store from its backend. On failure the store is left
// empty and the error, wrapping ErrPersistenceUnavailable, is returned so
// the caller can decide whether to continue.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	counts, err := s.persist.Load(ctx)
	if err != nil {
		s.observer.PersistenceFailed(err)
		return fmt.Errorf("%w: load: %w", ErrPersistenceUnavailable, err)
	}
	s.Restore(counts)
	s.logger.Info("escalation counters loaded", "users", len(counts))
	return nil
}

// Get returns the current count for userID, 0 if unknown.
func (s *Store) Get(userID int64) int {
	s.mu.RLock()
	c, ok := s.counters[userID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Increment adds one to userID's counter and returns the new value.
func (s *Store) Increment(ctx context.Context, userID int64) int {
	return s.mutate(ctx, userID, func(n int) int { return n + 1 })
}

// Escalate records one violation for userID. When the new count reaches
// threshold the counter is reset to zero in the same critical section and
// banned is true; count is the value that crossed the threshold. Concurrent
// violations by one user therefore ban once per threshold crossing.
func (s *Store) Escalate(ctx context.Context, userID int64, threshold int) (count int, banned bool) {
	s.mutate(ctx, userID, func(n int) int {
		count = n + 1
		if count >= threshold {
			banned = true
			return 0
		}
		return count
	})
	return count, banned
}

// Reset sets userID's counter to zero. The record is kept.
func (s *Store) Reset(ctx context.Context, userID int64) {
	s.mutate(ctx, userID, func(int) int { return 0 })
}

// ResetBy is Reset for callers outside the policy. It reports the reset to
// the store's observer; chatID and by are 0 when no chat or Telegram user
// is involved.
func (s *Store) ResetBy(ctx context.Context, chatID, userID, by int64) {
	s.Reset(ctx, userID)
	s.observer.CounterReset(chatID, userID, by)
}

// Flush writes the full snapshot to the backend. It is serialized with
// every other backend write, so the snapshot it saves is never older than
// a mutation already persisted.
func (s *Store) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	counts := s.Snapshot()
	if err := s.persist.Save(ctx, counts); err != nil {
		err = fmt.Errorf("%w: flush: %w", ErrPersistenceUnavailable, err)
		s.observer.PersistenceFailed(err)
		return err
	}
	s.logger.Debug("escalation counters flushed", "users", len(counts))
	return nil
}

// Snapshot returns a copy of every counter, including zeroed ones.
func (s *Store) Snapshot() map[int64]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int, len(s.counters))
	for id, c := range s.counters {
		c.mu.Lock()
		out[id] = c.count
		c.mu.Unlock()
	}
	return out
}

// Restore replaces every counter with the given snapshot. It does not
// write through to persistence.
func (s *Store) Restore(counts map[int64]int) {
	fresh := make(map[int64]*counter, len(counts))
	for id, n := range counts {
		fresh[id] = &counter{count: n}
	}
	s.mu.Lock()
	s.counters = fresh
	s.mu.Unlock()
}

func (s *Store) entry(userID int64) *counter {
	s.mu.RLock()
	c, ok := s.counters[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[userID]; !ok {
		c = &counter{}
		s.counters[userID] = c
	}
	return c
}

func (s *Store) mutate(ctx context.Context, userID int64, fn func(int) int) int {
	c := s.entry(userID)

	if s.writer != nil {
		// Lock order is saveMu, then the user lock. Single-record writes
		// happen under the user lock so the backend never sees an older
		// value after a newer one.
		s.saveMu.RLock()
		defer s.saveMu.RUnlock()
		c.mu.Lock()
		defer c.mu.Unlock()
		c.count = fn(c.count)
		s.put(ctx, userID, c.count)
		return c.count
	}

	c.mu.Lock()
	c.count = fn(c.count)
	n := c.count
	c.mu.Unlock()

	s.save(ctx)
	return n
}

func (s *Store) put(ctx context.Context, userID int64, count int) {
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.writer.Put(ctx, userID, count); err != nil {
		s.persistFailed(fmt.Errorf("put user %d: %w", userID, err))
	}
}

func (s *Store) save(ctx context.Context) {
	if s.persist == nil {
		return
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.persist.Save(ctx, s.Snapshot()); err != nil {
		s.persistFailed(fmt.Errorf("save: %w", err))
	}
}

func (s *Store) persistFailed(err error) {
	err = fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	s.logger.Warn("escalation counter not persisted", "error", err)
	s.observer.PersistenceFailed(err)
}

// persistContext detaches persistence from request cancellation: a client
// hanging up must not lose a counter write.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
