package moderation_test

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/moderation/moderationtest"
)

func newStore(p moderation.Persistence, obs moderation.Observer) *moderation.Store {
	return moderation.NewStore(moderation.StoreConfig{
		Persistence: p,
		Logger:      discardLogger(),
		Observer:    obs,
	})
}

func TestStore_IncrementAndGet(t *testing.T) {
	t.Parallel()
	s := newStore(nil, nil)
	ctx := context.Background()

	if got := s.Get(42); got != 0 {
		t.Fatalf("Get(unknown) = %d, want 0", got)
	}
	for want := 1; want <= 3; want++ {
		if got := s.Increment(ctx, 42); got != want {
			t.Fatalf("Increment() = %d, want %d", got, want)
		}
	}
	if got := s.Get(42); got != 3 {
		t.Errorf("Get() = %d, want 3", got)
	}
	if got := s.Get(7); got != 0 {
		t.Errorf("Get(other) = %d, want 0", got)
	}
}

func TestStore_ResetKeepsRecordAndIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newStore(nil, nil)
	ctx := context.Background()

	s.Increment(ctx, 42)
	s.Increment(ctx, 42)
	s.Reset(ctx, 42)
	s.Reset(ctx, 42)

	if got := s.Get(42); got != 0 {
		t.Errorf("Get() after reset = %d, want 0", got)
	}
	snap := s.Snapshot()
	n, ok := snap[42]
	if !ok || n != 0 {
		t.Errorf("snapshot[42] = %d, %v; want 0, true", n, ok)
	}

	s.Reset(ctx, 99)
	if _, ok := s.Snapshot()[99]; !ok {
		t.Error("reset of unknown user should create a zero record")
	}
}

func TestStore_ConcurrentIncrementsSameUser(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	s := newStore(p, nil)

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment(context.Background(), 1)
		}()
	}
	wg.Wait()

	if got := s.Get(1); got != n {
		t.Errorf("Get() = %d, want %d", got, n)
	}
	if got := p.Data()[1]; got != n {
		t.Errorf("persisted count = %d, want %d", got, n)
	}
}

func TestStore_ConcurrentIncrementsManyUsers(t *testing.T) {
	t.Parallel()
	s := newStore(nil, nil)

	var wg sync.WaitGroup
	for user := int64(1); user <= 10; user++ {
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Increment(context.Background(), user)
			}()
		}
	}
	wg.Wait()

	for user := int64(1); user <= 10; user++ {
		if got := s.Get(user); got != 20 {
			t.Errorf("Get(%d) = %d, want 20", user, got)
		}
	}
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	s := newStore(p, nil)
	ctx := context.Background()

	s.Increment(ctx, 5)
	s.Increment(ctx, 5)
	s.Reset(ctx, 5)

	if got := p.Saves(); got != 3 {
		t.Errorf("saves = %d, want 3", got)
	}
	if n, ok := p.Data()[5]; !ok || n != 0 {
		t.Errorf("persisted[5] = %d, %v; want 0, true", n, ok)
	}
}

func TestStore_PersistenceFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	p.SaveErr = errors.New("disk full")
	obs := &moderationtest.RecordingObserver{}
	s := newStore(p, obs)

	if got := s.Increment(context.Background(), 5); got != 1 {
		t.Errorf("Increment() = %d, want 1", got)
	}
	if got := s.Get(5); got != 1 {
		t.Errorf("Get() = %d, want 1", got)
	}
	if _, _, failures := obs.Snapshot(); failures != 1 {
		t.Errorf("persistence failures = %d, want 1", failures)
	}
}

func TestStore_PersistsAfterRequestCancelled(t *testing.T) {
	t.Parallel()
	w := &recordWriter{}
	s := newStore(w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Increment(ctx, 8)

	if got := w.puts(); len(got) != 1 || got[0] != [2]int64{8, 1} {
		t.Errorf("puts = %v, want [[8 1]]", got)
	}
}

func TestStore_RecordWriterSkipsFullSave(t *testing.T) {
	t.Parallel()
	w := &recordWriter{}
	s := newStore(w, nil)
	ctx := context.Background()

	s.Increment(ctx, 3)
	s.Increment(ctx, 3)
	s.Reset(ctx, 3)

	want := [][2]int64{{3, 1}, {3, 2}, {3, 0}}
	got := w.puts()
	if len(got) != len(want) {
		t.Fatalf("puts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("puts[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if w.saves != 0 {
		t.Errorf("saves = %d, want 0 when Put is available", w.saves)
	}
}

func TestStore_Escalate(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	s := newStore(p, nil)
	ctx := context.Background()

	type step struct {
		count  int
		banned bool
	}
	want := []step{{1, false}, {2, false}, {3, true}, {1, false}}
	for i, w := range want {
		count, banned := s.Escalate(ctx, 42, 3)
		if (step{count, banned}) != w {
			t.Errorf("step %d: Escalate() = (%d, %v), want (%d, %v)", i, count, banned, w.count, w.banned)
		}
	}
	if got := s.Get(42); got != 1 {
		t.Errorf("Get() = %d, want 1", got)
	}
	if got := p.Data()[42]; got != 1 {
		t.Errorf("persisted = %d, want 1", got)
	}
}

func TestStore_EscalateAboveThresholdBans(t *testing.T) {
	t.Parallel()
	s := newStore(nil, nil)
	s.Restore(map[int64]int{42: 4})

	count, banned := s.Escalate(context.Background(), 42, 3)
	if count != 5 || !banned {
		t.Errorf("Escalate() = (%d, %v), want (5, true)", count, banned)
	}
	if got := s.Get(42); got != 0 {
		t.Errorf("Get() = %d, want 0", got)
	}
}

func TestStore_ResetByReportsReset(t *testing.T) {
	t.Parallel()
	obs := &moderationtest.RecordingObserver{}
	s := newStore(nil, obs)
	s.Restore(map[int64]int{42: 2})

	s.ResetBy(context.Background(), 0, 42, 0)

	if got := s.Get(42); got != 0 {
		t.Errorf("Get() = %d, want 0", got)
	}
	if len(obs.Resets) != 1 || obs.Resets[0] != 42 {
		t.Errorf("resets = %v, want [42]", obs.Resets)
	}
}

func TestStore_FlushNeverOverwritesNewerSave(t *testing.T) {
	t.Parallel()
	backend := newGatedBackend(map[int64]int{7: 1})
	s := newStore(backend, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	flushed := make(chan error, 1)
	go func() { flushed <- s.Flush(context.Background()) }()
	<-backend.entered

	incremented := make(chan struct{})
	go func() {
		s.Increment(context.Background(), 7)
		close(incremented)
	}()
	// The in-memory update lands while the flush still holds {7: 1}.
	for s.Get(7) != 2 {
		time.Sleep(time.Millisecond)
	}
	close(backend.release)

	if err := <-flushed; err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	<-incremented

	if got := backend.data()[7]; got != 2 {
		t.Errorf("persisted = %d, want 2 (in memory %d)", got, s.Get(7))
	}
}

func TestStore_FlushNeverOverwritesNewerPut(t *testing.T) {
	t.Parallel()
	backend := newGatedBackend(map[int64]int{7: 1})
	s := newStore(&gatedRecordBackend{backend}, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	flushed := make(chan error, 1)
	go func() { flushed <- s.Flush(context.Background()) }()
	<-backend.entered

	incremented := make(chan struct{})
	go func() {
		s.Increment(context.Background(), 7)
		close(incremented)
	}()
	// Give the increment a chance to race the blocked flush.
	time.Sleep(10 * time.Millisecond)
	close(backend.release)

	if err := <-flushed; err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	<-incremented

	if got := backend.data()[7]; got != 2 || s.Get(7) != 2 {
		t.Errorf("persisted = %d, in memory = %d, want 2 and 2", got, s.Get(7))
	}
}

func TestStore_FlushFailure(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	p.SaveErr = errors.New("disk full")
	obs := &moderationtest.RecordingObserver{}
	s := newStore(p, obs)

	err := s.Flush(context.Background())
	if !errors.Is(err, moderation.ErrPersistenceUnavailable) {
		t.Fatalf("Flush() error = %v, want ErrPersistenceUnavailable", err)
	}
	if _, _, failures := obs.Snapshot(); failures != 1 {
		t.Errorf("persistence failures = %d, want 1", failures)
	}
}

func TestStore_FlushWithoutPersistence(t *testing.T) {
	t.Parallel()
	if err := newStore(nil, nil).Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v, want nil", err)
	}
}

func TestStore_LoadAndRestore(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(map[int64]int{12345: 2, 7: 0})
	s := newStore(p, nil)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := s.Get(12345); got != 2 {
		t.Errorf("Get(12345) = %d, want 2", got)
	}
	if got := len(s.Snapshot()); got != 2 {
		t.Errorf("snapshot size = %d, want 2", got)
	}

	s.Restore(map[int64]int{1: 1})
	if got := s.Get(12345); got != 0 {
		t.Errorf("Get(12345) after Restore = %d, want 0", got)
	}
}

func TestStore_LoadFailure(t *testing.T) {
	t.Parallel()
	p := moderationtest.NewMemoryPersistence(nil)
	p.LoadErr = errors.New("corrupt file")
	s := newStore(p, nil)

	err := s.Load(context.Background())
	if !errors.Is(err, moderation.ErrPersistenceUnavailable) {
		t.Fatalf("Load() error = %v, want ErrPersistenceUnavailable", err)
	}
	if got := len(s.Snapshot()); got != 0 {
		t.Errorf("snapshot size = %d, want 0", got)
	}
}

// recordWriter implements both Persistence and RecordWriter and fails
// Put when the context is already done.
type recordWriter struct {
	mu    sync.Mutex
	log   [][2]int64
	saves int
}

func (w *recordWriter) Load(context.Context) (map[int64]int, error) { return map[int64]int{}, nil }

func (w *recordWriter) Save(context.Context, map[int64]int) error {
	w.mu.Lock()
	w.saves++
	w.mu.Unlock()
	return nil
}

func (w *recordWriter) Put(ctx context.Context, userID int64, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	w.log = append(w.log, [2]int64{userID, int64(count)})
	w.mu.Unlock()
	return nil
}

func (w *recordWriter) puts() [][2]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][2]int64(nil), w.log...)
}

// gatedBackend blocks its first Save until release is closed.
type gatedBackend struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	counts map[int64]int
}

func newGatedBackend(initial map[int64]int) *gatedBackend {
	return &gatedBackend{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		counts:  maps.Clone(initial),
	}
}

func (g *gatedBackend) Load(context.Context) (map[int64]int, error) {
	return g.data(), nil
}

func (g *gatedBackend) Save(_ context.Context, counts map[int64]int) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.mu.Lock()
	g.counts = maps.Clone(counts)
	g.mu.Unlock()
	return nil
}

func (g *gatedBackend) data() map[int64]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.counts)
}

// gatedRecordBackend adds RecordWriter to gatedBackend.
type gatedRecordBackend struct {
	*gatedBackend
}

func (g *gatedRecordBackend) Put(_ context.Context, userID int64, count int) error {
	g.mu.Lock()
	g.counts[userID] = count
	g.mu.Unlock()
	return nil
}
