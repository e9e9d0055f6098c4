// Package moderationtest provides test doubles for the moderation package.
package moderationtest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/flemzord/warden/internal/moderation"
)

// MockOracle is a configurable test double for moderation.Oracle.
// A nil CompleteFunc answers "NO". Safe for concurrent use.
type MockOracle struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	mu      sync.Mutex
	calls   int
	prompts []string
}

// Complete delegates to CompleteFunc and records the prompt.
func (m *MockOracle) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, userPrompt)
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		return "NO", nil
	}
	return m.CompleteFunc(ctx, systemPrompt, userPrompt)
}

// Calls returns how many times Complete was invoked.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every user prompt seen so far.
func (m *MockOracle) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Answer returns an oracle that always responds with resp.
func Answer(resp string) *MockOracle {
	return &MockOracle{CompleteFunc: func(context.Context, string, string) (string, error) {
		return resp, nil
	}}
}

// Fail returns an oracle that always fails with err.
func Fail(err error) *MockOracle {
	return &MockOracle{CompleteFunc: func(context.Context, string, string) (string, error) {
		return "", err
	}}
}

// Call is one recorded transport side effect.
type Call struct {
	Op        string
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
}

// MockTransport records side effects. Admins lists admin user IDs; the
// *Err fields make the matching call fail. Safe for concurrent use.
type MockTransport struct {
	Admins    map[int64]bool
	AdminErr  error
	SendErr   error
	DeleteErr error
	BanErr    error
	SendDelay time.Duration
	BanDelay  time.Duration

	mu    sync.Mutex
	calls []Call
}

func (m *MockTransport) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// IsAdmin reports whether userID is listed in Admins.
func (m *MockTransport) IsAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	m.record(Call{Op: "is_admin", ChatID: chatID, UserID: userID})
	if m.AdminErr != nil {
		return false, m.AdminErr
	}
	return m.Admins[userID], nil
}

// SendMessage records a reply.
func (m *MockTransport) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	if m.SendDelay > 0 {
		select {
		case <-time.After(m.SendDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.record(Call{Op: "send_message", ChatID: chatID, MessageID: replyTo, Text: text})
	return m.SendErr
}

// DeleteMessage records a deletion.
func (m *MockTransport) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	m.record(Call{Op: "delete_message", ChatID: chatID, MessageID: messageID})
	return m.DeleteErr
}

// BanUser records a ban.
func (m *MockTransport) BanUser(ctx context.Context, chatID, userID int64) error {
	if m.BanDelay > 0 {
		select {
		case <-time.After(m.BanDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.record(Call{Op: "ban_user", ChatID: chatID, UserID: userID})
	return m.BanErr
}

// Calls returns a copy of every recorded call.
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Ops returns the recorded operation names in order, excluding admin lookups.
func (m *MockTransport) Ops() []string {
	var ops []string
	for _, c := range m.Calls() {
		if c.Op != "is_admin" {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// MemoryPersistence is an in-memory moderation.Persistence.
type MemoryPersistence struct {
	LoadErr error
	SaveErr error

	mu    sync.Mutex
	data  map[int64]int
	saves int
}

// NewMemoryPersistence returns a backend pre-filled with data.
func NewMemoryPersistence(data map[int64]int) *MemoryPersistence {
	return &MemoryPersistence{data: maps.Clone(data)}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryPersistence) Load(context.Context) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := maps.Clone(m.data)
	if out == nil {
		out = map[int64]int{}
	}
	return out, nil
}

// Save replaces the stored snapshot.
func (m *MemoryPersistence) Save(_ context.Context, counts map[int64]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = maps.Clone(counts)
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryPersistence) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Data returns a copy of the stored snapshot.
func (m *MemoryPersistence) Data() map[int64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data)
}

// RecordingObserver counts events. Safe for concurrent use.
type RecordingObserver struct {
	moderation.NopObserver

	mu          sync.Mutex
	Reasons     []moderation.Reason
	Actions     []moderation.Action
	Resets      []int64
	SideEffects []string
	Persistence int
}

func (o *RecordingObserver) Classified(reason moderation.Reason, _ moderation.Verdict, _ time.Duration) {
	o.mu.Lock()
	o.Reasons = append(o.Reasons, reason)
	o.mu.Unlock()
}

func (o *RecordingObserver) ActionTaken(_ moderation.Message, a moderation.Action) {
	o.mu.Lock()
	o.Actions = append(o.Actions, a)
	o.mu.Unlock()
}

func (o *RecordingObserver) CounterReset(_, userID, _ int64) {
	o.mu.Lock()
	o.Resets = append(o.Resets, userID)
	o.mu.Unlock()
}

func (o *RecordingObserver) SideEffectFailed(op string, _ error) {
	o.mu.Lock()
	o.SideEffects = append(o.SideEffects, op)
	o.mu.Unlock()
}

func (o *RecordingObserver) PersistenceFailed(error) {
	o.mu.Lock()
	o.Persistence++
	o.mu.Unlock()
}

// Snapshot returns copies of the recorded reasons and side-effect failures.
func (o *RecordingObserver) Snapshot() (reasons []moderation.Reason, sideEffects []string, persistence int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]moderation.Reason(nil), o.Reasons...), append([]string(nil), o.SideEffects...), o.Persistence
}

// Interface guards.
var (
	_ moderation.Oracle      = (*MockOracle)(nil)
	_ moderation.Transport   = (*MockTransport)(nil)
	_ moderation.Persistence = (*MemoryPersistence)(nil)
	_ moderation.Observer    = (*RecordingObserver)(nil)
)
