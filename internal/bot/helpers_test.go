package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/pkg/message"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOutbox records outbound messages and callback answers.
type fakeOutbox struct {
	sendErr error

	mu       sync.Mutex
	sent     []message.OutboundMessage
	answered []string
}

func (o *fakeOutbox) Send(_ context.Context, msg message.OutboundMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sendErr != nil {
		return o.sendErr
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *fakeOutbox) AnswerCallback(_ context.Context, _, callbackID, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.answered = append(o.answered, callbackID)
	return nil
}

func (o *fakeOutbox) messages() []message.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]message.OutboundMessage(nil), o.sent...)
}

// fakeModerator returns a fixed action and reset result.
type fakeModerator struct {
	action   moderation.Action
	resetErr error
	panics   bool

	mu      sync.Mutex
	handled []moderation.Message
	resets  []string
}

func (m *fakeModerator) HandleMessage(_ context.Context, msg moderation.Message) moderation.Action {
	if m.panics {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, msg)
	return m.action
}

func (m *fakeModerator) ResetViolations(_ context.Context, _, _ int64, args string) (int64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, args)
	if m.resetErr != nil {
		return 0, 0, m.resetErr
	}
	id, err := moderation.ParseUserID(args)
	return id, 0, err
}

func (m *fakeModerator) handledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handled)
}

// countingRecorder tallies routes and outcomes.
type countingRecorder struct {
	mu       sync.Mutex
	routes   map[string]int
	outcomes map[string]int
	panics   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{routes: map[string]int{}, outcomes: map[string]int{}}
}

func (r *countingRecorder) Update(route string) {
	r.mu.Lock()
	r.routes[route]++
	r.mu.Unlock()
}

func (r *countingRecorder) Assistant(outcome string) {
	r.mu.Lock()
	r.outcomes[outcome]++
	r.mu.Unlock()
}

func (r *countingRecorder) Panic() {
	r.mu.Lock()
	r.panics++
	r.mu.Unlock()
}

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

const (
	groupID = int64(-100500)
	userID  = int64(42)
)

func textUpdate(text string) message.InboundMessage {
	return message.InboundMessage{
		ID:        "1",
		MessageID: 77,
		Channel:   "telegram",
		Kind:      message.KindText,
		Sender:    message.Sender{ID: userID},
		Chat:      message.Chat{ID: groupID, Type: message.ChatGroup},
		Text:      text,
	}
}
