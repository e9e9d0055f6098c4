// Package channeltest provides a recording channel for tests.
package channeltest

import (
	"context"
	"sync"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/pkg/message"
)

// MockChannel records sent messages and answered callbacks, and lets tests
// push inbound messages through the installed inbox.
type MockChannel struct {
	Name string

	// SendFunc, if set, is called instead of recording.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error

	mu       sync.Mutex
	inbox    channel.InboxFunc
	sent     []message.OutboundMessage
	answered []string
}

// Compile-time interface guards.
var (
	_ channel.Channel          = (*MockChannel)(nil)
	_ channel.CallbackAnswerer = (*MockChannel)(nil)
)

// New returns a MockChannel registered under name.
func New(name string) *MockChannel {
	return &MockChannel{Name: name}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID("channel." + m.Name),
		New: func() core.Module { return New(m.Name) },
	}
}

// Send records the outbound message.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// SetInbox stores the inbox callback.
func (m *MockChannel) SetInbox(fn channel.InboxFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// AnswerCallback records the callback ID.
func (m *MockChannel) AnswerCallback(_ context.Context, callbackID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

// Deliver pushes msg through the inbox as the platform would.
func (m *MockChannel) Deliver(ctx context.Context, msg message.InboundMessage) error {
	m.mu.Lock()
	fn := m.inbox
	m.mu.Unlock()
	if fn == nil {
		return channel.ErrNoInbox
	}
	if msg.Channel == "" {
		msg.Channel = m.Name
	}
	return fn(ctx, msg)
}

// Sent returns a copy of every recorded message.
func (m *MockChannel) Sent() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]message.OutboundMessage(nil), m.sent...)
}

// Answered returns the acknowledged callback IDs.
func (m *MockChannel) Answered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.answered...)
}
