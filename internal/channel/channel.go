// Package channel defines the bridge between messaging platforms and the
// bot: the Channel interface, outbound dispatch by channel name, message
// chunking, and chat allow-lists.
package channel

import (
	"context"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/pkg/message"
)

// InboxFunc receives inbound messages from a channel. Webhook channels call
// it synchronously from the request goroutine; polling channels may call it
// from a worker pool.
type InboxFunc func(ctx context.Context, msg message.InboundMessage) error

// Channel is implemented by every messaging platform module.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox installs the inbound callback. It is called during wiring,
	// before Start.
	SetInbox(fn InboxFunc)
}

// CallbackAnswerer is implemented by channels whose button presses must be
// acknowledged.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
