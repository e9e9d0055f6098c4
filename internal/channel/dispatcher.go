package channel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/warden/pkg/message"
)

// DispatcherService is the service name the outbound Dispatcher is
// registered under.
const DispatcherService = "channel.dispatcher"

// Dispatcher routes outbound messages to the channel named in
// OutboundMessage.Channel.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: make(map[string]Channel)}
}

// Register adds a channel under the given name.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

// Send delivers msg through its channel.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	ch, ok := d.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, msg.Channel)
	}
	return ch.Send(ctx, msg)
}

// AnswerCallback acknowledges a button press on the named channel. Channels
// that do not need acknowledgements are a no-op.
func (d *Dispatcher) AnswerCallback(ctx context.Context, channelName, callbackID, text string) error {
	ch, ok := d.Get(channelName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, channelName)
	}
	if a, ok := ch.(CallbackAnswerer); ok {
		return a.AnswerCallback(ctx, callbackID, text)
	}
	return nil
}

// Channels returns the registered channel names, sorted.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
