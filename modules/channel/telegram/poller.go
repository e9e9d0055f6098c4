package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/warden/internal/channel"
	"golang.org/x/sync/errgroup"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller implements long-polling for receiving Telegram updates. Updates
// are handled concurrently by at most config.Workers goroutines; when all
// workers are busy the loop stops fetching.
type Poller struct {
	client      *Client
	inbox       channel.InboxFunc
	allowList   *channel.AllowList
	logger      *slog.Logger
	channelName string
	config      Config

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller.
func NewPoller(client *Client, inbox channel.InboxFunc, allowList *channel.AllowList, logger *slog.Logger, channelName string, config Config) *Poller {
	return &Poller{
		client:      client,
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		channelName: channelName,
		config:      config,
		done:        make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop stops fetching and waits for in-flight updates to finish, or for ctx
// to expire. It is safe to call Stop multiple times.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop runs the long-polling loop until ctx is cancelled.
func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	workers := new(errgroup.Group)
	workers.SetLimit(max(p.config.Workers, 1))
	defer func() { _ = workers.Wait() }()

	// Stop does not cancel in-flight updates; its deadline bounds the wait.
	handlerCtx := context.WithoutCancel(ctx)

	var offset int
	var consecutiveErrors int

	for ctx.Err() == nil {
		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.config.PollingTimeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", errorPauseDuration,
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for _, update := range updates {
			offset = update.UpdateID + 1
			workers.Go(func() error {
				p.handleUpdate(handlerCtx, &update)
				return nil
			})
		}
	}
}

// handleUpdate processes a single update.
func (p *Poller) handleUpdate(ctx context.Context, update *Update) {
	msg, err := convertInbound(update, p.channelName)
	if err != nil {
		p.logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
		return
	}

	if !p.allowList.IsAllowed(msg) {
		p.logger.Debug("update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return
	}

	if err := p.inbox(ctx, msg); err != nil {
		p.logger.Error("failed to deliver update to inbox",
			"update_id", update.UpdateID,
			"error", err,
		)
	}
}
