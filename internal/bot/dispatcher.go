// Package bot routes inbound chat updates: joins get the welcome text,
// static commands and button presses get canned replies, the admin reset
// command goes to the moderation policy, and every other text message is
// moderated and, when clean, answered by the assistant.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/security"
	"github.com/flemzord/warden/pkg/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/flemzord/warden/internal/bot")

// Routes reported to the Recorder.
const (
	RouteJoin      = "join"
	RouteCommand   = "command"
	RouteReset     = "reset"
	RouteCallback  = "callback"
	RouteModerated = "moderated"
	RouteSkipped   = "skipped"
)

// Assistant outcomes reported to the Recorder.
const (
	OutcomeAnswered    = "answered"
	OutcomeFallback    = "fallback"
	OutcomeRateLimited = "rate_limited"
)

// excerptLen bounds how much message text goes into panic logs.
const excerptLen = 80

// Moderator is the moderation policy as seen by the bot.
type Moderator interface {
	HandleMessage(ctx context.Context, msg moderation.Message) moderation.Action
	ResetViolations(ctx context.Context, chatID, invokerID int64, args string) (int64, int, error)
}

// Outbox delivers replies. *channel.Dispatcher implements it.
type Outbox interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
	AnswerCallback(ctx context.Context, channelName, callbackID, text string) error
}

// Recorder receives routing counters. *metrics.Bot implements it.
type Recorder interface {
	Update(route string)
	Assistant(outcome string)
	Panic()
}

type nopRecorder struct{}

func (nopRecorder) Update(string)    {}
func (nopRecorder) Assistant(string) {}
func (nopRecorder) Panic()           {}

// Options configures a Dispatcher. Moderator and Outbox are required. A nil
// Assistant disables free-form answers; a nil Limiter never limits.
type Options struct {
	Config    Config
	Moderator Moderator
	Assistant moderation.Oracle
	Outbox    Outbox
	Limiter   *security.RateLimiter
	Recorder  Recorder
	Logger    *slog.Logger
}

// Dispatcher turns inbound updates into bot behavior. It is safe for
// concurrent use; updates from the same user are handled in arrival order.
type Dispatcher struct {
	config    Config
	moderator Moderator
	assistant moderation.Oracle
	outbox    Outbox
	limiter   *security.RateLimiter
	recorder  Recorder
	logger    *slog.Logger
	lanes     *laneLock
}

// New validates opts and returns a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Moderator == nil {
		return nil, fmt.Errorf("%w: moderator", ErrMissingDependency)
	}
	if opts.Outbox == nil {
		return nil, fmt.Errorf("%w: outbox", ErrMissingDependency)
	}

	cfg := opts.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		config:    cfg,
		moderator: opts.Moderator,
		assistant: opts.Assistant,
		outbox:    opts.Outbox,
		limiter:   opts.Limiter,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		lanes:     newLaneLock(),
	}
	if d.recorder == nil {
		d.recorder = nopRecorder{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if cfg.Assistant.Disabled {
		d.assistant = nil
	}
	return d, nil
}

// Inbox returns HandleInbound as a channel callback.
func (d *Dispatcher) Inbox() channel.InboxFunc {
	return d.HandleInbound
}

// HandleInbound processes one update. Panics are recovered and logged. The
// returned error only reports a failed bot reply; moderation side effects
// are handled and logged by the policy itself.
func (d *Dispatcher) HandleInbound(ctx context.Context, msg message.InboundMessage) (err error) {
	ctx, span := tracer.Start(ctx, "bot.handle_inbound", trace.WithAttributes(
		attribute.String("channel", msg.Channel),
		attribute.String("kind", string(msg.Kind)),
	))
	defer span.End()

	logger := d.logger.With(
		"correlation_id", uuid.NewString(),
		"update_id", msg.ID,
		"chat_id", msg.Chat.ID,
		"user_id", msg.Sender.ID,
	)

	defer func() {
		if r := recover(); r != nil {
			d.recorder.Panic()
			span.SetStatus(codes.Error, "panic")
			logger.Error("update handler panicked",
				"panic", r,
				"excerpt", excerpt(msg.Text),
				"stack", string(debug.Stack()),
			)
			err = nil
		}
	}()

	if msg.Sender.ID != 0 {
		d.lanes.acquire(msg.Sender.ID)
		defer d.lanes.release(msg.Sender.ID)
	}

	route, err := d.route(ctx, logger, msg)
	span.SetAttributes(attribute.String("route", route))
	d.recorder.Update(route)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("reply failed", "route", route, "error", err)
	}
	return err
}

func (d *Dispatcher) route(ctx context.Context, logger *slog.Logger, msg message.InboundMessage) (string, error) {
	switch msg.Kind {
	case message.KindJoin:
		return RouteJoin, d.welcome(ctx, logger, msg)
	case message.KindCallback:
		return RouteCallback, d.callback(ctx, logger, msg)
	case message.KindText:
	default:
		logger.Debug("non-text update skipped", "kind", msg.Kind)
		return RouteSkipped, nil
	}

	if msg.Text == "" {
		logger.Debug("empty message skipped")
		return RouteSkipped, nil
	}

	if name, args, ok := msg.Command(); ok {
		if name == d.config.ResetCommand {
			return RouteReset, d.resetViolations(ctx, logger, msg, args)
		}
		if reply, ok := d.config.Commands[name]; ok {
			logger.Info("command", "command", name)
			return RouteCommand, d.send(ctx, reply.outbound(msg, msg.MessageID))
		}
	}

	action := d.moderator.HandleMessage(ctx, moderation.Message{
		ChatID:    msg.Chat.ID,
		UserID:    msg.Sender.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if action.Kind != moderation.ActionNone {
		return RouteModerated, nil
	}
	return RouteModerated, d.answer(ctx, logger, msg)
}

func (d *Dispatcher) welcome(ctx context.Context, logger *slog.Logger, msg message.InboundMessage) error {
	if d.config.Welcome.Text == "" {
		return nil
	}
	logger.Info("welcoming new members", "count", len(msg.NewMembers))
	return d.send(ctx, d.config.Welcome.outbound(msg, 0))
}

func (d *Dispatcher) callback(ctx context.Context, logger *slog.Logger, msg message.InboundMessage) error {
	if msg.Callback == nil {
		return nil
	}

	var sendErr error
	if reply, ok := d.config.Callbacks[msg.Callback.Data]; ok {
		logger.Info("callback", "data", msg.Callback.Data)
		sendErr = d.send(ctx, reply.outbound(msg, msg.MessageID))
	} else {
		logger.Debug("unknown callback", "data", msg.Callback.Data)
	}

	// The button spinner stops only once the query is answered, whatever
	// happened to the reply.
	if err := d.outbox.AnswerCallback(ctx, msg.Channel, msg.Callback.ID, ""); err != nil {
		logger.Warn("answer callback failed", "error", err)
	}
	return sendErr
}

func (d *Dispatcher) resetViolations(ctx context.Context, logger *slog.Logger, msg message.InboundMessage, args string) error {
	target, count, err := d.moderator.ResetViolations(ctx, msg.Chat.ID, msg.Sender.ID, args)
	switch {
	case errors.Is(err, moderation.ErrNotAuthorized):
		logger.Info("reset command from non-admin ignored")
		return nil
	case errors.Is(err, moderation.ErrBadCommandUsage):
		return d.send(ctx, message.Reply(msg, "Usage: "+d.config.ResetCommand+" <user_id>"))
	case err != nil:
		return err
	}
	logger.Info("violations reset by command", "target", target, "count", count)
	return d.send(ctx, message.Reply(msg, fmt.Sprintf("UserID %d violation count reset.", target)))
}

// answer replies to a clean message with the assistant. Failures fall back
// to the configured apology so the user is never left without an answer.
func (d *Dispatcher) answer(ctx context.Context, logger *slog.Logger, msg message.InboundMessage) error {
	if d.assistant == nil {
		return nil
	}
	if err := d.limiter.Allow(security.KindAssistant, strconv.FormatInt(msg.Sender.ID, 10)); err != nil {
		d.recorder.Assistant(OutcomeRateLimited)
		logger.Info("assistant rate limited")
		return nil
	}

	actx := ctx
	if d.config.Assistant.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, d.config.Assistant.Timeout)
		defer cancel()
	}

	text, err := d.assistant.Complete(actx, d.config.Assistant.SystemPrompt, msg.Text)
	parseMode := d.config.Assistant.ParseMode
	if err != nil || text == "" {
		d.recorder.Assistant(OutcomeFallback)
		logger.Warn("assistant unavailable, sending fallback", "error", err)
		text = d.config.Assistant.Fallback
		parseMode = ""
	} else {
		d.recorder.Assistant(OutcomeAnswered)
	}

	reply := message.Reply(msg, text)
	reply.ParseMode = parseMode
	for _, part := range channel.SplitMessage(reply, d.config.MaxReplyLength) {
		if err := d.send(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, msg message.OutboundMessage) error {
	if err := d.outbox.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrReplyFailed, err)
	}
	return nil
}

func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLen {
		return text
	}
	return string(r[:excerptLen]) + "…"
}
