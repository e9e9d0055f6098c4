package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Transport is the chat-platform surface the policy acts through.
type Transport interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	BanUser(ctx context.Context, chatID, userID int64) error
}

// PolicyConfig holds the dependencies of a Policy.
type PolicyConfig struct {
	Classifier *Classifier
	Store      EscalationStore
	Transport  Transport
	Rules      Rules
	Logger     *slog.Logger
	Observer   Observer
}

// Policy turns verdicts into warn, delete and ban actions.
type Policy struct {
	classifier *Classifier
	store      EscalationStore
	transport  Transport
	ladder     atomic.Pointer[ladder]
	logger     *slog.Logger
	observer   Observer
}

// ladder is the escalation part of Rules.
type ladder struct {
	threshold int
	warning   *template.Template
	ban       *template.Template
}

func newLadder(rules Rules) (*ladder, error) {
	rules.ApplyDefaults()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("moderation: invalid rules: %w", err)
	}
	warning, _ := parseNotice("warning", rules.WarningTemplate)
	ban, _ := parseNotice("ban", rules.BanTemplate)
	return &ladder{threshold: rules.Threshold, warning: warning, ban: ban}, nil
}

// NewPolicy validates the rules and builds a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if cfg.Classifier == nil {
		return nil, errors.New("moderation: classifier is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("moderation: escalation store is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("moderation: transport is required")
	}

	l, err := newLadder(cfg.Rules)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Policy{
		classifier: cfg.Classifier,
		store:      cfg.Store,
		transport:  cfg.Transport,
		logger:     logger.With("component", "policy"),
		observer:   observerOrNop(cfg.Observer),
	}
	p.ladder.Store(l)
	return p, nil
}

// Threshold returns the count at which a user is banned.
func (p *Policy) Threshold() int { return p.ladder.Load().threshold }

// UpdateRules validates rules and applies them to later messages, the
// classifier included. Stored counters are kept: lowering the threshold
// bans a user on their next violation.
func (p *Policy) UpdateRules(rules Rules) error {
	l, err := newLadder(rules)
	if err != nil {
		return err
	}
	p.classifier.SetRules(rules)
	p.ladder.Store(l)
	p.logger.Info("moderation rules updated", "threshold", l.threshold)
	return nil
}

// HandleMessage classifies msg and applies the escalation ladder. Side
// effects are attempted independently; a failed one never rolls back the
// counter. It is safe to call concurrently, including for the same user.
func (p *Policy) HandleMessage(ctx context.Context, msg Message) Action {
	ctx, span := tracer.Start(ctx, "moderation.handle_message")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat.id", msg.ChatID),
		attribute.Int64("user.id", msg.UserID),
	)

	action := p.handle(ctx, msg)
	span.SetAttributes(attribute.String("moderation.action", action.Kind.String()))
	if action.Kind != ActionNone {
		p.observer.ActionTaken(msg, action)
	}
	return action
}

func (p *Policy) handle(ctx context.Context, msg Message) Action {
	if p.classifier.Classify(ctx, msg.Text) == Clean {
		return None()
	}

	logger := p.logger.With("chat_id", msg.ChatID, "user_id", msg.UserID, "message_id", msg.MessageID)

	admin, err := p.transport.IsAdmin(ctx, msg.ChatID, msg.UserID)
	if err != nil {
		// An unknown status is treated as non-admin.
		p.sideEffectFailed(logger, "is_admin", err)
	}
	if admin {
		logger.Info("violation by admin ignored")
		return None()
	}

	l := p.ladder.Load()
	// The ban decision and the counter reset are one store operation, so
	// concurrent violations by the same user cross the threshold once.
	count, banned := p.store.Escalate(ctx, msg.UserID, l.threshold)
	data := noticeData{UserID: msg.UserID, Count: count, Threshold: l.threshold}

	if !banned {
		logger.Info("user warned", "count", count, "threshold", l.threshold)
		p.try(ctx, logger, "send_message", func(ctx context.Context) error {
			return p.transport.SendMessage(ctx, msg.ChatID, renderNotice(l.warning, data), msg.MessageID)
		})
		p.try(ctx, logger, "delete_message", func(ctx context.Context) error {
			return p.transport.DeleteMessage(ctx, msg.ChatID, msg.MessageID)
		})
		return Warned(count)
	}

	logger.Info("user banned", "count", count, "threshold", l.threshold)
	p.try(ctx, logger, "send_message", func(ctx context.Context) error {
		return p.transport.SendMessage(ctx, msg.ChatID, renderNotice(l.ban, data), msg.MessageID)
	})
	p.try(ctx, logger, "ban_user", func(ctx context.Context) error {
		return p.transport.BanUser(ctx, msg.ChatID, msg.UserID)
	})
	p.try(ctx, logger, "delete_message", func(ctx context.Context) error {
		return p.transport.DeleteMessage(ctx, msg.ChatID, msg.MessageID)
	})
	return Banned(count)
}

// ResetViolations handles "/resetviolations <user_id>". args is the text
// after the command. It returns the target user and its new count.
func (p *Policy) ResetViolations(ctx context.Context, chatID, invokerID int64, args string) (int64, int, error) {
	ctx, span := tracer.Start(ctx, "moderation.reset_violations")
	defer span.End()

	admin, err := p.transport.IsAdmin(ctx, chatID, invokerID)
	if err != nil {
		p.sideEffectFailed(p.logger, "is_admin", err)
	}
	if !admin {
		span.SetStatus(codes.Error, "not authorized")
		return 0, 0, ErrNotAuthorized
	}

	target, err := ParseUserID(args)
	if err != nil {
		span.SetStatus(codes.Error, "bad usage")
		return 0, 0, err
	}

	p.store.Reset(ctx, target)
	p.logger.Info("violations reset", "chat_id", chatID, "user_id", target, "by", invokerID)
	p.observer.CounterReset(chatID, target, invokerID)
	return target, p.store.Get(target), nil
}

// ParseUserID reads the first whitespace-separated field of args as a
// numeric user ID. Trailing fields are ignored.
func ParseUserID(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: missing user id", ErrBadCommandUsage)
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id %q is not a number", ErrBadCommandUsage, fields[0])
	}
	return id, nil
}

func (p *Policy) try(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		p.sideEffectFailed(logger, op, err)
	}
}

func (p *Policy) sideEffectFailed(logger *slog.Logger, op string, err error) {
	err = fmt.Errorf("%w: %s: %w", ErrTransportUnavailable, op, err)
	logger.Warn("transport call failed", "op", op, "error", err)
	p.observer.SideEffectFailed(op, err)
}
