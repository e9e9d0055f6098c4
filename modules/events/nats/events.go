package nats

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/warden/internal/moderation"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectAction = "action"
	SubjectReset  = "reset"
)

// ActionEvent is published for every warn or ban.
type ActionEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Count     int       `json:"count"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	MessageID int       `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ResetEvent is published when an admin clears a user's counter.
type ResetEvent struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	By        int64     `json:"by"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends a payload on a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Observer publishes moderation actions and resets. Publish errors are
// logged and dropped; moderation never waits on the broker.
type Observer struct {
	moderation.NopObserver

	pub    Publisher
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var _ moderation.Observer = (*Observer)(nil)

// NewObserver returns an Observer publishing under prefix.
func NewObserver(pub Publisher, prefix string, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		pub:    pub,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// ActionTaken implements moderation.Observer.
func (o *Observer) ActionTaken(msg moderation.Message, action moderation.Action) {
	if action.Kind == moderation.ActionNone {
		return
	}
	o.publish(SubjectAction, ActionEvent{
		ID:        uuid.NewString(),
		Action:    action.Kind.String(),
		Count:     action.Count,
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		MessageID: msg.MessageID,
		Timestamp: o.now().UTC(),
	})
}

// CounterReset implements moderation.Observer.
func (o *Observer) CounterReset(chatID, userID, by int64) {
	o.publish(SubjectReset, ResetEvent{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		UserID:    userID,
		By:        by,
		Timestamp: o.now().UTC(),
	})
}

func (o *Observer) publish(suffix string, event any) {
	subject := o.prefix + "." + suffix
	data, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("events: marshal failed", "subject", subject, "error", err)
		return
	}
	if err := o.pub.Publish(subject, data); err != nil {
		o.logger.Warn("events: publish failed", "subject", subject, "error", err)
	}
}
