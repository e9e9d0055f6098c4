package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/pkg/message"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

var _ moderation.Transport = (*Transport)(nil)

const adminLookupTimeout = 10 * time.Second

// Transport performs the moderation side effects through the Bot API.
// Admin lookups are cached per (chat, user) and concurrent lookups for the
// same pair share one getChatMember call. Failed lookups are not cached.
type Transport struct {
	client *Client
	send   func(ctx context.Context, msg message.OutboundMessage) error
	admins *cache.Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewTransport creates a Transport. send delivers replies so they share the
// channel's chunking and parse-mode handling.
func NewTransport(client *Client, send func(context.Context, message.OutboundMessage) error, adminTTL time.Duration, logger *slog.Logger) *Transport {
	return &Transport{
		client: client,
		send:   send,
		admins: cache.New(adminTTL, 2*adminTTL),
		logger: logger,
	}
}

// IsAdmin reports whether userID is an administrator or the creator of chatID.
func (t *Transport) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	key := strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
	if v, ok := t.admins.Get(key); ok {
		return v.(bool), nil
	}

	ch := t.group.DoChan(key, func() (any, error) {
		// Every waiter shares this lookup, so it must outlive the caller
		// that happened to start it.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), adminLookupTimeout)
		defer cancel()

		member, err := t.client.GetChatMember(lookupCtx, chatID, userID)
		if err != nil {
			return false, err
		}
		admin := member.IsAdmin()
		t.admins.SetDefault(key, admin)
		t.logger.Debug("admin status resolved",
			"chat_id", chatID,
			"user_id", userID,
			"status", member.Status,
		)
		return admin, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, fmt.Errorf("telegram: getChatMember: %w", res.Err)
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, fmt.Errorf("telegram: getChatMember: %w", ctx.Err())
	}
}

// SendMessage replies in chatID, optionally to message replyTo.
func (t *Transport) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	return t.send(ctx, message.OutboundMessage{
		Chat:      message.Chat{ID: chatID},
		ReplyToID: replyTo,
		Text:      text,
	})
}

// DeleteMessage removes a message from chatID.
func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return t.client.DeleteMessage(ctx, chatID, messageID)
}

// BanUser bans userID from chatID.
func (t *Transport) BanUser(ctx context.Context, chatID, userID int64) error {
	if err := t.client.BanChatMember(ctx, chatID, userID); err != nil {
		return err
	}
	t.admins.Delete(strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10))
	return nil
}
