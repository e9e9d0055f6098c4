package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/gateway"
)

// ErrInvalidSecret is returned when the webhook secret token header does
// not match the configured secret. The gateway answers it with 401.
var ErrInvalidSecret = fmt.Errorf("telegram: invalid webhook secret token: %w", gateway.ErrWebhookUnauthorized)

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	inbox       channel.InboxFunc
	allowList   *channel.AllowList
	logger      *slog.Logger
	channelName string
	secret      string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(inbox channel.InboxFunc, allowList *channel.AllowList, logger *slog.Logger, channelName, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		channelName: channelName,
		secret:      secret,
	}
}

// HandleWebhook validates the Telegram secret token header, parses the
// update, checks the allow list, and hands the message to the inbox in the
// request goroutine.
func (w *WebhookReceiver) HandleWebhook(ctx context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return ErrInvalidSecret
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: invalid update JSON: %w", err)
	}

	msg, err := convertInbound(&update, w.channelName)
	if err != nil {
		w.logger.Debug("skipping webhook update", "update_id", update.UpdateID, "reason", err)
		return nil
	}

	if !w.allowList.IsAllowed(msg) {
		w.logger.Debug("webhook update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return nil
	}

	return w.inbox(ctx, msg)
}
