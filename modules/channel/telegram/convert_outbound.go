package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/pkg/message"
)

// sendOutbound sends an OutboundMessage through the Telegram API, split into
// chunks of at most max_message_length bytes. Delivery is fail-fast: the
// first failing chunk aborts the rest.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.OutboundMessage) error {
	chatID, err := chatRef(msg.Chat)
	if err != nil {
		return err
	}

	for _, chunk := range channel.SplitMessage(msg, t.config.MaxMessageLength) {
		if err := t.sendChunk(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// sendChunk sends one chunk. When Telegram rejects the markup of a formatted
// message, the chunk is resent once as plain text: model output often has
// unbalanced markdown.
func (t *Telegram) sendChunk(ctx context.Context, chatID any, chunk message.OutboundMessage) error {
	req := SendMessageRequest{
		ChatID:                chatID,
		Text:                  chunk.Text,
		ParseMode:             chunk.ParseMode,
		DisableWebPagePreview: chunk.DisablePreview,
		ReplyToMessageID:      chunk.ReplyToID,
		ReplyMarkup:           convertButtons(chunk.Buttons),
	}
	if req.ParseMode == "" {
		req.ParseMode = t.config.ParseMode
	}

	_, err := t.client.SendMessage(ctx, req)

	var apiErr *APIError
	if err != nil && req.ParseMode != "" && errors.As(err, &apiErr) && apiErr.isEntityParseError() {
		t.logger.Warn("telegram rejected message markup, resending as plain text",
			"chat", chunk.Chat.String(),
			"parse_mode", req.ParseMode,
		)
		req.ParseMode = ""
		_, err = t.client.SendMessage(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("telegram: send message to %s: %w", chunk.Chat.String(), err)
	}
	return nil
}

// chatRef returns the chat_id value for a chat: its numeric ID, or
// "@username" for public chats addressed by name.
func chatRef(chat message.Chat) (any, error) {
	switch {
	case chat.ID != 0:
		return chat.ID, nil
	case chat.Username != "":
		return "@" + chat.Username, nil
	default:
		return nil, errors.New("telegram: outbound message has no chat ID or username")
	}
}

// convertButtons maps button rows to an inline keyboard. It returns nil when
// there are no buttons so reply_markup is omitted.
func convertButtons(rows [][]message.Button) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, InlineKeyboardButton{
				Text:         b.Text,
				CallbackData: b.CallbackData,
				URL:          b.URL,
			})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}
