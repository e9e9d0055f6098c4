package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/flemzord/warden/pkg/message"
)

// convertInbound transforms a Telegram Update into a platform-agnostic
// InboundMessage. Edited messages are moderated like new ones.
func convertInbound(update *Update, channelName string) (message.InboundMessage, error) {
	raw, err := json.Marshal(update)
	if err != nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: marshal update: %w", err)
	}

	inbound := message.InboundMessage{
		ID:      strconv.Itoa(update.UpdateID),
		Channel: channelName,
		Raw:     raw,
	}

	if cb := update.CallbackQuery; cb != nil {
		inbound.Kind = message.KindCallback
		inbound.Sender = convertSender(&cb.From)
		inbound.Callback = &message.Callback{ID: cb.ID, Data: cb.Data}
		inbound.Timestamp = time.Now()
		if cb.Message != nil {
			inbound.MessageID = cb.Message.MessageID
			inbound.Chat = convertChat(cb.Message.Chat)
		}
		return inbound, nil
	}

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d contains no message", update.UpdateID)
	}

	inbound.MessageID = msg.MessageID
	inbound.Timestamp = time.Unix(int64(msg.Date), 0)
	inbound.Sender = convertSender(msg.From)
	inbound.Chat = convertChat(msg.Chat)

	switch {
	case len(msg.NewChatMembers) > 0:
		inbound.Kind = message.KindJoin
		inbound.NewMembers = make([]message.Sender, len(msg.NewChatMembers))
		for i := range msg.NewChatMembers {
			inbound.NewMembers[i] = convertSender(&msg.NewChatMembers[i])
		}
	case msg.Text != "":
		inbound.Kind = message.KindText
		inbound.Text = msg.Text
	default:
		inbound.Kind = message.KindOther
		inbound.Text = msg.Caption
	}

	return inbound, nil
}

// convertSender maps a Telegram User to a platform-agnostic Sender.
func convertSender(user *User) message.Sender {
	if user == nil {
		return message.Sender{}
	}
	displayName := user.FirstName
	if user.LastName != "" {
		displayName += " " + user.LastName
	}
	return message.Sender{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: displayName,
		IsBot:       user.IsBot,
	}
}

// convertChat maps a Telegram Chat to a platform-agnostic Chat.
func convertChat(chat Chat) message.Chat {
	return message.Chat{
		ID:       chat.ID,
		Username: chat.Username,
		Type:     mapChatType(chat.Type),
		Title:    chat.Title,
	}
}

// mapChatType converts Telegram chat type strings to message.ChatType.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "group", "supergroup":
		return message.ChatGroup
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}
