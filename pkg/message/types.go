// Package message defines the platform-agnostic contract between chat
// channels and the bot: inbound updates (text, joins, button presses) and
// outbound replies with optional inline keyboards.
package message

import (
	"fmt"
	"strconv"
	"strings"
)

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a private one-to-one conversation with the bot.
	ChatDM ChatType = "dm"
	// ChatGroup is a group or supergroup.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many channel.
	ChatBroadcast ChatType = "broadcast"
)

// Kind discriminates what an inbound message carries.
type Kind string

// Inbound kinds.
const (
	KindText     Kind = "text"
	KindJoin     Kind = "join"
	KindCallback Kind = "callback"
	KindOther    Kind = "other"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          int64  `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// Chat identifies a conversation. Outbound messages may address a public
// chat by Username alone.
type Chat struct {
	ID       int64    `json:"id,omitempty"`
	Username string   `json:"username,omitempty"`
	Type     ChatType `json:"type,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// String returns the numeric ID, or "@username" when no ID is known.
func (c Chat) String() string {
	if c.ID == 0 && c.Username != "" {
		return "@" + c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// ParseChat reads a chat reference from configuration: a numeric chat ID
// or a public "@username".
func ParseChat(ref string) (Chat, error) {
	ref = strings.TrimSpace(ref)
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		if name == "" {
			return Chat{}, fmt.Errorf("message: empty chat username in %q", ref)
		}
		return Chat{Username: name, Type: ChatBroadcast}, nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id == 0 {
		return Chat{}, fmt.Errorf("message: chat %q is neither a numeric ID nor an @username", ref)
	}
	return Chat{ID: id}, nil
}
