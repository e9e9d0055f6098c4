package message

import (
	"encoding/json"
	"strings"
	"time"
)

// InboundMessage is one update received from a channel.
type InboundMessage struct {
	ID         string          `json:"id"`
	MessageID  int             `json:"message_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Channel    string          `json:"channel"`
	Kind       Kind            `json:"kind"`
	Sender     Sender          `json:"sender"`
	Chat       Chat            `json:"chat"`
	Text       string          `json:"text,omitempty"`
	NewMembers []Sender        `json:"new_members,omitempty"`
	Callback   *Callback       `json:"callback,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// Callback is an inline-keyboard button press.
type Callback struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// Command splits a "/command@bot args" text into its lowercased command
// name without the bot suffix, and the trimmed arguments. ok is false for
// text that is not a command.
func (m InboundMessage) Command() (name, args string, ok bool) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
