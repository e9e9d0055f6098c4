package message

// OutboundMessage is a message to be sent through a channel.
type OutboundMessage struct {
	Channel        string     `json:"channel"`
	Chat           Chat       `json:"chat"`
	ReplyToID      int        `json:"reply_to_id,omitempty"`
	Text           string     `json:"text"`
	ParseMode      string     `json:"parse_mode,omitempty"`
	DisablePreview bool       `json:"disable_preview,omitempty"`
	Buttons        [][]Button `json:"buttons,omitempty"`
}

// Button is one inline-keyboard button. Exactly one of CallbackData and
// URL is expected to be set.
type Button struct {
	Text         string `json:"text" yaml:"text"`
	CallbackData string `json:"callback_data,omitempty" yaml:"callback_data,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// NewTextMessage creates a plain text reply.
func NewTextMessage(chat Chat, text string) OutboundMessage {
	return OutboundMessage{Chat: chat, Text: text}
}

// Reply builds a text reply to in, on the same channel and chat.
func Reply(in InboundMessage, text string) OutboundMessage {
	return OutboundMessage{
		Channel:   in.Channel,
		Chat:      in.Chat,
		ReplyToID: in.MessageID,
		Text:      text,
	}
}
