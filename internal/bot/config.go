package bot

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/flemzord/warden/pkg/message"
)

// maxCallbackData is Telegram's limit on callback_data.
const maxCallbackData = 64

// Config is the "bot" section of the configuration file.
type Config struct {
	// Welcome is sent, not as a reply, when members join.
	Welcome Reply `yaml:"welcome"`
	// Commands maps "/name" to a static reply. Keys match case-insensitively.
	Commands map[string]Reply `yaml:"commands"`
	// Callbacks maps inline button callback_data to a reply.
	Callbacks map[string]Reply `yaml:"callbacks"`
	// ResetCommand is the admin command that clears a user's counter.
	ResetCommand string          `yaml:"reset_command"`
	Assistant    AssistantConfig `yaml:"assistant"`
	// MaxReplyLength splits long assistant answers into several messages.
	MaxReplyLength int `yaml:"max_reply_length"`
}

// Reply is a canned message with an optional inline keyboard.
type Reply struct {
	Text           string             `yaml:"text"`
	ParseMode      string             `yaml:"parse_mode"`
	DisablePreview bool               `yaml:"disable_preview"`
	Buttons        [][]message.Button `yaml:"buttons"`
}

// AssistantConfig controls free-form answers to clean messages. Answers
// are sent without a parse mode unless ParseMode is set.
type AssistantConfig struct {
	Disabled     bool          `yaml:"disabled"`
	SystemPrompt string        `yaml:"system_prompt"`
	Fallback     string        `yaml:"fallback"`
	ParseMode    string        `yaml:"parse_mode"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  *float64      `yaml:"temperature"`
}

// ApplyDefaults fills unset fields from DefaultConfig. A configured commands
// or callbacks map replaces the default one as a whole.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Welcome.Text == "" && c.Welcome.Buttons == nil {
		c.Welcome = d.Welcome
	}
	if c.Commands == nil {
		c.Commands = d.Commands
	}
	if c.Callbacks == nil {
		c.Callbacks = d.Callbacks
	}
	if c.ResetCommand == "" {
		c.ResetCommand = d.ResetCommand
	}
	if c.Assistant.SystemPrompt == "" {
		c.Assistant.SystemPrompt = d.Assistant.SystemPrompt
	}
	if c.Assistant.Fallback == "" {
		c.Assistant.Fallback = d.Assistant.Fallback
	}
	if c.Assistant.Timeout == 0 {
		c.Assistant.Timeout = d.Assistant.Timeout
	}
	if c.MaxReplyLength == 0 {
		c.MaxReplyLength = d.MaxReplyLength
	}

	c.ResetCommand = normalizeCommand(c.ResetCommand)
	commands := make(map[string]Reply, len(c.Commands))
	for name, reply := range c.Commands {
		commands[normalizeCommand(name)] = reply
	}
	c.Commands = commands
	c.Callbacks = maps.Clone(c.Callbacks)
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	var errs []error
	if _, clash := c.Commands[c.ResetCommand]; clash {
		errs = append(errs, fmt.Errorf("command %s shadows the reset command", c.ResetCommand))
	}
	for name, reply := range c.Commands {
		if err := reply.validate(); err != nil {
			errs = append(errs, fmt.Errorf("command %s: %w", name, err))
		}
	}
	for data, reply := range c.Callbacks {
		if data == "" || len(data) > maxCallbackData {
			errs = append(errs, fmt.Errorf("callback %q: data must be 1-%d bytes", data, maxCallbackData))
		}
		if err := reply.validate(); err != nil {
			errs = append(errs, fmt.Errorf("callback %s: %w", data, err))
		}
	}
	if err := c.Welcome.validateButtons(); err != nil {
		errs = append(errs, fmt.Errorf("welcome: %w", err))
	}
	if c.Assistant.Timeout < 0 {
		errs = append(errs, errors.New("assistant timeout must not be negative"))
	}
	if c.MaxReplyLength < 0 || c.MaxReplyLength > defaultMaxReplyLength {
		errs = append(errs, fmt.Errorf("max_reply_length must be 1-%d, got %d", defaultMaxReplyLength, c.MaxReplyLength))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (r Reply) validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	return r.validateButtons()
}

func (r Reply) validateButtons() error {
	for i, row := range r.Buttons {
		for j, b := range row {
			if b.Text == "" {
				return fmt.Errorf("button [%d][%d]: text is required", i, j)
			}
			if (b.CallbackData == "") == (b.URL == "") {
				return fmt.Errorf("button %q: exactly one of callback_data and url must be set", b.Text)
			}
			if len(b.CallbackData) > maxCallbackData {
				return fmt.Errorf("button %q: callback_data longer than %d bytes", b.Text, maxCallbackData)
			}
		}
	}
	return nil
}

// outbound renders r as a message answering in.
func (r Reply) outbound(in message.InboundMessage, replyTo int) message.OutboundMessage {
	return message.OutboundMessage{
		Channel:        in.Channel,
		Chat:           in.Chat,
		ReplyToID:      replyTo,
		Text:           r.Text,
		ParseMode:      r.ParseMode,
		DisablePreview: r.DisablePreview,
		Buttons:        r.Buttons,
	}
}

func normalizeCommand(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
