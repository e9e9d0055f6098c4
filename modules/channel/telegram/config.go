package telegram

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config holds the Telegram channel configuration.
type Config struct {
	Token            string        `yaml:"token"`
	Mode             string        `yaml:"mode"`
	PollingTimeout   int           `yaml:"polling_timeout"`
	Workers          int           `yaml:"workers"`
	WebhookURL       string        `yaml:"webhook_url"`
	WebhookSecret    string        `yaml:"webhook_secret"`
	AllowedUpdates   []string      `yaml:"allowed_updates"`
	AllowChats       []string      `yaml:"allow_chats"`
	MaxMessageLength int           `yaml:"max_message_length"`
	ParseMode        string        `yaml:"parse_mode"`
	AdminCacheTTL    time.Duration `yaml:"admin_cache_ttl"`
	APIURL           string        `yaml:"api_url"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = "polling"
	}
	if c.PollingTimeout == 0 {
		c.PollingTimeout = 30
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.AllowedUpdates == nil {
		c.AllowedUpdates = []string{"message", "callback_query"}
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = 4096
	}
	if c.AdminCacheTTL == 0 {
		c.AdminCacheTTL = 5 * time.Minute
	}
	if c.APIURL == "" {
		c.APIURL = "https://api.telegram.org"
	}
}

// validate checks configuration field constraints beyond basic presence checks.
// It is called from Telegram.Validate after defaults have been applied.
func (c *Config) validate() error {
	if c.Token != "" && !tokenPattern.MatchString(c.Token) {
		return fmt.Errorf("telegram: token format invalid (expected <bot_id>:<hash>)")
	}

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL)
		}
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout)
	}

	if c.Workers > 256 {
		return fmt.Errorf("telegram: workers must be 1-256, got %d", c.Workers)
	}

	if c.MaxMessageLength < 1 || c.MaxMessageLength > 4096 {
		return fmt.Errorf("telegram: max_message_length must be 1-4096, got %d", c.MaxMessageLength)
	}

	switch c.ParseMode {
	case "", "Markdown", "MarkdownV2", "HTML":
	default:
		return fmt.Errorf("telegram: parse_mode must be Markdown, MarkdownV2 or HTML, got %q", c.ParseMode)
	}

	if c.AdminCacheTTL < 0 {
		return fmt.Errorf("telegram: admin_cache_ttl must not be negative, got %s", c.AdminCacheTTL)
	}

	return nil
}
