package announcements

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/warden/internal/cron"
	"github.com/flemzord/warden/pkg/message"
)

const defaultSystemPrompt = "You write short posts for the Solium community channel. Keep a friendly, energetic tone, avoid hashtags and investment advice, and remind readers that Solium is not available in the USA, Canada, or OFAC-sanctioned countries."

// Config holds the announcement schedule.
type Config struct {
	// Channel is the channel module posts go through.
	Channel string `yaml:"channel"`
	// Chat is a numeric chat ID or a public "@username".
	Chat string `yaml:"chat"`
	// Timezone is an IANA zone name. Empty means the host's local time.
	Timezone     string        `yaml:"timezone"`
	SystemPrompt string        `yaml:"system_prompt"`
	// Context is appended to every prompt.
	Context  string        `yaml:"context"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
	Posts    []Post        `yaml:"posts"`
}

// Post is one recurring announcement.
type Post struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Prompt   string `yaml:"prompt"`
}

func defaultPosts() []Post {
	return []Post{
		{
			Name:     "airdrop_reminder",
			Schedule: "0 9 * * *",
			Prompt:   "Remind the Solium Community Rewards in a witty way, encourage joining.",
		},
		{
			Name:     "presale_update",
			Schedule: "0 13 * * *",
			Prompt:   "Promote Solium presale or staking plans briefly and energetically. Note 1 BNB = 10,000 SLM.",
		},
		{
			Name:     "trend_motivation",
			Schedule: "0 20 * * *",
			Prompt:   "Summarize Solium trends on X in a witty way or motivate the community with Web3 spirit.",
		},
	}
}

func (c *Config) defaults() {
	if c.Channel == "" {
		c.Channel = "channel.telegram"
	}
	if c.Chat == "" {
		c.Chat = "@soliumcoin"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.Context == "" {
		c.Context = "Airdrop in 2 days, presale 50% complete, staking coming soon."
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.Timeout == 0 {
		c.Timeout = time.Minute
	}
	if c.Posts == nil {
		c.Posts = defaultPosts()
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := message.ParseChat(c.Chat); err != nil {
		errs = append(errs, err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache_ttl must not be negative"))
	}

	seen := make(map[string]bool, len(c.Posts))
	for i, p := range c.Posts {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("posts[%d]: name is required", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("posts[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		if strings.TrimSpace(p.Prompt) == "" {
			errs = append(errs, fmt.Errorf("posts[%d]: prompt is required", i))
		}
		if err := cron.ParseSchedule(p.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("posts[%d]: %w", i, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("announcements: %w", err)
	}
	return nil
}

// schedule returns the cron expression of p, pinned to the configured
// time zone.
func (c *Config) schedule(p Post) string {
	if c.Timezone == "" {
		return p.Schedule
	}
	return "CRON_TZ=" + c.Timezone + " " + p.Schedule
}

// userPrompt joins a post's prompt with the shared context.
func (c *Config) userPrompt(p Post) string {
	if c.Context == "" {
		return p.Prompt
	}
	return p.Prompt + " Context: " + c.Context
}
