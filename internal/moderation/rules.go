package moderation

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Example is one few-shot line of the classification prompt.
type Example struct {
	Text    string `yaml:"text"`
	Verdict string `yaml:"verdict"`
}

// Rules is the versioned rule data a deployment moderates with. It lives in
// the moderation section of the configuration file so communities can swap
// it without touching code.
type Rules struct {
	Version           string        `yaml:"version"`
	Whitelist         []string      `yaml:"whitelist"`
	SafePhrases       []string      `yaml:"safe_phrases"`
	TopicTerms        []string      `yaml:"topic_terms"`
	AffirmativeTokens []string      `yaml:"affirmative_tokens"`
	MinLength         *int          `yaml:"min_length"`
	Threshold         int           `yaml:"threshold"`
	ClassifyTimeout   time.Duration `yaml:"classify_timeout"`
	SystemPrompt      string        `yaml:"system_prompt"`
	PromptRules       []string      `yaml:"prompt_rules"`
	Examples          []Example     `yaml:"examples"`
	WarningTemplate   string        `yaml:"warning_template"`
	BanTemplate       string        `yaml:"ban_template"`
}

// Default rule values.
const (
	DefaultMinLength       = 5
	DefaultThreshold       = 3
	DefaultClassifyTimeout = 20 * time.Second

	DefaultSystemPrompt    = "You are a strict moderator for a Telegram community group. Answer with a single word: YES or NO."
	DefaultWarningTemplate = "⚠️ Warning ({{.Count}}/{{.Threshold}}): Your message may contain profanity, unauthorized links, or other crypto promotions. Please review /rules."
	DefaultBanTemplate     = "⛔ User banned after {{.Threshold}} violations! Contact @soliumcoin for support."
)

// DefaultRules returns the rule set of the Solium community group, the
// deployment this bot was first written for.
func DefaultRules() Rules {
	return Rules{
		Version: "1",
		Whitelist: []string{
			"https://soliumcoin.com",
			"soliumcoin.com",
			"@soliumcoinowner",
			"@soliumcoin",
			"https://t.me/+KDhk3UEwZAg3MmU0",
			"t.me/soliumcoin",
			"https://x.com/soliumcoin",
			"https://github.com/soliumcoin/solium-project",
			"https://github.com/soliumcoin",
			"https://medium.com/@soliumcoin",
		},
		SafePhrases:       []string{"nasılsın", "merhaba", "selam", "naber", "hi", "hello", "good morning"},
		TopicTerms:        []string{"solium", "slm", "airdrop", "presale", "staking"},
		AffirmativeTokens: []string{"YES", "EVET"},
		MinLength:         intPtr(DefaultMinLength),
		Threshold:         DefaultThreshold,
		ClassifyTimeout:   DefaultClassifyTimeout,
		SystemPrompt:      DefaultSystemPrompt,
		PromptRules: []string{
			"External links other than official Solium links (e.g., https://soliumcoin.com, https://t.me/+KDhk3UEwZAg3MmU0) are prohibited.",
			"Promoting cryptocurrencies or projects other than Solium is prohibited (e.g., 'Buy Bitcoin', 'Ethereum is great').",
			"Profanity, insults, or inappropriate language are prohibited (e.g., 'stupid', 'damn').",
			"Empty messages, system notifications, group join events, or casual greetings (e.g., 'nasılsın', 'merhaba') are NOT violations.",
		},
		Examples: []Example{
			{Text: "Nasılsın", Verdict: "NO"},
			{Text: "Merhaba", Verdict: "NO"},
			{Text: "Buy Ethereum now!", Verdict: "YES"},
			{Text: "Check out https://example.com", Verdict: "YES"},
			{Text: "You idiot!", Verdict: "YES"},
			{Text: "Solium airdrop ne zaman?", Verdict: "NO"},
		},
		WarningTemplate: DefaultWarningTemplate,
		BanTemplate:     DefaultBanTemplate,
	}
}

// ApplyDefaults fills zero-valued fields. Nil lists are defaulted, empty
// non-nil lists are kept so a deployment can disable a bypass entirely.
func (r *Rules) ApplyDefaults() {
	d := DefaultRules()
	if r.Version == "" {
		r.Version = d.Version
	}
	if r.Whitelist == nil {
		r.Whitelist = d.Whitelist
	}
	if r.SafePhrases == nil {
		r.SafePhrases = d.SafePhrases
	}
	if r.TopicTerms == nil {
		r.TopicTerms = d.TopicTerms
	}
	if len(r.AffirmativeTokens) == 0 {
		r.AffirmativeTokens = d.AffirmativeTokens
	}
	// Unset means the default; an explicit 0 sends every message,
	// however short, past the length gate.
	if r.MinLength == nil {
		r.MinLength = d.MinLength
	}
	if r.Threshold == 0 {
		r.Threshold = d.Threshold
	}
	if r.ClassifyTimeout == 0 {
		r.ClassifyTimeout = d.ClassifyTimeout
	}
	if r.SystemPrompt == "" {
		r.SystemPrompt = d.SystemPrompt
	}
	if r.PromptRules == nil {
		r.PromptRules = d.PromptRules
	}
	if r.Examples == nil {
		r.Examples = d.Examples
	}
	if r.WarningTemplate == "" {
		r.WarningTemplate = d.WarningTemplate
	}
	if r.BanTemplate == "" {
		r.BanTemplate = d.BanTemplate
	}
}

// MinRunes returns the length gate in runes, DefaultMinLength when unset.
func (r *Rules) MinRunes() int {
	if r.MinLength == nil {
		return DefaultMinLength
	}
	return *r.MinLength
}

// Validate checks the rule data after defaults are applied.
func (r *Rules) Validate() error {
	var errs []error
	if r.Threshold < 1 {
		errs = append(errs, fmt.Errorf("threshold must be >= 1, got %d", r.Threshold))
	}
	if r.MinLength != nil && *r.MinLength < 0 {
		errs = append(errs, fmt.Errorf("min_length must be >= 0, got %d", *r.MinLength))
	}
	if r.ClassifyTimeout < 0 {
		errs = append(errs, errors.New("classify_timeout must be positive"))
	}
	for _, tok := range r.AffirmativeTokens {
		if strings.TrimSpace(tok) == "" {
			errs = append(errs, errors.New("affirmative_tokens must not contain empty entries"))
			break
		}
	}
	for i, ex := range r.Examples {
		if ex.Text == "" || ex.Verdict == "" {
			errs = append(errs, fmt.Errorf("examples[%d]: text and verdict are required", i))
		}
	}
	if _, err := parseNotice("warning", r.WarningTemplate); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseNotice("ban", r.BanTemplate); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// noticeData is what warning and ban templates render against.
type noticeData struct {
	UserID    int64
	Count     int
	Threshold int
}

func parseNotice(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s_template: %w", name, err)
	}
	return tmpl, nil
}

func renderNotice(tmpl *template.Template, data noticeData) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		// Templates are validated at construction; this only trips on
		// a field that renders to an error at runtime.
		return tmpl.Name()
	}
	return b.String()
}

func intPtr(n int) *int { return &n }

// lowerAll lowercases entries and drops blanks.
func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
