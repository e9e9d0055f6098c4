package gateway

import "time"

// DefaultBanner is served on GET / when no banner is configured.
const DefaultBanner = "Warden moderation bot is active!"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string                      `yaml:"bind"`
	Banner          string                      `yaml:"banner"`
	Auth            AuthConfig                  `yaml:"auth"`
	Webhooks        map[string]WebhookSourceCfg `yaml:"webhooks"`
	MaxBodyBytes    int                         `yaml:"max_body_bytes"`
	MaxJSONDepth    int                         `yaml:"max_json_depth"`
	ReadTimeout     time.Duration               `yaml:"read_timeout"`
	WriteTimeout    time.Duration               `yaml:"write_timeout"`
	ShutdownTimeout time.Duration               `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.Banner == "" {
		c.Banner = DefaultBanner
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// Webhook updates are handled in the request, including the oracle
	// call, so the write deadline must outlast a classification.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// WebhookSourceCfg holds per-source webhook configuration. A secret set
// here turns on X-Signature-256 HMAC checks for that source.
type WebhookSourceCfg struct {
	Secret string `yaml:"secret"`
}
