package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// OracleConfig tunes how an Oracle calls the chain.
type OracleConfig struct {
	Role        Role
	MaxTokens   int
	Temperature *float64
	// Retries is how many extra attempts a retryable failure gets.
	Retries   uint64
	RetryBase time.Duration
}

// Oracle exposes one chain role as a plain system+user prompt completer.
type Oracle struct {
	chain *Chain
	cfg   OracleConfig
}

// NewOracle binds chain to a role.
func NewOracle(chain *Chain, cfg OracleConfig) *Oracle {
	if cfg.Role == "" {
		cfg.Role = RoleAssistant
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 250 * time.Millisecond
	}
	return &Oracle{chain: chain, cfg: cfg}
}

// Complete sends systemPrompt and userPrompt and returns the trimmed
// response text. Empty content is reported as ErrEmptyResponse.
func (o *Oracle) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := CompletionRequest{
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, LLMMessage{Role: MessageRoleSystem, Content: systemPrompt})
	}
	req.Messages = append(req.Messages, LLMMessage{Role: MessageRoleUser, Content: userPrompt})

	var content string
	b := retry.WithMaxRetries(o.cfg.Retries, retry.NewExponential(o.cfg.RetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := o.chain.Complete(ctx, o.cfg.Role, req)
		if err != nil {
			if IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		content = strings.TrimSpace(resp.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("oracle %s: %w", o.cfg.Role, err)
	}
	if content == "" {
		return "", fmt.Errorf("oracle %s: %w", o.cfg.Role, ErrEmptyResponse)
	}
	return content, nil
}
