package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/warden/internal/provider"
)

// maxResponseSize bounds the response body (10 MB).
const maxResponseSize = 10 * 1024 * 1024

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason *string     `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.TokenUsage `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// buildChatRequest merges request-level overrides with config defaults.
func (p *Provider) buildChatRequest(req provider.CompletionRequest) chatRequest {
	cr := chatRequest{
		Model:    p.config.Model,
		Messages: make([]chatMessage, len(req.Messages)),
	}
	for i, m := range req.Messages {
		cr.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	switch {
	case req.MaxTokens > 0:
		cr.MaxTokens = req.MaxTokens
	case p.config.MaxTokens > 0:
		cr.MaxTokens = p.config.MaxTokens
	}

	switch {
	case req.Temperature != nil:
		cr.Temperature = req.Temperature
	case p.config.Temperature != nil:
		cr.Temperature = p.config.Temperature
	}
	return cr
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body, err := json.Marshal(p.buildChatRequest(req))
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.CompletionResponse{}, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: read response: %w", err)
	}
	if httpErr := mapHTTPError(resp.StatusCode, raw); httpErr != nil {
		return provider.CompletionResponse{}, httpErr
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: unmarshal response: %w", err)
	}

	out := provider.CompletionResponse{Usage: cr.Usage}
	if len(cr.Choices) > 0 {
		out.Content = cr.Choices[0].Message.Content
		out.FinishReason = mapFinishReason(cr.Choices[0].FinishReason)
	}
	return out, nil
}

// HealthCheck sends a 1-token completion, which exercises authentication,
// model access and quota in one call.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, provider.CompletionRequest{
		Messages:  []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

func mapFinishReason(reason *string) provider.FinishReason {
	if reason == nil {
		return ""
	}
	switch *reason {
	case "stop":
		return provider.FinishReasonStop
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(*reason)
	}
}
