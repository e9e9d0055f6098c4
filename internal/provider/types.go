package provider

// Role names what a completion is used for. Each role can be served by a
// different provider or model.
type Role string

// Roles used by warden.
const (
	RoleModeration   Role = "moderation"
	RoleAssistant    Role = "assistant"
	RoleAnnouncement Role = "announcement"
	RoleFallback     Role = "fallback"
)

// ParseRole validates a role name from configuration.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleModeration, RoleAssistant, RoleAnnouncement, RoleFallback:
		return r, true
	default:
		return "", false
	}
}

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// LLMMessage is a single message in a completion request.
type LLMMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the input to Provider.Complete.
type CompletionRequest struct {
	Messages    []LLMMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

// CompletionResponse is the output of Provider.Complete.
type CompletionResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
