// Package llm defines the provider-agnostic LLM client interface for
// GitScribe, including tool calling. Implementations provide the actual
// HTTP transport to a specific provider.
package llm

import "context"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Tool describes one function the model may call.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON-schema object describing the arguments.
	Parameters map[string]any
}

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage counts tokens for one provider call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add merges another call's counters additively.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone disables tool calling for the request. Followup
	// calls use this to prevent unbounded recursion.
	ToolChoiceNone ToolChoice = "none"
)

// Request is one chat completion request.
type Request struct {
	SystemPrompt string
	History      []Message
	Prompt       string
	Tools        []Tool
	ToolChoice   ToolChoice
	// Temperature of 0 means the provider default.
	Temperature float64
}

// Response is the provider-agnostic completion result.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
	// OptimizedHistory, when non-nil, is the provider wrapper's trimmed
	// view of the conversation, forwarded to the caller so it sees one
	// coherent history.
	OptimizedHistory []Message
}

// Client is the interface every provider implements.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}
