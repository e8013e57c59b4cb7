// Package providers defines the protocol between the agent runtime and a
// language model backend. Adapters for concrete SDKs live in subpackages;
// the runtime itself only sees these types.
package providers

import (
	"context"
	"encoding/json"
)

type ToolCall struct {
	ID        string         `json:"id"`
	Type      string         `json:"type,omitempty"`
	Function  *FunctionCall  `json:"function,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type LLMResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
	Usage        *UsageInfo `json:"usage,omitempty"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one turn of a conversation. Content may be empty on assistant
// turns that only carry tool calls. Name holds the originating tool name on
// tool-role messages so context assembly can filter previews per tool.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolDefinition struct {
	Type     string                 `json:"type"`
	Function ToolFunctionDefinition `json:"function"`
}

type ToolFunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// StreamDelta is one incremental event from a streaming completion:
// either a text fragment or a partial tool call.
type StreamDelta struct {
	Content  string    `json:"content,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

// LLMProvider is the narrow boundary to a model backend. Transport-level
// retries, auth refresh, and timeouts belong behind this interface, not in
// the agent loop.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error)
	GetDefaultModel() string
}

// StreamingProvider is implemented by backends that can deliver incremental
// deltas. The accumulated response returned at the end is identical to what
// Chat would have returned.
type StreamingProvider interface {
	LLMProvider
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any, onDelta func(StreamDelta)) (*LLMResponse, error)
}

// NormalizeToolCall fills in the redundant fields of a ToolCall so the rest
// of the runtime can rely on Name and Arguments being populated regardless
// of which adapter produced the call.
func NormalizeToolCall(tc ToolCall) ToolCall {
	normalized := tc

	if normalized.Name == "" && normalized.Function != nil {
		normalized.Name = normalized.Function.Name
	}
	if normalized.Arguments == nil {
		normalized.Arguments = map[string]any{}
	}
	if len(normalized.Arguments) == 0 && normalized.Function != nil && normalized.Function.Arguments != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(normalized.Function.Arguments), &parsed); err == nil && parsed != nil {
			normalized.Arguments = parsed
		}
	}
	return normalized
}
