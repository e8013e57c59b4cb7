package anthropicprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParamsBasicMessage(t *testing.T) {
	params, err := buildParams(
		[]Message{{Role: "user", Content: "Hello"}},
		nil,
		"claude-sonnet-4.6",
		map[string]any{"max_tokens": 1024},
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4.6", string(params.Model))
	assert.Equal(t, int64(1024), params.MaxTokens)
	assert.Len(t, params.Messages, 1)
}

func TestBuildParamsSystemMessage(t *testing.T) {
	params, err := buildParams(
		[]Message{
			{Role: "system", Content: "You are helpful"},
			{Role: "user", Content: "Hi"},
		},
		nil,
		"claude-sonnet-4.6",
		map[string]any{},
	)
	require.NoError(t, err)
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are helpful", params.System[0].Text)
	assert.Len(t, params.Messages, 1, "system prompt rides in the system field, not messages")
}

func TestBuildParamsToolCallMessage(t *testing.T) {
	params, err := buildParams(
		[]Message{
			{Role: "user", Content: "What's the weather?"},
			{Role: "assistant", ToolCalls: []ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"city": "SF"}},
			}},
			{Role: "tool", Content: `{"temp": 72}`, ToolCallID: "call_1"},
		},
		nil,
		"claude-sonnet-4.6",
		map[string]any{},
	)
	require.NoError(t, err)
	assert.Len(t, params.Messages, 3)
}

func TestBuildParamsMergesConsecutiveToolResults(t *testing.T) {
	params, err := buildParams(
		[]Message{
			{Role: "user", Content: "run both"},
			{Role: "assistant", ToolCalls: []ToolCall{
				{ID: "call_1", Name: "first", Arguments: map[string]any{}},
				{ID: "call_2", Name: "second", Arguments: map[string]any{}},
			}},
			{Role: "tool", Content: "a", ToolCallID: "call_1"},
			{Role: "tool", Content: "b", ToolCallID: "call_2"},
		},
		nil,
		"claude-sonnet-4.6",
		map[string]any{},
	)
	require.NoError(t, err)
	// user, assistant, one merged user message carrying both results
	assert.Len(t, params.Messages, 3)
}

func TestBuildParamsWithTools(t *testing.T) {
	tools := []ToolDefinition{
		{
			Type: "function",
			Function: ToolFunctionDefinition{
				Name:        "get_weather",
				Description: "Get weather for a city",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"city": map[string]any{"type": "string"},
					},
					"required": []any{"city"},
				},
			},
		},
	}
	params, err := buildParams([]Message{{Role: "user", Content: "Hi"}}, tools, "claude-sonnet-4.6", map[string]any{})
	require.NoError(t, err)
	require.Len(t, params.Tools, 1)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, []string{"city"}, params.Tools[0].OfTool.InputSchema.Required)
}

func TestParseResponseStopReasons(t *testing.T) {
	tests := []struct {
		stopReason anthropic.StopReason
		want       string
	}{
		{anthropic.StopReasonEndTurn, "stop"},
		{anthropic.StopReasonMaxTokens, "length"},
		{anthropic.StopReasonToolUse, "tool_calls"},
	}
	for _, tt := range tests {
		result := parseResponse(&anthropic.Message{StopReason: tt.stopReason})
		assert.Equal(t, tt.want, result.FinishReason)
	}
}

func TestParseResponseUsage(t *testing.T) {
	resp := &anthropic.Message{
		Usage: anthropic.Usage{InputTokens: 10, OutputTokens: 20},
	}
	result := parseResponse(resp)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 10, result.Usage.PromptTokens)
	assert.Equal(t, 20, result.Usage.CompletionTokens)
	assert.Equal(t, 30, result.Usage.TotalTokens)
}

func TestChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "Hello! How can I help you?"},
			},
			"usage": map[string]any{
				"input_tokens":  15,
				"output_tokens": 8,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider := NewProviderWithClient(newTestClient(server.URL))
	resp, err := provider.Chat(
		t.Context(),
		[]Message{{Role: "user", Content: "Hello"}},
		nil,
		"claude-sonnet-4.6",
		map[string]any{"max_tokens": 1024},
	)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.PromptTokens)
}

func TestChatParsesToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4.6",
			"stop_reason": "tool_use",
			"content": []map[string]any{
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": map[string]any{"city": "SF"}},
			},
			"usage": map[string]any{
				"input_tokens":  5,
				"output_tokens": 5,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider := NewProviderWithClient(newTestClient(server.URL))
	resp, err := provider.Chat(t.Context(), []Message{{Role: "user", Content: "weather?"}}, nil, "claude-sonnet-4.6", nil)
	require.NoError(t, err)
	assert.Equal(t, "Let me check.", resp.Content)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.Equal(t, "SF", resp.ToolCalls[0].Arguments["city"])
}

func TestNewProviderWithBaseURLNormalizesV1Suffix(t *testing.T) {
	p := NewProviderWithBaseURL("key", "https://api.anthropic.com/v1/")
	assert.Equal(t, "https://api.anthropic.com", p.BaseURL())
}

func TestGetDefaultModel(t *testing.T) {
	p := NewProvider("key")
	assert.Equal(t, "claude-sonnet-4.6", p.GetDefaultModel())
}

func newTestClient(baseURL string) *anthropic.Client {
	c := anthropic.NewClient(
		anthropicoption.WithAPIKey("test-key"),
		anthropicoption.WithBaseURL(baseURL),
	)
	return &c
}
