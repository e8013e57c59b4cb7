package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

func TestSanitizeToolPairsKeepsMatchedPairs(t *testing.T) {
	messages := []providers.Message{
		{Role: "system", Content: "sys"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{{ID: "tc-1", Name: "echo"}}},
		{Role: "tool", ToolCallID: "tc-1", Content: "result"},
		{Role: "assistant", Content: "done"},
	}

	out := sanitizeToolPairs(messages)
	assert.Equal(t, messages, out)
}

func TestSanitizeToolPairsDropsOrphanedResult(t *testing.T) {
	messages := []providers.Message{
		{Role: "system", Content: "sys"},
		{Role: "tool", ToolCallID: "tc-lost", Content: "result without its call"},
		{Role: "user", Content: "hi"},
	}

	out := sanitizeToolPairs(messages)
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
}

func TestSanitizeToolPairsDropsUnansweredAssistantCall(t *testing.T) {
	messages := []providers.Message{
		{Role: "system", Content: "sys"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{{ID: "tc-1", Name: "echo"}}},
	}

	out := sanitizeToolPairs(messages)
	require.Len(t, out, 1)
	assert.Equal(t, "system", out[0].Role)
}

func TestSanitizeToolPairsKeepsTextWhenStrippingCalls(t *testing.T) {
	messages := []providers.Message{
		{Role: "system", Content: "sys"},
		{
			Role:      "assistant",
			Content:   "I will check the file",
			ToolCalls: []providers.ToolCall{{ID: "tc-1", Name: "read_file"}},
		},
	}

	out := sanitizeToolPairs(messages)
	require.Len(t, out, 2)
	assert.Equal(t, "I will check the file", out[1].Content)
	assert.Empty(t, out[1].ToolCalls)
}

func TestSanitizeToolPairsPartialResults(t *testing.T) {
	// Two calls, only one answered: the assistant message is dropped,
	// the answered result survives the pass.
	messages := []providers.Message{
		{Role: "system", Content: "sys"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{
			{ID: "tc-1", Name: "echo"},
			{ID: "tc-2", Name: "echo"},
		}},
		{Role: "tool", ToolCallID: "tc-1", Content: "only answer"},
	}

	out := sanitizeToolPairs(messages)
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "tool", out[1].Role)
}
