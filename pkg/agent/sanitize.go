package agent

import (
	"github.com/typhonlabs/missioncore/pkg/logger"
	"github.com/typhonlabs/missioncore/pkg/providers"
)

// sanitizeToolPairs ensures every assistant message with tool calls has
// matching tool results, and every tool result has its originating tool
// call. Orphans appear when compression truncates mid-pair; providers
// reject such histories, so the orphaned side is removed.
func sanitizeToolPairs(messages []providers.Message) []providers.Message {
	toolCallIDs := make(map[string]bool)
	for _, m := range messages {
		if m.Role == "assistant" {
			for _, tc := range m.ToolCalls {
				if tc.ID != "" {
					toolCallIDs[tc.ID] = true
				}
			}
		}
	}

	toolResultIDs := make(map[string]bool)
	for _, m := range messages {
		if m.Role == "tool" && m.ToolCallID != "" {
			toolResultIDs[m.ToolCallID] = true
		}
	}

	result := make([]providers.Message, 0, len(messages))
	removed := 0

	for _, m := range messages {
		switch {
		case m.Role == "tool" && m.ToolCallID != "":
			if toolCallIDs[m.ToolCallID] {
				result = append(result, m)
			} else {
				removed++
			}

		case m.Role == "assistant" && len(m.ToolCalls) > 0:
			allHaveResults := true
			for _, tc := range m.ToolCalls {
				if tc.ID != "" && !toolResultIDs[tc.ID] {
					allHaveResults = false
					break
				}
			}
			switch {
			case allHaveResults:
				result = append(result, m)
			case m.Content != "":
				// Keep the text, strip the unanswered calls.
				removed++
				result = append(result, providers.Message{Role: "assistant", Content: m.Content})
			default:
				removed++
			}

		default:
			result = append(result, m)
		}
	}

	if removed > 0 {
		logger.WarnCF("agent", "Removed orphaned tool pair messages", map[string]any{
			"removed_count": removed,
		})
	}
	return result
}
