package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/typhonlabs/missioncore/pkg/logger"
	"github.com/typhonlabs/missioncore/pkg/providers"
	"github.com/typhonlabs/missioncore/pkg/tokens"
)

// Compressor shrinks conversation history when it threatens the token
// budget. It asks the model for a summary built from sanitized
// previews; if that fails it falls back to deterministic truncation
// that never touches the model.
type Compressor struct {
	provider providers.LLMProvider
	model    string
}

func NewCompressor(provider providers.LLMProvider, model string) *Compressor {
	return &Compressor{provider: provider, model: model}
}

// Needed reports whether history must shrink before the next call.
func (c *Compressor) Needed(messages []providers.Message, tools []providers.ToolDefinition, contextWindow int) bool {
	if len(messages) > SummaryThreshold {
		return true
	}
	return tokens.ShouldCompress(tokens.EstimateTokens(messages, tools, ""), contextWindow)
}

// Compress returns a shortened history. Histories at or below the
// threshold come back unchanged without any model call. The first
// message (system prompt) is always preserved verbatim.
func (c *Compressor) Compress(ctx context.Context, messages []providers.Message) []providers.Message {
	if len(messages) <= SummaryThreshold {
		return messages
	}
	return c.compressKeeping(ctx, messages, MessagesKeptAfterCompression)
}

// CompressToFit shrinks history when either trigger fires: message count
// past SummaryThreshold, or estimated tokens past the compression
// threshold of the context window. The token path handles short histories
// of oversized messages, keeping a smaller tail when the default one
// would still blow the budget. Untriggered histories come back unchanged
// without any model call.
func (c *Compressor) CompressToFit(ctx context.Context, messages []providers.Message, tools []providers.ToolDefinition, contextWindow int) []providers.Message {
	if len(messages) > SummaryThreshold {
		return c.compressKeeping(ctx, messages, MessagesKeptAfterCompression)
	}
	if !tokens.ShouldCompress(tokens.EstimateTokens(messages, tools, ""), contextWindow) {
		return messages
	}

	keep := MessagesKeptAfterCompression
	if keep > len(messages)-2 {
		keep = len(messages) - 2
	}
	for keep > 1 {
		tail := make([]providers.Message, 0, keep+1)
		tail = append(tail, messages[0])
		tail = append(tail, messages[len(messages)-keep:]...)
		if !tokens.ShouldCompress(tokens.EstimateTokens(tail, tools, ""), contextWindow) {
			break
		}
		keep /= 2
	}
	if keep < 1 {
		// Nothing to fold away: system plus at most one other message.
		return messages
	}
	return c.compressKeeping(ctx, messages, keep)
}

// compressKeeping summarizes everything between the system prompt and
// the last keep messages. Callers guarantee that range is non-empty.
func (c *Compressor) compressKeeping(ctx context.Context, messages []providers.Message, keep int) []providers.Message {
	system := messages[0]
	kept := messages[len(messages)-keep:]
	toSummarize := messages[1 : len(messages)-keep]

	summary, err := c.summarize(ctx, toSummarize)
	if err != nil || summary == "" {
		if err != nil {
			logger.WarnCF("agent", "Summarization failed, falling back to truncation", map[string]any{
				"error": err.Error(),
			})
		}
		return c.fallback(messages, keep)
	}

	compressed := make([]providers.Message, 0, len(kept)+2)
	compressed = append(compressed, system)
	compressed = append(compressed, providers.Message{
		Role:    "system",
		Content: "Summary of earlier conversation:\n" + summary,
	})
	compressed = append(compressed, kept...)
	compressed = sanitizeToolPairs(compressed)

	logger.InfoCF("agent", "History compressed via summarization", map[string]any{
		"before": len(messages),
		"after":  len(compressed),
	})
	return compressed
}

// fallback is the deterministic path: system prompt, a marker, and the
// most recent messages. It must never call the model and never fail.
func (c *Compressor) fallback(messages []providers.Message, keep int) []providers.Message {
	kept := messages[len(messages)-keep:]

	compressed := make([]providers.Message, 0, len(kept)+2)
	compressed = append(compressed, messages[0])
	compressed = append(compressed, providers.Message{Role: "system", Content: compressionMarker})
	compressed = append(compressed, kept...)
	compressed = sanitizeToolPairs(compressed)

	logger.InfoCF("agent", "History compressed via truncation", map[string]any{
		"before": len(messages),
		"after":  len(compressed),
	})
	return compressed
}

func (c *Compressor) summarize(ctx context.Context, batch []providers.Message) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, SummarizationTimeout)
	defer cancel()

	prompt := "Summarize this conversation segment: the decisions made, the tool results obtained, and any context still needed to finish the task. Be concise.\n\n" +
		buildSafeSummaryInput(batch)

	response, err := c.provider.Chat(
		sctx,
		[]providers.Message{{Role: "user", Content: prompt}},
		nil,
		c.model,
		map[string]any{
			"max_tokens":  SummarizeMaxTokens,
			"temperature": SummarizeTemperature,
		},
	)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// buildSafeSummaryInput renders messages as capped preview lines. Full
// tool payloads and raw message objects never reach the summarization
// prompt; only Success/Error/Output previews and tool names do.
func buildSafeSummaryInput(messages []providers.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&sb, "[Message %d - %s] ", i+1, m.Role)

		if m.Role == "tool" {
			sb.WriteString(toolResultPreview(m.Content))
		} else {
			fmt.Fprintf(&sb, "Content: %s", capRunes(m.Content, summaryContentCap))
		}

		for _, tc := range m.ToolCalls {
			tc = providers.NormalizeToolCall(tc)
			args, _ := json.Marshal(tc.Arguments)
			fmt.Fprintf(&sb, " [Called %s(%s)]", tc.Name, capRunes(string(args), summaryArgsCap))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// toolResultPreview reduces a tool message's content to a structured
// preview line. Content that parses as a result object contributes its
// success flag and capped error/output; anything else is treated as
// raw output.
func toolResultPreview(content string) string {
	var parsed struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Output  string `json:"output"`
		Preview string `json:"preview_text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && parsed.Success != nil {
		out := parsed.Output
		if out == "" {
			out = parsed.Preview
		}
		return fmt.Sprintf("Success: %t, Error: %s, Output: %s",
			*parsed.Success, capRunes(parsed.Error, summaryArgsCap), capRunes(out, summaryContentCap))
	}
	return fmt.Sprintf("Output: %s", capRunes(content, summaryContentCap))
}

func capRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
