// Package tokens estimates the token cost of a prospective model call and
// enforces hard caps on message size. Estimation is deliberately
// conservative: over-estimating costs a little headroom, under-estimating
// causes provider-side overflow errors mid-mission.
package tokens

import (
	"encoding/json"
	"fmt"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

const (
	// CharsPerToken is the estimation ratio: 4 characters per token.
	CharsPerToken = 4

	// PerMessageOverhead covers role markers and framing per message.
	PerMessageOverhead = 10

	// PerToolOverhead covers the fixed cost of exposing one tool schema.
	PerToolOverhead = 50

	// SystemPromptOverhead covers the fixed envelope around the system turn.
	SystemPromptOverhead = 100

	// DefaultMaxChars caps a single message's content during sanitization.
	DefaultMaxChars = 50_000

	// DefaultToolMaxChars is the stricter cap for tool-role messages, whose
	// payloads should already have been offloaded or truncated upstream.
	DefaultToolMaxChars = 20_000

	// compressUsagePercent of the context window triggers compression.
	compressUsagePercent = 75
)

// EstimateTokens returns a conservative token estimate for a model call
// composed of the given messages, tool schemas, and context pack.
func EstimateTokens(messages []providers.Message, tools []providers.ToolDefinition, contextPack string) int {
	total := SystemPromptOverhead

	for _, m := range messages {
		total += len(m.Content)/CharsPerToken + PerMessageOverhead
		for _, tc := range m.ToolCalls {
			if tc.Function != nil {
				total += len(tc.Function.Arguments) / CharsPerToken
			}
		}
	}

	for _, t := range tools {
		total += PerToolOverhead
		if schema, err := json.Marshal(t.Function.Parameters); err == nil {
			total += len(schema) / CharsPerToken
		}
	}

	total += len(contextPack) / CharsPerToken
	return total
}

// IsOverBudget reports whether the estimate exceeds the context window.
func IsOverBudget(estimate, contextWindow int) bool {
	return estimate > contextWindow
}

// ShouldCompress reports whether the estimate has crossed the compression
// trigger (75% of the context window).
func ShouldCompress(estimate, contextWindow int) bool {
	if contextWindow <= 0 {
		return false
	}
	return estimate > contextWindow*compressUsagePercent/100
}

// SanitizeMessage returns a copy of msg with content and tool-call argument
// strings hard-capped at maxChars. maxChars <= 0 selects the role default.
// The input is never mutated and sanitization never fails: it is the last
// line of defense after budgeting and compression.
func SanitizeMessage(msg providers.Message, maxChars int) providers.Message {
	if maxChars <= 0 {
		if msg.Role == "tool" {
			maxChars = DefaultToolMaxChars
		} else {
			maxChars = DefaultMaxChars
		}
	}

	out := msg
	out.Content = capWithMarker(msg.Content, maxChars)

	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]providers.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			copied := tc
			if tc.Function != nil {
				fn := *tc.Function
				fn.Arguments = capWithMarker(fn.Arguments, maxChars)
				copied.Function = &fn
			}
			out.ToolCalls[i] = copied
		}
	}
	return out
}

// capWithMarker truncates s to maxChars runes and appends an explicit
// marker recording how much was omitted. Never cuts a multibyte rune.
func capWithMarker(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	omitted := len(runes) - maxChars
	return string(runes[:maxChars]) + fmt.Sprintf("[... SANITIZED - %d more chars omitted ...]", omitted)
}
