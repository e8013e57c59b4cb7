// Package contextpack assembles the budgeted reminder block injected into
// every model call. Assembly is pure and deterministic: identical inputs
// yield byte-identical output, which keeps provider prefix caches stable.
package contextpack

import (
	"strings"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

// Header is the fixed first line of every context pack.
const Header = "CONTEXT PACK (BUDGETED)"

// Policy is the immutable budget configuration for pack assembly.
// MaxTotalChars is clamped at construction so the budget is always
// achievable: it never exceeds MaxItems * MaxCharsPerItem.
type Policy struct {
	MaxItems             int
	MaxCharsPerItem      int
	MaxTotalChars        int
	IncludeLatestToolsN  int
	AllowTools           []string // nil means all tools permitted
	AllowSelectors       []string // selectors exposed for handle fetches
}

// NewPolicy clamps and returns a policy. Non-positive fields fall back to
// the defaults.
func NewPolicy(maxItems, maxCharsPerItem, maxTotalChars, includeLatestN int) Policy {
	p := DefaultPolicy()
	if maxItems > 0 {
		p.MaxItems = maxItems
	}
	if maxCharsPerItem > 0 {
		p.MaxCharsPerItem = maxCharsPerItem
	}
	if maxTotalChars > 0 {
		p.MaxTotalChars = maxTotalChars
	}
	if includeLatestN > 0 {
		p.IncludeLatestToolsN = includeLatestN
	}
	return p.clamped()
}

// DefaultPolicy returns the stock budget: ten items of at most 400 chars,
// 2,000 chars total, previews from the five most recent tool results.
func DefaultPolicy() Policy {
	p := Policy{
		MaxItems:            10,
		MaxCharsPerItem:     400,
		MaxTotalChars:       2000,
		IncludeLatestToolsN: 5,
	}
	return p.clamped()
}

// WithAllowTools returns a copy of the policy restricted to the named tools.
func (p Policy) WithAllowTools(tools ...string) Policy {
	out := p
	out.AllowTools = append(make([]string, 0, len(tools)), tools...)
	return out
}

// WithAllowSelectors returns a copy of the policy advertising the given
// fetch selectors in the pack.
func (p Policy) WithAllowSelectors(selectors ...string) Policy {
	out := p
	out.AllowSelectors = append(make([]string, 0, len(selectors)), selectors...)
	return out
}

func (p Policy) clamped() Policy {
	if ceiling := p.MaxItems * p.MaxCharsPerItem; p.MaxTotalChars > ceiling {
		p.MaxTotalChars = ceiling
	}
	return p
}

func (p Policy) toolAllowed(name string) bool {
	if p.AllowTools == nil {
		return true
	}
	for _, t := range p.AllowTools {
		if t == name {
			return true
		}
	}
	return false
}

// Build assembles the context pack for one model call. It walks history
// newest-first collecting up to IncludeLatestToolsN tool-result previews
// (filtered by the allowlist), caps each to MaxCharsPerItem, and stops as
// soon as an item would push the running item total past MaxTotalChars.
// Items are admitted whole or not at all. The mission line is included only
// when the mission itself fits in one item's budget.
func Build(policy Policy, mission string, messages []providers.Message) string {
	var b strings.Builder
	b.WriteString(Header)

	if mission != "" && len([]rune(mission)) <= policy.MaxCharsPerItem {
		b.WriteString("\nMission: ")
		b.WriteString(mission)
	}

	if len(policy.AllowSelectors) > 0 {
		line := "Selectors: " + strings.Join(policy.AllowSelectors, ", ")
		b.WriteString("\n")
		b.WriteString(truncate(line, policy.MaxCharsPerItem))
	}

	items := collectPreviews(policy, messages)

	total := 0
	for _, item := range items {
		if total+len(item)+1 > policy.MaxTotalChars {
			break
		}
		b.WriteString("\n")
		b.WriteString(item)
		total += len(item) + 1
	}

	return b.String()
}

// collectPreviews returns capped preview lines, newest first.
func collectPreviews(policy Policy, messages []providers.Message) []string {
	var items []string
	for i := len(messages) - 1; i >= 0; i-- {
		if len(items) >= policy.IncludeLatestToolsN || len(items) >= policy.MaxItems {
			break
		}
		msg := messages[i]
		if msg.Role != "tool" || msg.Content == "" {
			continue
		}
		if !policy.toolAllowed(msg.Name) {
			continue
		}

		line := "- [" + msg.Name + "] " + flatten(msg.Content)
		items = append(items, truncate(line, policy.MaxCharsPerItem))
	}
	return items
}

// flatten folds a preview onto a single line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// truncate caps s at maxLen runes, appending "..." when cut. Never splits
// a multibyte rune.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
