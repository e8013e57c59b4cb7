// Package redaction scrubs credentials from text before it reaches logs.
// Mission text and tool output routinely carry API keys pasted by users;
// nothing that looks like a secret may survive into a log sink.
package redaction

import (
	"fmt"
	"regexp"
	"sync"
)

const replacement = "[REDACTED]"

var (
	mu      sync.RWMutex
	enabled = true

	patterns = []*regexp.Regexp{
		// key=value style assignments for api keys, tokens and secrets
		regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret|secret[_-]?key|private[_-]?key|auth[_-]?token|access[_-]?token|refresh[_-]?token|password|passwd)\s*[=:]\s*['"]?[a-zA-Z0-9_\-\.]{8,}['"]?`),
		// bearer tokens in headers
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]{20,}`),
		// common provider key prefixes
		regexp.MustCompile(`\b(sk|pk|rk)-[a-zA-Z0-9_\-]{20,}\b`),
		regexp.MustCompile(`\bsk-ant-[a-zA-Z0-9_\-]{20,}\b`),
	}
)

// SetEnabled toggles redaction globally. Tests disable it to assert on
// raw log content.
func SetEnabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// Redact returns s with anything secret-shaped replaced.
func Redact(s string) string {
	mu.RLock()
	on := enabled
	mu.RUnlock()
	if !on || s == "" {
		return s
	}
	for _, re := range patterns {
		s = re.ReplaceAllString(s, replacement)
	}
	return s
}

// RedactFields redacts string values in a structured log field map.
// Non-string values are formatted and scanned; values that redact to
// something different are replaced with the redacted string form.
func RedactFields(fields map[string]any) map[string]any {
	mu.RLock()
	on := enabled
	mu.RUnlock()
	if !on || len(fields) == 0 {
		return fields
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = Redact(val)
		default:
			formatted := fmt.Sprintf("%v", v)
			if redacted := Redact(formatted); redacted != formatted {
				out[k] = redacted
			} else {
				out[k] = v
			}
		}
	}
	return out
}
