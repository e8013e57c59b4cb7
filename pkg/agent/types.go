// Package agent drives the mission loop: it alternates between asking
// the model what to do next and executing the tools it requests, while
// keeping conversation state inside the model's input budget.
package agent

import (
	"github.com/typhonlabs/missioncore/pkg/providers"
)

// Status is the terminal state of one Execute call.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusFailed    Status = "failed"
)

// PendingQuestion records why a run paused: the model asked the user
// something and is waiting for the answer.
type PendingQuestion struct {
	Question   string `json:"question"`
	Context    string `json:"context,omitempty"`
	ToolCallID string `json:"tool_call_id"`
}

// ExecutionResult is what a mission run hands back to the caller. A
// failed run carries the session id and last completed step so it can
// be diagnosed or resumed.
type ExecutionResult struct {
	Status          Status              `json:"status"`
	SessionID       string              `json:"session_id"`
	Content         string              `json:"content,omitempty"`
	Steps           int                 `json:"steps"`
	PendingQuestion *PendingQuestion    `json:"pending_question,omitempty"`
	Error           string              `json:"error,omitempty"`
	Usage           providers.UsageInfo `json:"usage"`
}
