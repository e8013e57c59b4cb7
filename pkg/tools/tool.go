// Package tools defines the tool protocol the agent loop drives: a
// registry of named tools, a capability surface (approval, risk,
// parallelism), and a result type where failure is data, never a panic.
package tools

import "context"

// RiskLevel classifies how dangerous an approval-gated tool is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ErrorKind categorizes tool failures so the loop (and the model) can
// react without parsing error strings.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindUnknownTool   ErrorKind = "unknown_tool"
	ErrorKindInvalidParams ErrorKind = "invalid_params"
	ErrorKindExecution     ErrorKind = "execution_failed"
	ErrorKindCancelled     ErrorKind = "cancelled"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON-schema object describing the tool's
	// arguments.
	Parameters() map[string]any
	RequiresApproval() bool
	ApprovalRiskLevel() RiskLevel
	// SupportsParallelism reports whether the tool may run concurrently
	// with other tool calls in the same step.
	SupportsParallelism() bool
	// ValidateParams checks args before execution. On rejection the
	// second return value explains what was wrong.
	ValidateParams(args map[string]any) (bool, string)
	Execute(ctx context.Context, args map[string]any) *ToolResult
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success   bool      `json:"success"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

func OKResult(output string) *ToolResult {
	return &ToolResult{Success: true, Output: output}
}

func ErrorResult(kind ErrorKind, message string) *ToolResult {
	return &ToolResult{Success: false, Error: message, ErrorKind: kind}
}

// ForModel renders the result as the content of a tool-role message.
func (r *ToolResult) ForModel() string {
	if r.Success {
		return r.Output
	}
	return "Error: " + r.Error
}

// StringArg extracts a required string argument from args.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}
