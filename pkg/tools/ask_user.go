package tools

import "context"

// AskUserToolName is intercepted by the orchestrator: invoking it
// pauses the run with a pending question instead of executing here.
const AskUserToolName = "ask_user"

// AskUserTool lets the model hand control back to the human. It exists
// so the model sees a definition for it; the orchestrator catches the
// call before Execute would run.
type AskUserTool struct{}

func NewAskUserTool() *AskUserTool {
	return &AskUserTool{}
}

func (t *AskUserTool) Name() string {
	return AskUserToolName
}

func (t *AskUserTool) Description() string {
	return "Ask the user a question and wait for their reply. Use this when you need information, a decision, or approval that only the user can provide. The run pauses until the user responds."
}

func (t *AskUserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question to ask the user",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "Optional background that helps the user answer",
			},
		},
		"required": []string{"question"},
	}
}

func (t *AskUserTool) RequiresApproval() bool {
	return false
}

func (t *AskUserTool) ApprovalRiskLevel() RiskLevel {
	return RiskLow
}

func (t *AskUserTool) SupportsParallelism() bool {
	return false
}

func (t *AskUserTool) ValidateParams(args map[string]any) (bool, string) {
	if _, ok := StringArg(args, "question"); !ok {
		return false, "question is required"
	}
	return true, ""
}

func (t *AskUserTool) Execute(_ context.Context, args map[string]any) *ToolResult {
	// Reached only when no orchestrator is driving the registry.
	question, _ := StringArg(args, "question")
	return ErrorResult(ErrorKindExecution, "ask_user requires an interactive run: "+question)
}
