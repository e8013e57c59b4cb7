package tools

import (
	"context"
	"errors"

	"github.com/typhonlabs/missioncore/pkg/resultstore"
)

// FetchResultTool retrieves a previously offloaded tool result by its
// handle id, optionally narrowed by a selector path or a character cap.
type FetchResultTool struct {
	store *resultstore.Store
}

func NewFetchResultTool(store *resultstore.Store) *FetchResultTool {
	return &FetchResultTool{store: store}
}

func (t *FetchResultTool) Name() string {
	return "fetch_result"
}

func (t *FetchResultTool) Description() string {
	return "Retrieve the full content of a stored tool result by its handle id. Use the selector to extract a specific field (e.g. 'data.rows') or max_chars to cap the size of large fields."
}

func (t *FetchResultTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"handle": map[string]any{
				"type":        "string",
				"description": "Handle id of the stored result",
			},
			"selector": map[string]any{
				"type":        "string",
				"description": "Optional path into the result to extract",
			},
			"max_chars": map[string]any{
				"type":        "integer",
				"description": "Optional cap spread across the result's large fields",
			},
		},
		"required": []string{"handle"},
	}
}

func (t *FetchResultTool) RequiresApproval() bool { return false }
func (t *FetchResultTool) ApprovalRiskLevel() RiskLevel { return RiskLow }
func (t *FetchResultTool) SupportsParallelism() bool { return true }

func (t *FetchResultTool) ValidateParams(args map[string]any) (bool, string) {
	if _, ok := StringArg(args, "handle"); !ok {
		return false, "handle is required"
	}
	return true, ""
}

func (t *FetchResultTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	handle, _ := StringArg(args, "handle")
	opts := resultstore.FetchOptions{}
	if sel, ok := StringArg(args, "selector"); ok {
		opts.Selector = sel
	}
	if mc, ok := args["max_chars"].(float64); ok && mc > 0 {
		opts.MaxChars = int(mc)
	}

	res, err := t.store.Fetch(ctx, handle, opts)
	if errors.Is(err, resultstore.ErrNotFound) {
		return ErrorResult(ErrorKindExecution, "no stored result for handle "+handle)
	}
	if err != nil {
		return ErrorResult(ErrorKindExecution, err.Error())
	}
	return OKResult(string(res.Payload))
}
