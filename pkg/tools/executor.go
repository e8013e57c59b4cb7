package tools

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

// ExecuteCalls runs one step's tool calls. Calls whose tool declares
// SupportsParallelism run concurrently; everything else (including
// unknown tools) runs sequentially in call order. Results come back
// indexed to match calls, so the loop appends tool messages in the
// order the model issued them.
func ExecuteCalls(ctx context.Context, registry *Registry, calls []providers.ToolCall) []*ToolResult {
	results := make([]*ToolResult, len(calls))

	parallel := make([]bool, len(calls))
	for i, call := range calls {
		tool, ok := registry.Get(call.Name)
		parallel[i] = ok && tool.SupportsParallelism()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		if !parallel[i] {
			continue
		}
		g.Go(func() error {
			results[i] = registry.Execute(gctx, call.Name, call.Arguments)
			return nil
		})
	}

	for i, call := range calls {
		if parallel[i] {
			continue
		}
		results[i] = registry.Execute(ctx, call.Name, call.Arguments)
	}

	g.Wait()
	return results
}
