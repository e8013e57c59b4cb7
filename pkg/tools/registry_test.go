package tools

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

// --- mock types ---

type mockTool struct {
	name         string
	parallel     bool
	validateMsg  string
	delay        time.Duration
	panicOnExec  bool
	executeCount atomic.Int32
	result       *ToolResult
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool " + m.name }
func (m *mockTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (m *mockTool) RequiresApproval() bool       { return false }
func (m *mockTool) ApprovalRiskLevel() RiskLevel { return RiskLow }
func (m *mockTool) SupportsParallelism() bool    { return m.parallel }

func (m *mockTool) ValidateParams(map[string]any) (bool, string) {
	if m.validateMsg != "" {
		return false, m.validateMsg
	}
	return true, ""
}

func (m *mockTool) Execute(_ context.Context, _ map[string]any) *ToolResult {
	m.executeCount.Add(1)
	if m.panicOnExec {
		panic("mock tool exploded")
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.result != nil {
		return m.result
	}
	return OKResult(m.name + "-ok")
}

// --- tests ---

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "echo"})

	result := r.Execute(context.Background(), "echo", map[string]any{})
	require.True(t, result.Success)
	assert.Equal(t, "echo-ok", result.Output)
	assert.Equal(t, ErrorKindNone, result.ErrorKind)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	result := r.Execute(context.Background(), "missing", map[string]any{})
	require.False(t, result.Success)
	assert.Equal(t, ErrorKindUnknownTool, result.ErrorKind)
	assert.Contains(t, result.Error, "missing")
}

func TestRegistryExecuteRejectsInvalidParams(t *testing.T) {
	r := NewRegistry()
	tool := &mockTool{name: "strict", validateMsg: "path is required"}
	r.Register(tool)

	result := r.Execute(context.Background(), "strict", map[string]any{})
	require.False(t, result.Success)
	assert.Equal(t, ErrorKindInvalidParams, result.ErrorKind)
	assert.Equal(t, "path is required", result.Error)
	assert.Zero(t, tool.executeCount.Load(), "rejected params never reach Execute")
}

func TestRegistryExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "bomb", panicOnExec: true})

	result := r.Execute(context.Background(), "bomb", map[string]any{})
	require.False(t, result.Success)
	assert.Equal(t, ErrorKindExecution, result.ErrorKind)
	assert.Contains(t, result.Error, "panicked")
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "zebra"})
	r.Register(&mockTool{name: "alpha"})
	r.Register(&mockTool{name: "mid"})

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Function.Name)
	assert.Equal(t, "mid", defs[1].Function.Name)
	assert.Equal(t, "zebra", defs[2].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
}

func TestExecuteCallsPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "slow", parallel: true, delay: 50 * time.Millisecond, result: OKResult("slow-ok")})
	r.Register(&mockTool{name: "fast", parallel: true, result: OKResult("fast-ok")})
	r.Register(&mockTool{name: "serial", result: OKResult("serial-ok")})

	calls := []providers.ToolCall{
		{ID: "tc-1", Name: "slow", Arguments: map[string]any{}},
		{ID: "tc-2", Name: "serial", Arguments: map[string]any{}},
		{ID: "tc-3", Name: "fast", Arguments: map[string]any{}},
	}

	results := ExecuteCalls(context.Background(), r, calls)
	require.Len(t, results, 3)
	assert.Equal(t, "slow-ok", results[0].Output)
	assert.Equal(t, "serial-ok", results[1].Output)
	assert.Equal(t, "fast-ok", results[2].Output)
}

func TestExecuteCallsRunsParallelToolsConcurrently(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "wait_a", parallel: true, delay: 80 * time.Millisecond})
	r.Register(&mockTool{name: "wait_b", parallel: true, delay: 80 * time.Millisecond})

	calls := []providers.ToolCall{
		{ID: "tc-1", Name: "wait_a", Arguments: map[string]any{}},
		{ID: "tc-2", Name: "wait_b", Arguments: map[string]any{}},
	}

	start := time.Now()
	results := ExecuteCalls(context.Background(), r, calls)
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Less(t, elapsed, 150*time.Millisecond, "parallel tools should overlap")
}

func TestExecuteCallsUnknownToolBecomesFailedResult(t *testing.T) {
	r := NewRegistry()
	calls := []providers.ToolCall{{ID: "tc-1", Name: "ghost", Arguments: map[string]any{}}}

	results := ExecuteCalls(context.Background(), r, calls)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, ErrorKindUnknownTool, results[0].ErrorKind)
}
