package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	tool := NewReadFileTool(dir, true)
	result := tool.Execute(context.Background(), map[string]any{"path": "note.txt"})
	require.True(t, result.Success)
	assert.Equal(t, "hello", result.Output)
}

func TestReadFileToolMissingFile(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), true)
	result := tool.Execute(context.Background(), map[string]any{"path": "absent.txt"})
	require.False(t, result.Success)
	assert.Equal(t, ErrorKindExecution, result.ErrorKind)
}

func TestReadFileToolValidation(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), true)
	ok, reason := tool.ValidateParams(map[string]any{})
	assert.False(t, ok)
	assert.Equal(t, "path is required", reason)
}

func TestWriteFileToolCreatesParents(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir, true)

	result := tool.Execute(context.Background(), map[string]any{
		"path":    "sub/deep/out.txt",
		"content": "payload",
	})
	require.True(t, result.Success)

	data, err := os.ReadFile(filepath.Join(dir, "sub", "deep", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRestrictedToolsDenyEscape(t *testing.T) {
	dir := t.TempDir()
	read := NewReadFileTool(dir, true)
	write := NewWriteFileTool(dir, true)

	for _, path := range []string{"../outside.txt", "/etc/passwd"} {
		result := read.Execute(context.Background(), map[string]any{"path": path})
		assert.False(t, result.Success, "read %s", path)

		result = write.Execute(context.Background(), map[string]any{"path": path, "content": "x"})
		assert.False(t, result.Success, "write %s", path)
	}
}

func TestListDirTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	tool := NewListDirTool(dir, true)
	result := tool.Execute(context.Background(), map[string]any{"path": "."})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "FILE: a.txt")
	assert.Contains(t, result.Output, "DIR:  sub")
}

func TestWriteFileToolApprovalSurface(t *testing.T) {
	tool := NewWriteFileTool(t.TempDir(), true)
	assert.True(t, tool.RequiresApproval())
	assert.Equal(t, RiskMedium, tool.ApprovalRiskLevel())
	assert.False(t, tool.SupportsParallelism())
}
