package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/typhonlabs/missioncore/pkg/fileutil"
)

// fsAccess resolves paths for the filesystem tools. With restrict set,
// everything goes through os.Root so symlinks cannot escape the
// workspace.
type fsAccess struct {
	workspace string
	restrict  bool
}

func (a fsAccess) resolve(path string) (string, error) {
	if !a.restrict {
		return path, nil
	}
	if a.workspace == "" {
		return "", fmt.Errorf("workspace is not defined")
	}
	rel := path
	if filepath.IsAbs(path) {
		var err error
		rel, err = filepath.Rel(a.workspace, path)
		if err != nil || !filepath.IsLocal(rel) {
			return "", fmt.Errorf("access denied: path is outside the workspace")
		}
	} else if !filepath.IsLocal(filepath.Clean(path)) {
		return "", fmt.Errorf("access denied: path is outside the workspace")
	}
	return rel, nil
}

func (a fsAccess) read(path string) ([]byte, error) {
	rel, err := a.resolve(path)
	if err != nil {
		return nil, err
	}
	if !a.restrict {
		return os.ReadFile(rel)
	}
	root, err := os.OpenRoot(a.workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	defer root.Close()
	return root.ReadFile(rel)
}

func (a fsAccess) write(path string, data []byte) error {
	rel, err := a.resolve(path)
	if err != nil {
		return err
	}
	if !a.restrict {
		return fileutil.WriteFileAtomic(rel, data, 0o600)
	}
	root, err := os.OpenRoot(a.workspace)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer root.Close()
	if dir := filepath.Dir(rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent directories: %w", err)
		}
	}
	return root.WriteFile(rel, data, 0o600)
}

func (a fsAccess) list(path string) ([]os.DirEntry, error) {
	rel, err := a.resolve(path)
	if err != nil {
		return nil, err
	}
	if !a.restrict {
		return os.ReadDir(rel)
	}
	root, err := os.OpenRoot(a.workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	defer root.Close()
	f, err := root.Open(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	defer f.Close()
	return f.ReadDir(-1)
}

type ReadFileTool struct {
	fs fsAccess
}

func NewReadFileTool(workspace string, restrict bool) *ReadFileTool {
	return &ReadFileTool{fs: fsAccess{workspace: workspace, restrict: restrict}}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file" }

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) RequiresApproval() bool { return false }
func (t *ReadFileTool) ApprovalRiskLevel() RiskLevel { return RiskLow }
func (t *ReadFileTool) SupportsParallelism() bool { return true }

func (t *ReadFileTool) ValidateParams(args map[string]any) (bool, string) {
	if _, ok := StringArg(args, "path"); !ok {
		return false, "path is required"
	}
	return true, ""
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) *ToolResult {
	path, _ := StringArg(args, "path")
	content, err := t.fs.read(path)
	if err != nil {
		return ErrorResult(ErrorKindExecution, err.Error())
	}
	return OKResult(string(content))
}

type WriteFileTool struct {
	fs fsAccess
}

func NewWriteFileTool(workspace string, restrict bool) *WriteFileTool {
	return &WriteFileTool{fs: fsAccess{workspace: workspace, restrict: restrict}}
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write content to a file" }

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) RequiresApproval() bool { return true }
func (t *WriteFileTool) ApprovalRiskLevel() RiskLevel { return RiskMedium }
func (t *WriteFileTool) SupportsParallelism() bool { return false }

func (t *WriteFileTool) ValidateParams(args map[string]any) (bool, string) {
	if _, ok := StringArg(args, "path"); !ok {
		return false, "path is required"
	}
	if _, ok := args["content"].(string); !ok {
		return false, "content is required"
	}
	return true, ""
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) *ToolResult {
	path, _ := StringArg(args, "path")
	content := args["content"].(string)
	if err := t.fs.write(path, []byte(content)); err != nil {
		return ErrorResult(ErrorKindExecution, err.Error())
	}
	return OKResult(fmt.Sprintf("File written: %s", path))
}

type ListDirTool struct {
	fs fsAccess
}

func NewListDirTool(workspace string, restrict bool) *ListDirTool {
	return &ListDirTool{fs: fsAccess{workspace: workspace, restrict: restrict}}
}

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "List files and directories in a path" }

func (t *ListDirTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to list",
			},
		},
	}
}

func (t *ListDirTool) RequiresApproval() bool { return false }
func (t *ListDirTool) ApprovalRiskLevel() RiskLevel { return RiskLow }
func (t *ListDirTool) SupportsParallelism() bool { return true }

func (t *ListDirTool) ValidateParams(map[string]any) (bool, string) {
	return true, ""
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]any) *ToolResult {
	path, ok := StringArg(args, "path")
	if !ok {
		path = "."
	}
	entries, err := t.fs.list(path)
	if err != nil {
		return ErrorResult(ErrorKindExecution, err.Error())
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			b.WriteString("DIR:  " + entry.Name() + "\n")
		} else {
			b.WriteString("FILE: " + entry.Name() + "\n")
		}
	}
	return OKResult(b.String())
}
