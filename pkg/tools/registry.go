package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/typhonlabs/missioncore/pkg/logger"
	"github.com/typhonlabs/missioncore/pkg/providers"
)

// Registry holds the tools available to one agent run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// sortedToolNames returns tool names in sorted order for deterministic
// iteration. Non-deterministic map order would produce different tool
// definition lists on each model call, invalidating the provider's
// prefix cache even when nothing changed.
func (r *Registry) sortedToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedToolNames()
}

// Definitions returns provider-format tool definitions, sorted by name.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedToolNames()
	defs := make([]providers.ToolDefinition, 0, len(sorted))
	for _, name := range sorted {
		tool := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the named tool. Unknown tools, rejected parameters, and
// panics all come back as failed results so the loop can keep going.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result *ToolResult) {
	logger.InfoCF("tool", "Tool execution started", map[string]any{
		"tool": name,
		"args": args,
	})

	tool, ok := r.Get(name)
	if !ok {
		logger.ErrorCF("tool", "Tool not found", map[string]any{"tool": name})
		return ErrorResult(ErrorKindUnknownTool, fmt.Sprintf("tool %q not found", name))
	}

	if valid, reason := tool.ValidateParams(args); !valid {
		logger.WarnCF("tool", "Tool parameters rejected", map[string]any{
			"tool":   name,
			"reason": reason,
		})
		return ErrorResult(ErrorKindInvalidParams, reason)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("tool", "Tool panicked", map[string]any{
				"tool":  name,
				"panic": fmt.Sprint(rec),
			})
			result = ErrorResult(ErrorKindExecution, fmt.Sprintf("tool %s panicked: %v", name, rec))
		}
	}()

	start := time.Now()
	result = tool.Execute(ctx, args)
	duration := time.Since(start)

	if result == nil {
		result = ErrorResult(ErrorKindExecution, fmt.Sprintf("tool %s returned no result", name))
	}

	if result.Success {
		logger.InfoCF("tool", "Tool execution completed", map[string]any{
			"tool":          name,
			"duration_ms":   duration.Milliseconds(),
			"result_length": len(result.Output),
		})
	} else {
		logger.ErrorCF("tool", "Tool execution failed", map[string]any{
			"tool":        name,
			"duration_ms": duration.Milliseconds(),
			"error":       result.Error,
		})
	}
	return result
}
