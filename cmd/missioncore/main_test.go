package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhonlabs/missioncore/pkg/agent"
	"github.com/typhonlabs/missioncore/pkg/config"
)

func TestBuildProviderDefaultsToOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = ""
	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.GetDefaultModel())
}

func TestBuildProviderAnthropic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "test-key"
	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4.6", p.GetDefaultModel())
}

func TestBuildProviderAnthropicRequiresKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	_, err := buildProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestBuildProviderUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "carrier-pigeon"
	_, err := buildProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestBuildRuntimeWiresTools(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.Path = dir + "/results.db"
	cfg.Workspace.Path = dir + "/workspace"
	cfg.Workspace.StateDir = dir + "/sessions"

	rt, err := buildRuntime(cfg)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.agent)
	require.NotNil(t, rt.store)
}

func TestPrintResultNilFails(t *testing.T) {
	require.Error(t, printResult(nil))
}

func TestPrintResultFailedSurfacesError(t *testing.T) {
	err := printResult(&agent.ExecutionResult{
		Status: agent.StatusFailed,
		Error:  "step limit exceeded after 30 steps",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit exceeded")
}
