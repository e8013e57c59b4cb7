package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Agent.MaxSteps)
	assert.Equal(t, 5000, cfg.Store.OffloadThreshold)
	assert.True(t, cfg.Workspace.RestrictToWorkspace)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"provider": "anthropic", "model": "claude-sonnet-4-5"},
		"agent": {"max_steps": 10}
	}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Agent.MaxSteps)
	assert.Equal(t, 128_000, cfg.Agent.ContextWindow, "unset fields keep defaults")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MISSIONCORE_LLM_API_KEY", "sk-env-key")
	t.Setenv("MISSIONCORE_AGENT_MAX_STEPS", "7")
	t.Setenv("MISSIONCORE_STORE_ENABLED", "false")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env-key", cfg.LLM.APIKey)
	assert.Equal(t, 7, cfg.Agent.MaxSteps)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.LLM.Model = "gpt-5"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", loaded.LLM.Model)

	// Atomic save leaves no temp files behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.json", entries[0].Name())
}
