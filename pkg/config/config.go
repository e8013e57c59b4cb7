// Package config loads runtime configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/typhonlabs/missioncore/pkg/fileutil"
)

// LLMConfig selects and authenticates the model provider.
type LLMConfig struct {
	Provider string `json:"provider" env:"MISSIONCORE_LLM_PROVIDER"`
	Model    string `json:"model" env:"MISSIONCORE_LLM_MODEL"`
	APIKey   string `json:"api_key" env:"MISSIONCORE_LLM_API_KEY"`
	BaseURL  string `json:"base_url" env:"MISSIONCORE_LLM_BASE_URL"`
}

// AgentConfig tunes the execution loop.
type AgentConfig struct {
	MaxSteps          int     `json:"max_steps" env:"MISSIONCORE_AGENT_MAX_STEPS"`
	ContextWindow     int     `json:"context_window" env:"MISSIONCORE_AGENT_CONTEXT_WINDOW"`
	MaxTokens         int     `json:"max_tokens" env:"MISSIONCORE_AGENT_MAX_TOKENS"`
	Temperature       float64 `json:"temperature" env:"MISSIONCORE_AGENT_TEMPERATURE"`
	SystemPrompt      string  `json:"system_prompt" env:"MISSIONCORE_AGENT_SYSTEM_PROMPT"`
	RequestsPerMinute int     `json:"requests_per_minute" env:"MISSIONCORE_AGENT_REQUESTS_PER_MINUTE"`
}

// StoreConfig configures large-result offloading.
type StoreConfig struct {
	Enabled          bool   `json:"enabled" env:"MISSIONCORE_STORE_ENABLED"`
	Path             string `json:"path" env:"MISSIONCORE_STORE_PATH"`
	OffloadThreshold int    `json:"offload_threshold" env:"MISSIONCORE_STORE_OFFLOAD_THRESHOLD"`
}

// WorkspaceConfig scopes filesystem tools and session state.
type WorkspaceConfig struct {
	Path                string `json:"path" env:"MISSIONCORE_WORKSPACE_PATH"`
	RestrictToWorkspace bool   `json:"restrict_to_workspace" env:"MISSIONCORE_WORKSPACE_RESTRICT"`
	StateDir            string `json:"state_dir" env:"MISSIONCORE_WORKSPACE_STATE_DIR"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"MISSIONCORE_LOG_LEVEL"`
	File  string `json:"file" env:"MISSIONCORE_LOG_FILE"`
}

type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Agent     AgentConfig     `json:"agent"`
	Store     StoreConfig     `json:"store"`
	Workspace WorkspaceConfig `json:"workspace"`
	Logging   LoggingConfig   `json:"logging"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".missioncore")
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
		},
		Agent: AgentConfig{
			MaxSteps:          30,
			ContextWindow:     128_000,
			MaxTokens:         8192,
			Temperature:       0.7,
			RequestsPerMinute: 0,
		},
		Store: StoreConfig{
			Enabled:          true,
			Path:             filepath.Join(base, "results.db"),
			OffloadThreshold: 5000,
		},
		Workspace: WorkspaceConfig{
			Path:                filepath.Join(base, "workspace"),
			RestrictToWorkspace: true,
			StateDir:            filepath.Join(base, "sessions"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config at path (missing file means pure
// defaults) and then applies MISSIONCORE_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config atomically so a crash mid-write never
// leaves a truncated file behind.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o600)
}
