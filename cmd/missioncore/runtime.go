package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/typhonlabs/missioncore/pkg/agent"
	"github.com/typhonlabs/missioncore/pkg/config"
	"github.com/typhonlabs/missioncore/pkg/providers"
	anthropicprovider "github.com/typhonlabs/missioncore/pkg/providers/anthropic"
	"github.com/typhonlabs/missioncore/pkg/providers/openai_sdk"
	"github.com/typhonlabs/missioncore/pkg/resultstore"
	"github.com/typhonlabs/missioncore/pkg/state"
	"github.com/typhonlabs/missioncore/pkg/tools"
)

// appRuntime bundles everything a command needs to execute missions.
type appRuntime struct {
	agent *agent.Agent
	store *resultstore.Store
	cfg   *config.Config
}

func (rt *appRuntime) Close() {
	if rt.store != nil {
		rt.store.Close()
	}
}

func buildRuntime(cfg *config.Config) (*appRuntime, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	var store *resultstore.Store
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		store, err = resultstore.New(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}

	states, err := state.NewFileManager(cfg.Workspace.StateDir)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewAskUserTool())
	registry.Register(tools.NewReadFileTool(cfg.Workspace.Path, cfg.Workspace.RestrictToWorkspace))
	registry.Register(tools.NewWriteFileTool(cfg.Workspace.Path, cfg.Workspace.RestrictToWorkspace))
	registry.Register(tools.NewListDirTool(cfg.Workspace.Path, cfg.Workspace.RestrictToWorkspace))
	if store != nil {
		registry.Register(tools.NewFetchResultTool(store))
	}

	ag, err := agent.New(agent.Options{
		Provider:          provider,
		Model:             cfg.LLM.Model,
		Registry:          registry,
		States:            states,
		Store:             store,
		SystemPrompt:      cfg.Agent.SystemPrompt,
		MaxSteps:          cfg.Agent.MaxSteps,
		ContextWindow:     cfg.Agent.ContextWindow,
		MaxTokens:         cfg.Agent.MaxTokens,
		Temperature:       cfg.Agent.Temperature,
		OffloadThreshold:  cfg.Store.OffloadThreshold,
		RequestsPerMinute: cfg.Agent.RequestsPerMinute,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &appRuntime{agent: ag, store: store, cfg: cfg}, nil
}

func buildProvider(cfg *config.Config) (providers.LLMProvider, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "anthropic":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return anthropicprovider.NewProviderWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL), nil
	case "openai", "":
		return openai_sdk.NewProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or anthropic)", cfg.LLM.Provider)
	}
}

// buildStoreOnly opens just the result store, for the store subcommands
// that never talk to a model.
func buildStoreOnly(cfg *config.Config) (*resultstore.Store, error) {
	if !cfg.Store.Enabled {
		return nil, fmt.Errorf("result store is disabled in config")
	}
	return resultstore.New(cfg.Store.Path)
}
