package agent

import (
	"context"
	"sync"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

type mockProvider struct {
	mu            sync.Mutex
	callCount     int
	responses     []providers.LLMResponse
	responseIndex int
	err           error
	// prompts records the message lists of every call, for asserting
	// what actually went to the model.
	prompts [][]providers.Message
}

func (m *mockProvider) Chat(
	_ context.Context,
	messages []providers.Message,
	_ []providers.ToolDefinition,
	_ string,
	_ map[string]any,
) (*providers.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.prompts = append(m.prompts, messages)

	if m.err != nil {
		return nil, m.err
	}

	if len(m.responses) > 0 {
		if m.responseIndex >= len(m.responses) {
			m.responseIndex = len(m.responses) - 1
		}
		resp := m.responses[m.responseIndex]
		m.responseIndex++
		return &resp, nil
	}

	return &providers.LLMResponse{Content: "Mock response"}, nil
}

func (m *mockProvider) GetDefaultModel() string {
	return "mock-model"
}

// streamingMockProvider also implements providers.StreamingProvider,
// delivering the response content in two fragments.
type streamingMockProvider struct {
	mockProvider
	streamCallCount int
}

func (m *streamingMockProvider) ChatStream(
	ctx context.Context,
	messages []providers.Message,
	tools []providers.ToolDefinition,
	model string,
	options map[string]any,
	onDelta func(providers.StreamDelta),
) (*providers.LLMResponse, error) {
	resp, err := m.Chat(ctx, messages, tools, model, options)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.streamCallCount++
	m.mu.Unlock()

	if onDelta != nil && resp.Content != "" {
		half := len(resp.Content) / 2
		onDelta(providers.StreamDelta{Content: resp.Content[:half]})
		onDelta(providers.StreamDelta{Content: resp.Content[half:]})
	}
	return resp, nil
}

func (m *streamingMockProvider) streamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCallCount
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) lastPrompt() []providers.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return nil
	}
	return m.prompts[len(m.prompts)-1]
}
