package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/typhonlabs/missioncore/pkg/contextpack"
	"github.com/typhonlabs/missioncore/pkg/logger"
	"github.com/typhonlabs/missioncore/pkg/providers"
	"github.com/typhonlabs/missioncore/pkg/resultstore"
	"github.com/typhonlabs/missioncore/pkg/state"
	"github.com/typhonlabs/missioncore/pkg/tokens"
	"github.com/typhonlabs/missioncore/pkg/tools"
)

// Options configures an Agent. Zero values fall back to sensible
// defaults; Store may be nil, which degrades large results to
// sanitize-and-truncate.
type Options struct {
	Provider      providers.LLMProvider
	Model         string
	Registry      *tools.Registry
	States        state.Manager
	Store         *resultstore.Store
	ContextPolicy contextpack.Policy
	SystemPrompt  string

	MaxSteps         int
	ContextWindow    int
	MaxTokens        int
	Temperature      float64
	OffloadThreshold int

	// RequestsPerMinute, when positive, gates model calls through a
	// rate limiter shared by all sessions of this Agent.
	RequestsPerMinute int
}

// Agent executes missions. One Agent may serve many sessions
// concurrently; per-session state lives in the state manager and the
// result store, not on the Agent itself.
type Agent struct {
	provider         providers.LLMProvider
	model            string
	registry         *tools.Registry
	states           state.Manager
	store            *resultstore.Store
	policy           contextpack.Policy
	compressor       *Compressor
	systemPrompt     string
	maxSteps         int
	contextWindow    int
	maxTokens        int
	temperature      float64
	offloadThreshold int
	limiter          *rate.Limiter
}

func New(opts Options) (*Agent, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("agent: provider is required")
	}
	if opts.States == nil {
		return nil, fmt.Errorf("agent: state manager is required")
	}
	if opts.Registry == nil {
		opts.Registry = tools.NewRegistry()
	}
	if opts.Model == "" {
		opts.Model = opts.Provider.GetDefaultModel()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 128_000
	}
	if opts.OffloadThreshold <= 0 {
		opts.OffloadThreshold = DefaultOffloadThreshold
	}
	if opts.ContextPolicy.MaxItems == 0 {
		opts.ContextPolicy = contextpack.DefaultPolicy()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = "You are a capable assistant that completes missions using the available tools. Think step by step and use tools when they help."
	}

	a := &Agent{
		provider:         opts.Provider,
		model:            opts.Model,
		registry:         opts.Registry,
		states:           opts.States,
		store:            opts.Store,
		policy:           opts.ContextPolicy,
		compressor:       NewCompressor(opts.Provider, opts.Model),
		systemPrompt:     opts.SystemPrompt,
		maxSteps:         opts.MaxSteps,
		contextWindow:    opts.ContextWindow,
		maxTokens:        opts.MaxTokens,
		temperature:      opts.Temperature,
		offloadThreshold: opts.OffloadThreshold,
	}
	if opts.RequestsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}
	return a, nil
}

// Execute runs a mission to completion, pause, or failure. Reusing a
// session id resumes its saved state instead of starting over.
func (a *Agent) Execute(ctx context.Context, mission, sessionID string) *ExecutionResult {
	return a.run(ctx, mission, sessionID, "", nil)
}

// ExecuteStream runs the mission like Execute while emitting progress
// events. The channel closes after a terminal Completed, Paused, or
// Failed event carrying the ExecutionResult.
func (a *Agent) ExecuteStream(ctx context.Context, mission, sessionID string) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 16)
	go func() {
		defer close(events)
		emit := func(ev ProgressEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		a.run(ctx, mission, sessionID, "", emit)
	}()
	return events
}

// Resume continues a paused session with the user's reply to its
// pending question.
func (a *Agent) Resume(ctx context.Context, sessionID, reply string) *ExecutionResult {
	return a.run(ctx, "", sessionID, reply, nil)
}

func (a *Agent) run(ctx context.Context, mission, sessionID, reply string, emit func(ProgressEvent)) *ExecutionResult {
	// Only streaming runs have an event sink; they also opt in to
	// provider-side streaming so deltas can be surfaced.
	streaming := emit != nil
	if emit == nil {
		emit = func(ProgressEvent) {}
	}

	st, err := a.loadOrInitSession(mission, sessionID)
	if err != nil {
		return a.fail(st, sessionID, emit, fmt.Sprintf("load session: %v", err))
	}

	// Misuse of the pause protocol fails the call without touching the
	// saved session, so the pause stays resumable.
	if st.Status == StatusPaused {
		if reply == "" {
			return a.failWithoutPersist(st, emit,
				"session is paused awaiting a user reply; use resume")
		}
		a.applyReply(st, reply)
	} else if reply != "" {
		return a.failWithoutPersist(st, emit, "session has no pending question to answer")
	}

	for st.Step < a.maxSteps {
		emit(ProgressEvent{Type: EventStepStarted, Data: StepStartedData{Step: st.Step}})

		defs := a.registry.Definitions()
		if a.compressor.Needed(st.Messages, defs, a.contextWindow) {
			before := len(st.Messages)
			st.Messages = a.compressor.CompressToFit(ctx, st.Messages, defs, a.contextWindow)
			emit(ProgressEvent{Type: EventCompressionApplied, Data: CompressionAppliedData{
				Before: before,
				After:  len(st.Messages),
			}})
		}

		response, err := a.callModel(ctx, st, defs, emit, streaming)
		if err != nil {
			return a.fail(st, sessionID, emit, fmt.Sprintf("model call failed at step %d: %v", st.Step, err))
		}
		if response.Usage != nil {
			st.Usage.PromptTokens += response.Usage.PromptTokens
			st.Usage.CompletionTokens += response.Usage.CompletionTokens
			st.Usage.TotalTokens += response.Usage.TotalTokens
		}

		if len(response.ToolCalls) == 0 {
			st.Messages = append(st.Messages, providers.Message{Role: "assistant", Content: response.Content})
			st.Step++
			st.Status = StatusCompleted
			st.PendingQuestion = nil
			a.persist(st)

			result := a.result(st, response.Content)
			emit(ProgressEvent{Type: EventCompleted, Data: ResultData{Result: result}})
			logger.InfoCF("agent", "Mission completed", map[string]any{
				"session": st.SessionID,
				"steps":   st.Step,
			})
			return result
		}

		calls := make([]providers.ToolCall, 0, len(response.ToolCalls))
		for _, tc := range response.ToolCalls {
			calls = append(calls, providers.NormalizeToolCall(tc))
		}
		st.Messages = append(st.Messages, assistantMessage(response.Content, calls))

		pending := a.executeStep(ctx, st, calls, emit)
		st.Step++
		if pending != nil {
			st.Status = StatusPaused
			st.PendingQuestion = pending
			a.persist(st)

			result := a.result(st, "")
			emit(ProgressEvent{Type: EventPaused, Data: ResultData{Result: result}})
			logger.InfoCF("agent", "Mission paused for user input", map[string]any{
				"session": st.SessionID,
				"step":    st.Step,
			})
			return result
		}
		a.persist(st)
	}

	return a.fail(st, sessionID, emit,
		fmt.Sprintf("step limit exceeded after %d steps", a.maxSteps))
}

// executeStep runs one step's tool calls and appends their messages.
// If the model asked the user something, the remaining calls still run
// first so their results pair up, then the pending question is
// returned.
func (a *Agent) executeStep(ctx context.Context, st *sessionState, calls []providers.ToolCall, emit func(ProgressEvent)) *PendingQuestion {
	var pending *PendingQuestion
	execCalls := make([]providers.ToolCall, 0, len(calls))
	for _, tc := range calls {
		if tc.Name == tools.AskUserToolName && pending == nil {
			question, _ := tc.Arguments["question"].(string)
			qContext, _ := tc.Arguments["context"].(string)
			pending = &PendingQuestion{
				Question:   question,
				Context:    qContext,
				ToolCallID: tc.ID,
			}
			continue
		}
		emit(ProgressEvent{Type: EventToolCallStarted, Data: ToolCallStartedData{
			ID:   tc.ID,
			Name: tc.Name,
			Args: tc.Arguments,
		}})
		execCalls = append(execCalls, tc)
	}

	results := tools.ExecuteCalls(ctx, a.registry, execCalls)
	for i, tc := range execCalls {
		result := results[i]
		emit(ProgressEvent{Type: EventToolCallCompleted, Data: ToolCallCompletedData{
			ID:      tc.ID,
			Name:    tc.Name,
			Success: result.Success,
			Output:  result.Output,
		}})
		st.Messages = append(st.Messages, a.toolMessage(ctx, st, tc, result, emit))
	}
	return pending
}

// toolMessage renders one tool result as a history message, offloading
// oversized outputs to the store when one is configured.
func (a *Agent) toolMessage(ctx context.Context, st *sessionState, tc providers.ToolCall, result *tools.ToolResult, emit func(ProgressEvent)) providers.Message {
	msg := providers.Message{
		Role:       "tool",
		Name:       tc.Name,
		ToolCallID: tc.ID,
		Content:    result.ForModel(),
	}

	if a.store != nil && utf8.RuneCountInString(result.Output) > a.offloadThreshold {
		handle, err := a.store.Put(ctx, tc.Name, result, st.SessionID, map[string]any{
			"step":    st.Step,
			"success": result.Success,
		})
		if err == nil {
			msg.Content = handleRefContent(handle, result.Output)
			emit(ProgressEvent{Type: EventResultStored, Data: ResultStoredData{
				Handle:    handle.ID,
				Tool:      tc.Name,
				SizeChars: handle.SizeChars,
			}})
			return msg
		}
		// Store trouble is non-fatal; fall through to truncation.
		logger.WarnCF("agent", "Result store unavailable, truncating inline", map[string]any{
			"tool":  tc.Name,
			"error": err.Error(),
		})
	}

	return tokens.SanitizeMessage(msg, 0)
}

// handleRefContent is the weak reference embedded in history in place
// of an offloaded payload.
func handleRefContent(handle *resultstore.Handle, output string) string {
	preview := output
	if runes := []rune(preview); len(runes) > HandlePreviewChars {
		preview = string(runes[:HandlePreviewChars]) + "..."
	}
	ref := map[string]any{
		"handle":       handle.ID,
		"tool":         handle.Tool,
		"preview_text": preview,
		"truncated":    true,
		"size_chars":   handle.SizeChars,
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return "stored result " + handle.ID
	}
	return string(data)
}

func (a *Agent) callModel(ctx context.Context, st *sessionState, defs []providers.ToolDefinition, emit func(ProgressEvent), streaming bool) (*providers.LLMResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	pack := contextpack.Build(a.policy, st.Mission, st.Messages)

	// The context pack rides on the system message of the outgoing call
	// only; it is rebuilt each step and never persisted into history.
	callMessages := make([]providers.Message, len(st.Messages))
	for i, m := range st.Messages {
		callMessages[i] = tokens.SanitizeMessage(m, 0)
	}
	callMessages[0].Content = callMessages[0].Content + "\n\n" + pack

	emit(ProgressEvent{Type: EventModelCallStarted})
	logger.DebugCF("agent", "Model call", map[string]any{
		"session":  st.SessionID,
		"step":     st.Step,
		"model":    a.model,
		"messages": len(callMessages),
		"tools":    len(defs),
	})

	options := map[string]any{}
	if a.maxTokens > 0 {
		options["max_tokens"] = a.maxTokens
	}
	if a.temperature > 0 {
		options["temperature"] = a.temperature
	}

	if streaming {
		if sp, ok := a.provider.(providers.StreamingProvider); ok {
			return sp.ChatStream(ctx, callMessages, defs, a.model, options, func(delta providers.StreamDelta) {
				if delta.Content != "" {
					emit(ProgressEvent{Type: EventModelDelta, Data: ModelDeltaData{Content: delta.Content}})
				}
			})
		}
	}
	return a.provider.Chat(ctx, callMessages, defs, a.model, options)
}

func (a *Agent) loadOrInitSession(mission, sessionID string) (*sessionState, error) {
	raw, err := a.states.LoadState(sessionID)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		st, err := decodeState(raw)
		if err != nil {
			return nil, err
		}
		if mission != "" && len(st.Messages) == 0 {
			st.Mission = mission
			st.Messages = seedMessages(a.systemPrompt, mission)
		}
		return st, nil
	}

	return &sessionState{
		SessionID: sessionID,
		Mission:   mission,
		Messages:  seedMessages(a.systemPrompt, mission),
		Status:    "",
	}, nil
}

func seedMessages(systemPrompt, mission string) []providers.Message {
	return []providers.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: mission},
	}
}

// applyReply answers the pending ask_user call so the pair stays
// intact, then clears the pause marker.
func (a *Agent) applyReply(st *sessionState, reply string) {
	st.Messages = append(st.Messages, providers.Message{
		Role:       "tool",
		Name:       tools.AskUserToolName,
		ToolCallID: st.PendingQuestion.ToolCallID,
		Content:    reply,
	})
	st.Status = ""
	st.PendingQuestion = nil
}

func (a *Agent) persist(st *sessionState) {
	encoded, err := encodeState(st)
	if err != nil {
		logger.ErrorCF("agent", "Failed to encode session state", map[string]any{
			"session": st.SessionID,
			"error":   err.Error(),
		})
		return
	}
	if err := a.states.SaveState(st.SessionID, encoded); err != nil {
		logger.ErrorCF("agent", "Failed to persist session state", map[string]any{
			"session": st.SessionID,
			"error":   err.Error(),
		})
	}
}

func (a *Agent) result(st *sessionState, content string) *ExecutionResult {
	return &ExecutionResult{
		Status:          st.Status,
		SessionID:       st.SessionID,
		Content:         content,
		Steps:           st.Step,
		PendingQuestion: st.PendingQuestion,
		Usage:           st.Usage,
	}
}

func (a *Agent) failWithoutPersist(st *sessionState, emit func(ProgressEvent), message string) *ExecutionResult {
	result := &ExecutionResult{
		Status:          StatusFailed,
		SessionID:       st.SessionID,
		Steps:           st.Step,
		Usage:           st.Usage,
		PendingQuestion: st.PendingQuestion,
		Error:           message,
	}
	logger.WarnCF("agent", "Mission call rejected", map[string]any{
		"session": st.SessionID,
		"error":   message,
	})
	emit(ProgressEvent{Type: EventFailed, Data: ResultData{Result: result}})
	return result
}

func (a *Agent) fail(st *sessionState, sessionID string, emit func(ProgressEvent), message string) *ExecutionResult {
	result := &ExecutionResult{
		Status:    StatusFailed,
		SessionID: sessionID,
		Error:     message,
	}
	if st != nil {
		st.Status = StatusFailed
		a.persist(st)
		result.SessionID = st.SessionID
		result.Steps = st.Step
		result.Usage = st.Usage
		result.PendingQuestion = st.PendingQuestion
	}

	logger.ErrorCF("agent", "Mission failed", map[string]any{
		"session": result.SessionID,
		"steps":   result.Steps,
		"error":   message,
	})
	emit(ProgressEvent{Type: EventFailed, Data: ResultData{Result: result}})
	return result
}

func assistantMessage(content string, calls []providers.ToolCall) providers.Message {
	msg := providers.Message{Role: "assistant", Content: content}
	for _, tc := range calls {
		argsJSON, _ := json.Marshal(tc.Arguments)
		msg.ToolCalls = append(msg.ToolCalls, providers.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Name: tc.Name,
			Function: &providers.FunctionCall{
				Name:      tc.Name,
				Arguments: string(argsJSON),
			},
		})
	}
	return msg
}
