package agent

// ProgressEventType identifies the kind of loop lifecycle event.
type ProgressEventType int

const (
	// EventStepStarted fires at the top of each loop step.
	EventStepStarted ProgressEventType = iota
	// EventModelCallStarted fires before calling the model.
	EventModelCallStarted
	// EventModelDelta fires for each text fragment when the provider
	// streams its response.
	EventModelDelta
	// EventToolCallStarted fires before executing a step's tool calls.
	EventToolCallStarted
	// EventToolCallCompleted fires after a tool execution finishes.
	EventToolCallCompleted
	// EventCompressionApplied fires when history was compressed.
	EventCompressionApplied
	// EventResultStored fires when a large tool output was offloaded.
	EventResultStored
	// EventCompleted fires when the mission produced a final answer.
	EventCompleted
	// EventPaused fires when the run stopped to ask the user something.
	EventPaused
	// EventFailed fires when the run aborted.
	EventFailed
)

// ProgressEvent is one entry in the stream emitted by ExecuteStream.
type ProgressEvent struct {
	Type ProgressEventType
	Data any
}

// StepStartedData carries the step index about to run.
type StepStartedData struct {
	Step int
}

// ModelDeltaData carries one streamed text fragment of the response
// being generated.
type ModelDeltaData struct {
	Content string
}

// ToolCallStartedData carries a tool call that is about to execute.
type ToolCallStartedData struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallCompletedData carries the outcome of one tool call.
type ToolCallCompletedData struct {
	ID      string
	Name    string
	Success bool
	Output  string
}

// CompressionAppliedData reports how much history compression removed.
type CompressionAppliedData struct {
	Before int
	After  int
}

// ResultStoredData reports an offloaded tool result.
type ResultStoredData struct {
	Handle    string
	Tool      string
	SizeChars int
}

// ResultData carries the final ExecutionResult on the terminal event.
type ResultData struct {
	Result *ExecutionResult
}
