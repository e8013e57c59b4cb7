package agent

import "time"

const (
	// DefaultMaxSteps bounds the loop; exceeding it fails the mission.
	DefaultMaxSteps = 30

	// SummaryThreshold is the message count above which history is
	// compressed before the next model call.
	SummaryThreshold = 20

	// MessagesKeptAfterCompression is the number of most recent
	// messages carried verbatim past a compression.
	MessagesKeptAfterCompression = 10

	// DefaultOffloadThreshold is the output size in characters above
	// which a tool result moves to the result store.
	DefaultOffloadThreshold = 5000

	// HandlePreviewChars is how much of an offloaded output is kept
	// inline as the preview.
	HandlePreviewChars = 500

	// SummarizeMaxTokens caps the summarization response.
	SummarizeMaxTokens = 1024

	// SummarizeTemperature keeps summaries deterministic.
	SummarizeTemperature = 0.0

	// SummarizationTimeout bounds the summarization model call.
	SummarizationTimeout = 120 * time.Second

	// summaryContentCap limits how much of any one message reaches the
	// summarization prompt.
	summaryContentCap = 300

	// summaryArgsCap limits the tool-call argument preview in the
	// summarization prompt.
	summaryArgsCap = 100
)

// compressionMarker replaces the summarized range when the model cannot
// produce a summary.
const compressionMarker = "[History compressed for token budget. Earlier messages were dropped.]"
