package engine

import "github.com/okampo/ragline/internal/chat"

// EventType classifies a progress event.
type EventType string

// Progress event types.
const (
	// EventData marks a stage status update.
	EventData EventType = "data"

	// EventText carries an incremental model response chunk.
	EventText EventType = "text"
)

// EventStatus reports whether the emitting stage is still working.
type EventStatus string

// Progress event statuses.
const (
	StatusLoading EventStatus = "loading"
	StatusDone    EventStatus = "done"
)

// ProgressEvent is an incremental status or text message emitted during
// a run, before the final result is available. Events are immutable
// values delivered to the consumer in emission order.
type ProgressEvent struct {
	Type    EventType   `json:"type"`
	Status  EventStatus `json:"status"`
	Message string      `json:"message"`
}

// RetrievedNode is a scored document fragment produced by the Retriever
// for a single query. Nodes are ordered by descending relevance and
// exist only within one pipeline run.
type RetrievedNode struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is the terminal value of a pipeline run.
type Result struct {
	// Query is the user message that drove the run.
	Query string

	// Messages is the full message history sent to the model,
	// including the context-augmented turn and the assistant's
	// final message.
	Messages []chat.Message

	// Response is the full accumulated model response. Empty when
	// the model stream produced zero chunks.
	Response string

	// SourceNodes are the retrieved nodes the response was grounded on.
	SourceNodes []RetrievedNode
}

// Typed stage events. Each stage consumes the event produced by the
// previous one, making the state machine explicit instead of relying
// on dynamic dispatch.
type (
	retrieveEvent struct {
		query string
	}

	postProcessEvent struct {
		query string
		nodes []RetrievedNode
	}

	synthesizeEvent struct {
		query string
		nodes []RetrievedNode
	}
)
