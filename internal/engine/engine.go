package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/okampo/ragline/internal/chat"
	"github.com/okampo/ragline/internal/log"
	"github.com/okampo/ragline/internal/memory"
)

// DefaultTopK is the number of nodes retrieved per query when the
// configuration does not specify one.
const DefaultTopK = 3

// defaultEventBuffer is the capacity of the progress event channel.
// Large enough that a slow consumer rarely blocks the producer between
// stage transitions.
const defaultEventBuffer = 16

// Retriever returns the top-K most relevant document fragments for a
// query, ordered by descending relevance.
//
// Interfaces are defined by the consumer: the engine owns this contract
// and adapters (e.g. the pgvector knowledge store) implement it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]RetrievedNode, error)
}

// StreamCallback is called for each incremental chunk of a streamed
// model completion. Return an error to abort the stream.
type StreamCallback func(ctx context.Context, delta string) error

// StreamingModel streams a chat completion. The callback receives each
// delta as it arrives; the accumulated final text is returned once the
// stream is exhausted.
type StreamingModel interface {
	StreamChat(ctx context.Context, messages []chat.Message, cb StreamCallback) (string, error)
}

// NodePostProcessor is the extension point between retrieval and
// synthesis, for filtering or reranking retrieved nodes.
type NodePostProcessor interface {
	PostProcess(ctx context.Context, query string, nodes []RetrievedNode) ([]RetrievedNode, error)
}

// Config contains the collaborators and policy for an Engine.
// Lifecycle is tied to process startup: values are captured immutably
// at construction and shared by all runs.
type Config struct {
	Retriever Retriever      // Required
	Model     StreamingModel // Required
	Logger    log.Logger     // Optional: defaults to slog.Default()

	// TopK is the fixed number of nodes retrieved per query.
	// Zero selects DefaultTopK.
	TopK int

	// SystemPrompt, when non-empty, is prepended as a system message
	// before synthesis.
	SystemPrompt string

	// ContextPrompt overrides the default augmentation template.
	// Must contain {context} and {message} substitution points.
	ContextPrompt string

	// PostProcessor, when set, runs between retrieval and synthesis.
	PostProcessor NodePostProcessor

	// HistoryTokenBudget bounds the history sent to the model.
	// Zero disables truncation.
	HistoryTokenBudget int
}

// Engine orchestrates pipeline runs. It is stateless across runs and
// safe for concurrent use; each run owns its private memory buffer.
type Engine struct {
	retriever     Retriever
	model         StreamingModel
	logger        log.Logger
	topK          int
	systemPrompt  string
	prompt        ContextPrompt
	postProcessor NodePostProcessor
	historyBudget int
	eventBuffer   int
}

// New creates an Engine with the given configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("streaming model is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	prompt, err := NewContextPrompt(cfg.ContextPrompt)
	if err != nil {
		return nil, err
	}

	return &Engine{
		retriever:     cfg.Retriever,
		model:         cfg.Model,
		logger:        logger,
		topK:          topK,
		systemPrompt:  cfg.SystemPrompt,
		prompt:        prompt,
		postProcessor: cfg.PostProcessor,
		historyBudget: cfg.HistoryTokenBudget,
		eventBuffer:   defaultEventBuffer,
	}, nil
}

// Handle is the consumer side of one pipeline run: a lazy, single-pass
// sequence of progress events plus the final result.
type Handle struct {
	events chan ProgressEvent
	done   chan struct{}
	result *Result
	err    error
}

// Events returns the progress event stream for this run. The channel is
// closed once the run finishes; events arrive in emission order.
func (h *Handle) Events() <-chan ProgressEvent {
	return h.events
}

// Wait blocks until the run has finished and returns its result.
// The result is observable only after the event stream is drained:
// a full event buffer blocks the producer until the consumer catches up.
func (h *Handle) Wait() (*Result, error) {
	<-h.done
	return h.result, h.err
}

// emit delivers an event to the consumer, giving up when ctx is
// canceled so an abandoned run never leaks its producer goroutine.
func (h *Handle) emit(ctx context.Context, ev ProgressEvent) bool {
	select {
	case h.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run starts a pipeline run for the given query and prior history.
//
// Setup happens synchronously: invalid input fails here, before any
// events are emitted. The remaining stages execute on a producer
// goroutine whose events are consumed through the returned Handle.
// Canceling ctx abandons the run.
func (e *Engine) Run(ctx context.Context, query string, history []chat.Message) (*Handle, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if history == nil {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidInput)
	}

	var opts []memory.Option
	if e.historyBudget > 0 {
		opts = append(opts, memory.WithTokenBudget(e.historyBudget))
	}
	mem := memory.New(history, opts...)

	h := &Handle{
		events: make(chan ProgressEvent, e.eventBuffer),
		done:   make(chan struct{}),
	}

	e.logger.Debug("run started", "query_length", len(query), "history_length", mem.Len())

	go e.execute(ctx, query, mem, h)
	return h, nil
}

// execute drives the stages and publishes the terminal result.
// The events channel closes before done so Wait observes the result
// only after the last event is drained.
func (e *Engine) execute(ctx context.Context, query string, mem *memory.Buffer, h *Handle) {
	defer close(h.done)
	defer close(h.events)

	result, err := e.runStages(ctx, query, mem, h)
	h.result = result
	h.err = err
}

// runStages advances the state machine one stage at a time. Linear, no
// branching or loops, single pass per run.
func (e *Engine) runStages(ctx context.Context, query string, mem *memory.Buffer, h *Handle) (*Result, error) {
	pev, err := e.retrieve(ctx, h, retrieveEvent{query: query})
	if err != nil {
		return nil, err
	}

	sev, err := e.postProcess(ctx, pev)
	if err != nil {
		return nil, err
	}

	return e.synthesize(ctx, h, sev, mem)
}

// retrieve asks the Retriever for the top-K nodes, bracketing the call
// with loading/done progress events.
func (e *Engine) retrieve(ctx context.Context, h *Handle, ev retrieveEvent) (postProcessEvent, error) {
	if !h.emit(ctx, ProgressEvent{
		Type:    EventData,
		Status:  StatusLoading,
		Message: "Retrieving relevant nodes...",
	}) {
		return postProcessEvent{}, ctx.Err()
	}

	nodes, err := e.retriever.Retrieve(ctx, ev.query, e.topK)
	if err != nil {
		return postProcessEvent{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	e.logger.Debug("retrieved nodes", "count", len(nodes), "query_length", len(ev.query))

	if !h.emit(ctx, ProgressEvent{
		Type:    EventData,
		Status:  StatusDone,
		Message: fmt.Sprintf("Retrieved %d relevant nodes for context.", len(nodes)),
	}) {
		return postProcessEvent{}, ctx.Err()
	}

	return postProcessEvent{query: ev.query, nodes: nodes}, nil
}

// postProcess runs the configured post-processor, or passes nodes
// through untouched. Emits no events in the default configuration.
func (e *Engine) postProcess(ctx context.Context, ev postProcessEvent) (synthesizeEvent, error) {
	nodes := ev.nodes
	if e.postProcessor != nil {
		processed, err := e.postProcessor.PostProcess(ctx, ev.query, nodes)
		if err != nil {
			return synthesizeEvent{}, fmt.Errorf("post-process nodes: %w", err)
		}
		nodes = processed
	}
	return synthesizeEvent{query: ev.query, nodes: nodes}, nil
}

// synthesize builds the augmented prompt, streams the model completion
// and produces the terminal result.
func (e *Engine) synthesize(ctx context.Context, h *Handle, ev synthesizeEvent, mem *memory.Buffer) (*Result, error) {
	if !h.emit(ctx, ProgressEvent{
		Type:    EventData,
		Status:  StatusLoading,
		Message: "Synthesizing response...",
	}) {
		return nil, ctx.Err()
	}

	contextQuery := e.prompt.Render(joinNodeText(ev.nodes), ev.query)
	mem.Append(chat.User(contextQuery))

	messages := mem.Messages()
	if e.systemPrompt != "" {
		messages = append([]chat.Message{chat.System(e.systemPrompt)}, messages...)
	}

	if !h.emit(ctx, ProgressEvent{
		Type:    EventData,
		Status:  StatusDone,
		Message: "Finished creating response stream.",
	}) {
		return nil, ctx.Err()
	}

	response, err := e.model.StreamChat(ctx, messages, func(ctx context.Context, delta string) error {
		if delta == "" {
			return nil
		}
		if !h.emit(ctx, ProgressEvent{Type: EventText, Status: StatusLoading, Message: delta}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	// A zero-chunk stream yields an empty response rather than
	// undefined behavior.
	messages = append(messages, chat.Assistant(response))

	e.logger.Debug("synthesis complete",
		"response_length", len(response),
		"history_length", len(messages),
	)

	return &Result{
		Query:       ev.query,
		Messages:    messages,
		Response:    response,
		SourceNodes: ev.nodes,
	}, nil
}

// joinNodeText concatenates retrieved node contents for the context
// prompt, preserving relevance order.
func joinNodeText(nodes []RetrievedNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Content
	}
	return strings.Join(parts, "\n\n")
}
