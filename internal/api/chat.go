package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okampo/ragline/internal/chat"
	"github.com/okampo/ragline/internal/engine"
	"github.com/okampo/ragline/internal/log"
	"github.com/okampo/ragline/internal/tokens"
)

// experimentalStreamHeader flags the experimental streaming semantics
// of the response body to clients.
const experimentalStreamHeader = "X-Experimental-Stream-Data"

// maxRequestBody limits chat request bodies to 1MB.
const maxRequestBody = 1 << 20

// Stream is the consumer side of one pipeline run, as the transport
// sees it: a drained event sequence followed by a final result.
// *engine.Handle satisfies it.
type Stream interface {
	Events() <-chan engine.ProgressEvent
	Wait() (*engine.Result, error)
}

// Runner starts pipeline runs. Interface defined here, by the consumer,
// so handler tests can substitute fakes.
type Runner interface {
	Run(ctx context.Context, query string, history []chat.Message) (Stream, error)
}

// EngineRunner adapts *engine.Engine to the Runner interface.
type EngineRunner struct {
	Engine *engine.Engine
}

// Run starts a pipeline run on the wrapped engine.
func (r EngineRunner) Run(ctx context.Context, query string, history []chat.Message) (Stream, error) {
	h, err := r.Engine.Run(ctx, query, history)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// chatHandler handles POST /api/chat.
type chatHandler struct {
	runner Runner
	logger log.Logger
}

// chatRequest is the request body for the chat endpoint.
type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// chat validates the conversation, starts a pipeline run, and streams
// progress and response chunks back as protocol lines.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Preconditions: at least one message, and the last one from the
	// user. Everything before it is prior history.
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "No messages provided")
		return
	}
	for _, msg := range req.Messages {
		if !msg.Role.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid message role")
			return
		}
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != chat.RoleUser {
		writeError(w, http.StatusBadRequest, "Last message must be from user")
		return
	}
	history := req.Messages[:len(req.Messages)-1]

	ctx := r.Context()
	stream, err := h.runner.Run(ctx, last.Content, history)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("starting chat run", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start chat run")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(experimentalStreamHeader, "true")

	h.streamRun(ctx, w, flusher, stream)
}

// streamRun drains the run's events into protocol lines, then emits the
// token-usage summary. Each line is flushed immediately; no buffering
// across events.
//
// Disconnect is checked before processing each event and again after
// the stream ends. On disconnect the transport stops consuming and
// never reports a result. The run shares the request context, so its
// in-flight collaborator calls are canceled as well.
func (h *chatHandler) streamRun(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, stream Stream) {
	for ev := range stream.Events() {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected, abandoning run")
			return
		default:
		}

		line, ok := encodeEvent(ev)
		if !ok {
			continue
		}
		if _, err := io.WriteString(w, line); err != nil {
			// Write failure usually means the connection closed.
			h.logger.Debug("writing stream line", "error", err)
			return
		}
		flusher.Flush()
	}

	// The event channel also closes when the producer aborts on a
	// canceled request, so the loop can exit without ever hitting the
	// per-event check. A dead client gets neither result nor error line.
	if ctx.Err() != nil {
		h.logger.Info("client disconnected, abandoning run")
		return
	}

	result, err := stream.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Info("client disconnected, abandoning run")
			return
		}
		h.logger.Error("chat run failed", "error", err)
		_, _ = io.WriteString(w, errorLine(err))
		flusher.Flush()
		return
	}

	inputTokens := tokens.EstimateMessages(result.Messages)
	outputTokens := tokens.EstimateText(result.Response)
	_, _ = io.WriteString(w, summaryLine(inputTokens, outputTokens))
	flusher.Flush()

	h.logger.Info("chat stream completed",
		"response_length", len(result.Response),
		"source_nodes", len(result.SourceNodes),
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
	)
}
