// Package memory provides the per-run conversation buffer used to build
// the model prompt.
//
// A Buffer is seeded once with the caller-supplied history and lives for
// exactly one pipeline run. It is never shared across runs.
package memory

import (
	"sync"

	"github.com/okampo/ragline/internal/chat"
	"github.com/okampo/ragline/internal/tokens"
)

// Buffer holds ordered chat history with thread-safe access.
//
// The buffer is unbounded by default. When a positive token budget is
// set, Messages drops the oldest non-system turns that no longer fit,
// always keeping the newest turn; the underlying history is left intact.
//
// The zero value is NOT useful - use New to create instances.
type Buffer struct {
	mu          sync.RWMutex
	messages    []chat.Message
	tokenBudget int
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithTokenBudget bounds the history returned by Messages to roughly
// budget tokens. Zero or negative disables truncation.
func WithTokenBudget(budget int) Option {
	return func(b *Buffer) {
		b.tokenBudget = budget
	}
}

// New creates a Buffer seeded with the given history.
// Makes a defensive copy to prevent external modification.
func New(history []chat.Message, opts ...Option) *Buffer {
	b := &Buffer{
		messages: make([]chat.Message, len(history)),
	}
	copy(b.messages, history)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds messages to the end of the buffer.
func (b *Buffer) Append(msgs ...chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msgs...)
}

// Messages returns a copy of the buffered history, truncated to the
// token budget when one is configured.
func (b *Buffer) Messages() []chat.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]chat.Message, len(b.messages))
	copy(result, b.messages)

	if b.tokenBudget > 0 {
		result = truncate(result, b.tokenBudget)
	}
	return result
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// truncate removes oldest messages to fit within budget.
// A leading system message is always preserved, and so is the newest
// message even when it alone exceeds the budget: the model must always
// see the turn it is being asked to answer.
func truncate(msgs []chat.Message, budget int) []chat.Message {
	if tokens.EstimateMessages(msgs) <= budget {
		return msgs
	}

	result := make([]chat.Message, 0, len(msgs))

	start := 0
	if len(msgs) > 0 && msgs[0].Role == chat.RoleSystem {
		result = append(result, msgs[0])
		start = 1
	}

	remaining := budget - tokens.EstimateMessages(result)

	// Walk newest to oldest to find the cut point, keeping the most
	// recent turns that still fit.
	cut := len(msgs)
	for i := len(msgs) - 1; i >= start; i-- {
		cost := tokens.EstimateText(msgs[i].Content)
		if remaining < cost {
			break
		}
		remaining -= cost
		cut = i
	}

	if cut == len(msgs) && len(msgs) > start {
		cut = len(msgs) - 1
	}

	return append(result, msgs[cut:]...)
}
