// Package model adapts a Genkit-registered language model to the
// engine's StreamingModel contract.
package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/okampo/ragline/internal/chat"
	"github.com/okampo/ragline/internal/engine"
	"github.com/okampo/ragline/internal/log"
)

// Generator streams chat completions from a Genkit model.
// Safe for concurrent use; all state is captured at construction.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// New creates a Generator for the given provider-qualified model name
// (e.g. "googleai/gemini-2.5-flash", "ollama/llama3.3").
func New(g *genkit.Genkit, modelName string, logger log.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		g:         g,
		modelName: modelName,
		logger:    logger,
	}
}

// StreamChat implements engine.StreamingModel. Each text part of each
// response chunk is forwarded to cb as a delta; the accumulated final
// text is returned when the stream ends.
func (m *Generator) StreamChat(ctx context.Context, messages []chat.Message, cb engine.StreamCallback) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithMessages(toGenkitMessages(messages)...),
	}

	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				if err := cb(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	return resp.Text(), nil
}

// toGenkitMessages converts conversation turns to Genkit messages.
// Assistant turns map to the model role.
func toGenkitMessages(messages []chat.Message) []*ai.Message {
	out := make([]*ai.Message, len(messages))
	for i, msg := range messages {
		out[i] = &ai.Message{
			Role:    toGenkitRole(msg.Role),
			Content: []*ai.Part{ai.NewTextPart(msg.Content)},
		}
	}
	return out
}

func toGenkitRole(role chat.Role) ai.Role {
	switch role {
	case chat.RoleSystem:
		return ai.RoleSystem
	case chat.RoleAssistant:
		return ai.RoleModel
	default:
		return ai.RoleUser
	}
}
