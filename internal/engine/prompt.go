package engine

import (
	"fmt"
	"strings"
)

// Placeholders the context prompt template must contain.
const (
	placeholderContext = "{context}"
	placeholderMessage = "{message}"
)

// DefaultContextPrompt merges retrieved content and the latest user
// message into a single augmented turn.
const DefaultContextPrompt = "Here is some extra context from a knowledge base that may help you assist the user with their latest message.\n" +
	"If you don't know the answer, just say so. Don't try to make up an answer." +
	"\n-----\n{context}\n-----\n" +
	"Latest message: {message}"

// ContextPrompt renders retrieved context and the user query into the
// augmentation turn sent to the model.
type ContextPrompt struct {
	template string
}

// NewContextPrompt validates and returns a context prompt. An empty
// template selects DefaultContextPrompt. Templates missing either the
// {context} or {message} substitution point fail with ErrInvalidTemplate.
func NewContextPrompt(template string) (ContextPrompt, error) {
	if template == "" {
		template = DefaultContextPrompt
	}
	for _, placeholder := range []string{placeholderContext, placeholderMessage} {
		if !strings.Contains(template, placeholder) {
			return ContextPrompt{}, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, placeholder)
		}
	}
	return ContextPrompt{template: template}, nil
}

// Render substitutes the retrieved context and the user message into
// the template.
func (p ContextPrompt) Render(contextText, message string) string {
	return strings.NewReplacer(
		placeholderContext, contextText,
		placeholderMessage, message,
	).Replace(p.template)
}
