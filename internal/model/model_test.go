package model

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okampo/ragline/internal/chat"
)

func TestToGenkitRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role chat.Role
		want ai.Role
	}{
		{chat.RoleSystem, ai.RoleSystem},
		{chat.RoleUser, ai.RoleUser},
		{chat.RoleAssistant, ai.RoleModel},
		{chat.Role("unknown"), ai.RoleUser},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toGenkitRole(tt.role))
	}
}

func TestToGenkitMessages(t *testing.T) {
	t.Parallel()

	msgs := toGenkitMessages([]chat.Message{
		chat.System("be terse"),
		chat.User("question"),
		chat.Assistant("answer"),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, ai.RoleModel, msgs[2].Role)

	require.Len(t, msgs[1].Content, 1)
	assert.Equal(t, "question", msgs[1].Content[0].Text)
}
