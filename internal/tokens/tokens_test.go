package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/okampo/ragline/internal/chat"
)

func TestEstimateText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char", "a", 0},
		{"ascii", "hello world!", 6},
		{"multibyte counts runes not bytes", "你好世界", 2},
		{"mixed", "hi 世界", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EstimateText(tt.text))
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, EstimateMessages(nil))

	msgs := []chat.Message{
		chat.System("be terse"), // 8 runes -> 4
		chat.User("hello"),      // 5 runes -> 2
		chat.Assistant("hi!!"),  // 4 runes -> 2
	}
	assert.Equal(t, 8, EstimateMessages(msgs))
}
