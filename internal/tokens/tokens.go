// Package tokens provides rough token estimation for billing and
// diagnostics output.
//
// The estimates are intentionally approximate: rune count divided by 2
// is a conservative figure that works for both English (~4 chars/token)
// and CJK (~1.5 chars/token) text. Exact accounting belongs to the
// model provider, not this core.
package tokens

import (
	"unicode/utf8"

	"github.com/okampo/ragline/internal/chat"
)

// EstimateText returns a rough token count for a single string.
func EstimateText(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// EstimateMessages returns a rough token count for a message sequence.
func EstimateMessages(msgs []chat.Message) int {
	total := 0
	for _, msg := range msgs {
		total += EstimateText(msg.Content)
	}
	return total
}
