package memory

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okampo/ragline/internal/chat"
)

func TestNew_DefensiveCopy(t *testing.T) {
	t.Parallel()

	history := []chat.Message{chat.User("original")}
	b := New(history)

	history[0].Content = "mutated"
	assert.Equal(t, "original", b.Messages()[0].Content)
}

func TestAppend_PreservesOrder(t *testing.T) {
	t.Parallel()

	b := New([]chat.Message{chat.User("one")})
	b.Append(chat.Assistant("two"))
	b.Append(chat.User("three"), chat.Assistant("four"))

	msgs := b.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "four", msgs[3].Content)
	assert.Equal(t, 4, b.Len())
}

func TestMessages_ReturnsCopy(t *testing.T) {
	t.Parallel()

	b := New([]chat.Message{chat.User("stable")})
	got := b.Messages()
	got[0].Content = "mutated"

	assert.Equal(t, "stable", b.Messages()[0].Content)
}

func TestMessages_NoBudgetKeepsAll(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 10_000)
	b := New([]chat.Message{chat.User(long), chat.Assistant(long)})
	assert.Len(t, b.Messages(), 2)
}

func TestMessages_TruncatesOldestFirst(t *testing.T) {
	t.Parallel()

	// 100 runes body, ~50 tokens each.
	body := strings.Repeat("a", 100)
	b := New([]chat.Message{
		chat.User("old " + body),
		chat.Assistant("mid " + body),
		chat.User("new " + body),
	}, WithTokenBudget(110))

	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "mid"))
	assert.True(t, strings.HasPrefix(msgs[1].Content, "new"))

	// Underlying history is untouched.
	assert.Equal(t, 3, b.Len())
}

func TestMessages_PreservesSystemMessage(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("b", 100)
	b := New([]chat.Message{
		chat.System("be terse"),
		chat.User("old " + body),
		chat.User("new " + body),
	}, WithTokenBudget(70))

	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "new"))
}

func TestMessages_NewestTurnSurvivesTightBudget(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("c", 100)
	b := New([]chat.Message{
		chat.System("sys"),
		chat.User("old " + body),
		chat.User("current " + body),
	}, WithTokenBudget(5))

	// Even when no turn fits the budget, the turn the model is being
	// asked to answer is kept alongside the system message.
	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "current"))
}

func TestMessages_NewestTurnSurvivesAppend(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("d", 100)
	b := New([]chat.Message{chat.User("old " + body)}, WithTokenBudget(10))
	b.Append(chat.User("augmented " + body))

	msgs := b.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "augmented"))
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	b := New([]chat.Message{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Append(chat.User("m"))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = b.Messages()
				_ = b.Len()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, b.Len())
}
