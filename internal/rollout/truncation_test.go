package rollout

import (
	"testing"

	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/stretchr/testify/assert"
)

// Maps to: codex-rs/core/src/rollout/truncation.rs tests

func userMsg(text string) Item {
	return NewResponseItem(models.ConversationItem{Type: models.ItemTypeUserMessage, Content: text})
}

func assistantMsg(text string) Item {
	return NewResponseItem(models.ConversationItem{Type: models.ItemTypeAssistantMessage, Content: text})
}

func TestTruncatesRolloutFromStartBeforeNthUserOnly(t *testing.T) {
	items := []Item{
		userMsg("u1"),
		assistantMsg("a1"),
		assistantMsg("a2"),
		userMsg("u2"),
		assistantMsg("a3"),
		NewResponseItem(models.ConversationItem{Type: models.ItemTypeReasoning, Content: "s"}),
		NewResponseItem(models.ConversationItem{Type: models.ItemTypeFunctionCall, Name: "tool", Arguments: "{}", CallID: "c1"}),
		assistantMsg("a4"),
	}

	truncated := TruncateBeforeNthUserMessageFromStart(items, 1)
	assert.Equal(t, items[:3], truncated)

	truncated2 := TruncateBeforeNthUserMessageFromStart(items, 2)
	assert.Empty(t, truncated2)
}

func TestTruncationMaxKeepsFullRollout(t *testing.T) {
	items := []Item{userMsg("u1"), assistantMsg("a1"), userMsg("u2")}

	truncated := TruncateBeforeNthUserMessageFromStart(items, MaxFromStart)
	assert.Equal(t, items, truncated)
}

func TestTruncatesRolloutFromStartAppliesThreadRollbackMarkers(t *testing.T) {
	items := []Item{
		userMsg("u1"),
		assistantMsg("a1"),
		userMsg("u2"),
		assistantMsg("a2"),
		NewThreadRolledBack(1),
		userMsg("u3"),
		assistantMsg("a3"),
		userMsg("u4"),
		assistantMsg("a4"),
	}

	// Effective user history after applying rollback(1) is: u1, u3, u4.
	// So n_from_start=2 should cut before u4 (not u3).
	truncated := TruncateBeforeNthUserMessageFromStart(items, 2)
	assert.Equal(t, items[:7], truncated)
}

func TestUserMessagePositionsSkipsSessionPrefixMessages(t *testing.T) {
	items := []Item{
		userMsg("<environment_context>cwd=/tmp</environment_context>"),
		userMsg("<user_instructions>be nice</user_instructions>"),
		userMsg("feature request"),
		assistantMsg("ack"),
		userMsg("second question"),
		assistantMsg("answer"),
	}

	positions := UserMessagePositions(items)
	assert.Equal(t, []int{2, 4}, positions)

	truncated := TruncateBeforeNthUserMessageFromStart(items, 1)
	assert.Equal(t, items[:4], truncated)
}

func TestTruncateOutOfRangeReturnsEmpty(t *testing.T) {
	items := []Item{userMsg("u1")}
	assert.Empty(t, TruncateBeforeNthUserMessageFromStart(items, 5))
}

func TestTruncateEmptyRolloutIsEmpty(t *testing.T) {
	assert.Empty(t, TruncateBeforeNthUserMessageFromStart(nil, MaxFromStart))
	assert.Empty(t, TruncateBeforeNthUserMessageFromStart(nil, 0))
}
