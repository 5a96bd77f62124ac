package rollout

import (
	"testing"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractThreadMetadataUsesFirstUserMessageEvent(t *testing.T) {
	lines := []Line{
		{Timestamp: time.Unix(1, 0), Item: NewSessionMeta(SessionMeta{
			Originator: "cli", ModelProvider: "openai", CWD: "/repo", CLIVersion: "1.2.3",
		})},
		{Timestamp: time.Unix(2, 0), Item: Item{
			Kind: ItemKindEventMsg,
			EventMsgItem: &EventMsg{
				Kind:        EventKindUserMessage,
				UserMessage: &UserMessageEvent{Message: "<user_message_begin>fix the bug"},
			},
		}},
		{Timestamp: time.Unix(3, 0), Item: NewResponseItem(models.ConversationItem{
			Type: models.ItemTypeAssistantMessage, Content: "ok",
		})},
	}

	meta := ExtractThreadMetadata("t1", lines)

	assert.Equal(t, "t1", meta.ID)
	assert.Equal(t, "cli", meta.Source)
	assert.Equal(t, "openai", meta.ModelProvider)
	assert.Equal(t, "/repo", meta.CWD)
	assert.Equal(t, "1.2.3", meta.CLIVersion)
	assert.Equal(t, "fix the bug", meta.FirstUserMessage)
	assert.Equal(t, "fix the bug", meta.Title)
}

func TestExtractThreadMetadataFallsBackToResponseItem(t *testing.T) {
	lines := []Line{
		{Timestamp: time.Unix(1, 0), Item: userMsg("<environment_context>cwd=/tmp</environment_context>")},
		{Timestamp: time.Unix(2, 0), Item: userMsg("real question")},
	}

	meta := ExtractThreadMetadata("t2", lines)
	assert.Equal(t, "real question", meta.FirstUserMessage)
}

func TestExtractThreadMetadataImageOnlyMessageUsesPlaceholder(t *testing.T) {
	lines := []Line{
		{Timestamp: time.Unix(1, 0), Item: Item{
			Kind: ItemKindEventMsg,
			EventMsgItem: &EventMsg{
				Kind:        EventKindUserMessage,
				UserMessage: &UserMessageEvent{Message: "<user_message_begin>"},
			},
		}},
	}

	meta := ExtractThreadMetadata("t3", lines)
	assert.Equal(t, "[Image]", meta.FirstUserMessage)
}
