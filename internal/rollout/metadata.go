package rollout

import (
	"strings"

	"github.com/mfateev/codex-temporal-go/internal/models"
)

// imagePlaceholder is substituted for image-only user messages when
// deriving a thread's title/first_user_message.
//
// Maps to: §4.2.5 "Image-only messages use the placeholder [Image]"
const imagePlaceholder = "[Image]"

// userMessageBeginPrefix is stripped from the first EventMsg::UserMessage
// payload before it is used as a title/first_user_message.
const userMessageBeginPrefix = "<user_message_begin>"

// ThreadMetadata summarizes a thread, derived by scanning its rollout
// rather than stored redundantly on disk.
//
// Maps to: §4.2.5 ThreadMetadata
type ThreadMetadata struct {
	ID                string `json:"id"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
	Source            string `json:"source,omitempty"`
	ModelProvider     string `json:"model_provider,omitempty"`
	CWD               string `json:"cwd,omitempty"`
	CLIVersion        string `json:"cli_version,omitempty"`
	Title             string `json:"title,omitempty"`
	SandboxPolicy     string `json:"sandbox_policy,omitempty"`
	ApprovalMode      string `json:"approval_mode,omitempty"`
	TokensUsed        int    `json:"tokens_used,omitempty"`
	FirstUserMessage  string `json:"first_user_message,omitempty"`
	GitSHA            string `json:"git_sha,omitempty"`
	GitBranch         string `json:"git_branch,omitempty"`
	GitOriginURL      string `json:"git_origin_url,omitempty"`
	ArchivedAt        string `json:"archived_at,omitempty"`
}

// ExtractThreadMetadata scans a rollout's lines in order and builds its
// ThreadMetadata. Title and FirstUserMessage come from the first
// UserMessage EventMsg, falling back to the first user-role response item
// if no such event was recorded, with the <user_message_begin> prefix
// stripped and image-only content replaced by "[Image]".
//
// Maps to: §4.2.5
func ExtractThreadMetadata(threadID string, lines []Line) ThreadMetadata {
	meta := ThreadMetadata{ID: threadID}

	var firstFound bool
	for _, line := range lines {
		item := line.Item
		ts := line.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
		if meta.CreatedAt == "" {
			meta.CreatedAt = ts
		}
		meta.UpdatedAt = ts

		switch item.Kind {
		case ItemKindSessionMeta:
			sm := item.SessionMetaItem
			if sm == nil {
				continue
			}
			meta.Source = sm.Originator
			meta.ModelProvider = sm.ModelProvider
			meta.CWD = sm.CWD
			meta.CLIVersion = sm.CLIVersion
			meta.GitSHA = sm.GitSHA
			meta.GitBranch = sm.GitBranch
			meta.GitOriginURL = sm.GitOriginURL

		case ItemKindEventMsg:
			em := item.EventMsgItem
			if em == nil || em.Kind != EventKindUserMessage || firstFound {
				continue
			}
			if em.UserMessage != nil {
				meta.FirstUserMessage, meta.Title = firstMessageText(em.UserMessage.Message)
				firstFound = true
			}

		case ItemKindResponseItem:
			ri := item.ResponseItem
			if ri == nil || firstFound {
				continue
			}
			if ri.Type == models.ItemTypeUserMessage && !strings.HasPrefix(ri.Content, environmentContextPrefix) &&
				!strings.HasPrefix(ri.Content, userInstructionsPrefix) {
				meta.FirstUserMessage, meta.Title = firstMessageText(ri.Content)
				firstFound = true
			}
		}
	}

	return meta
}

// firstMessageText strips the <user_message_begin> prefix and maps
// empty/image-only content to the "[Image]" placeholder, returning the
// same text for both FirstUserMessage and Title (the teacher's CLI
// truncates Title for display; that's a rendering concern, not a
// metadata-extraction one).
func firstMessageText(raw string) (firstUserMessage, title string) {
	text := strings.TrimPrefix(raw, userMessageBeginPrefix)
	text = strings.TrimSpace(text)
	if text == "" {
		text = imagePlaceholder
	}
	return text, text
}
