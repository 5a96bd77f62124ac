// Package rollout persists threads as append-only JSONL files and
// provides the truncation/rollback and metadata-extraction operations
// needed to resume or rewind a thread.
//
// Corresponds to: codex-rs/core/src/rollout/{mod,truncation}.rs
package rollout

import (
	"time"

	"github.com/mfateev/codex-temporal-go/internal/models"
)

// ItemKind discriminates the tagged union a RolloutItem actually carries.
//
// Maps to: codex_protocol::protocol::RolloutItem
type ItemKind string

const (
	ItemKindResponseItem ItemKind = "response_item"
	ItemKindEventMsg     ItemKind = "event_msg"
	ItemKindSessionMeta  ItemKind = "session_meta"
)

// EventKind discriminates the EventMsg variants this package cares about.
// The orchestrator persists many more EventMsg variants to the rollout
// than truncation/metadata need to understand; only the ones that affect
// those two operations are modeled here.
type EventKind string

const (
	EventKindThreadRolledBack EventKind = "thread_rolled_back"
	EventKindUserMessage      EventKind = "user_message"
)

// ThreadRolledBackEvent marks that the last NumTurns user turns were
// removed from the effective thread history (via a client-issued rewind).
//
// Maps to: codex_protocol::protocol::ThreadRolledBackEvent
type ThreadRolledBackEvent struct {
	NumTurns int `json:"num_turns"`
}

// UserMessageEvent is the EventMsg counterpart of a user-role response
// item, used by thread-metadata extraction to find the first user message
// without re-deriving it from response items.
type UserMessageEvent struct {
	Message string `json:"message"`
}

// EventMsg is the tagged union of rollout event markers this package
// understands.
type EventMsg struct {
	Kind             EventKind              `json:"kind"`
	ThreadRolledBack *ThreadRolledBackEvent `json:"thread_rolled_back,omitempty"`
	UserMessage      *UserMessageEvent      `json:"user_message,omitempty"`
}

// SessionMeta is the one-per-file header item recording how a thread
// started.
//
// Maps to: codex-rs/core/src/rollout/mod.rs SessionMeta
type SessionMeta struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	CWD           string `json:"cwd,omitempty"`
	Originator    string `json:"originator,omitempty"` // "cli", "api", "exec"
	CLIVersion    string `json:"cli_version,omitempty"`
	GitSHA        string `json:"git_sha,omitempty"`
	GitBranch     string `json:"git_branch,omitempty"`
	GitOriginURL  string `json:"git_origin_url,omitempty"`
	ModelProvider string `json:"model_provider,omitempty"`
}

// Item is one line of a rollout file: exactly one of ResponseItem,
// EventMsgItem, or SessionMetaItem is populated, selected by Kind.
//
// Maps to: codex_protocol::protocol::RolloutItem
type Item struct {
	Kind ItemKind `json:"kind"`

	ResponseItem  *models.ConversationItem `json:"response_item,omitempty"`
	EventMsgItem  *EventMsg                `json:"event_msg,omitempty"`
	SessionMetaItem *SessionMeta           `json:"session_meta,omitempty"`
}

// Line is one newline-delimited JSON record in a rollout file.
//
// Maps to: §4.2.2 RolloutLine = {timestamp, item}
type Line struct {
	Timestamp time.Time `json:"timestamp"`
	Item      Item      `json:"item"`
}

// NewResponseItem wraps a conversation item as a rollout Item.
func NewResponseItem(item models.ConversationItem) Item {
	return Item{Kind: ItemKindResponseItem, ResponseItem: &item}
}

// NewThreadRolledBack wraps a rollback marker as a rollout Item.
func NewThreadRolledBack(numTurns int) Item {
	return Item{
		Kind: ItemKindEventMsg,
		EventMsgItem: &EventMsg{
			Kind:             EventKindThreadRolledBack,
			ThreadRolledBack: &ThreadRolledBackEvent{NumTurns: numTurns},
		},
	}
}

// NewSessionMeta wraps a session header as a rollout Item.
func NewSessionMeta(meta SessionMeta) Item {
	return Item{Kind: ItemKindSessionMeta, SessionMetaItem: &meta}
}
