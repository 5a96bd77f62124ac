// Package eventmapping converts the orchestrator's flat
// models.ConversationItem history into the client-facing TurnItem union
// the app-server streams to callers.
//
// Maps to: codex-rs/core/src/event_mapping.rs parse_turn_item
package eventmapping

import (
	"strings"

	"github.com/mfateev/codex-temporal-go/internal/models"
)

// TurnItemKind discriminates the TurnItem union.
type TurnItemKind string

const (
	TurnItemUserMessage  TurnItemKind = "user_message"
	TurnItemAgentMessage TurnItemKind = "agent_message"
	TurnItemReasoning    TurnItemKind = "reasoning"
	TurnItemWebSearch    TurnItemKind = "web_search"
)

// TurnItem is the client-facing view of one conversation entry, distinct
// from models.ConversationItem in that it drops items with no
// client-visible meaning (system messages, the session-bootstrap
// <environment_context>/<user_instructions> user message) rather than
// forwarding them verbatim.
type TurnItem struct {
	Kind TurnItemKind `json:"kind"`

	// UserMessage / AgentMessage.
	Text string `json:"text,omitempty"`

	// Reasoning. The teacher's ConversationItem has no separate
	// summary/raw-content split, so both carry the same backing text;
	// a richer provider response would populate them independently.
	SummaryText string `json:"summary_text,omitempty"`
	RawContent  string `json:"raw_content,omitempty"`

	// WebSearch.
	ID    string `json:"id,omitempty"`
	Query string `json:"query,omitempty"`
}

// isSessionPrefix reports whether text opens with one of the two
// session-bootstrap markers the orchestrator injects ahead of the first
// real user turn — these must never reach a client as a TurnItem.
func isSessionPrefix(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(trimmed, "<environment_context>") ||
		strings.HasPrefix(trimmed, "<user_instructions>")
}

// ParseTurnItem maps one conversation entry to a TurnItem, or returns
// ok=false for entries with no client-visible representation: system
// messages (not modeled separately in models.ConversationItem, so never
// produced here), the session-bootstrap user message, and any item type
// not covered by the union (tool calls/results, turn markers, etc. —
// those are surfaced through their own JSON-RPC notifications, not as
// TurnItem history).
func ParseTurnItem(item models.ConversationItem) (TurnItem, bool) {
	switch item.Type {
	case models.ItemTypeUserMessage:
		if isSessionPrefix(item.Content) {
			return TurnItem{}, false
		}
		return TurnItem{Kind: TurnItemUserMessage, Text: item.Content}, true
	case models.ItemTypeAssistantMessage:
		return TurnItem{Kind: TurnItemAgentMessage, Text: item.Content}, true
	case models.ItemTypeReasoning:
		return TurnItem{
			Kind:        TurnItemReasoning,
			SummaryText: item.Content,
			RawContent:  item.Content,
		}, true
	case models.ItemTypeWebSearchCall:
		return TurnItem{
			Kind:  TurnItemWebSearch,
			ID:    item.CallID,
			Query: item.Content,
		}, true
	default:
		return TurnItem{}, false
	}
}

// ParseTurnItems maps a full history slice, dropping items with no
// client-visible representation, preserving order.
func ParseTurnItems(items []models.ConversationItem) []TurnItem {
	out := make([]TurnItem, 0, len(items))
	for _, item := range items {
		if ti, ok := ParseTurnItem(item); ok {
			out = append(out, ti)
		}
	}
	return out
}
