package rollout

import (
	"math"
	"strings"

	"github.com/mfateev/codex-temporal-go/internal/models"
)

// MaxFromStart, passed as n to TruncateBeforeNthUserMessageFromStart,
// means "no truncation" — the full rollout is returned.
//
// Maps to: Rust usize::MAX in truncate_rollout_before_nth_user_message_from_start
const MaxFromStart = math.MaxInt

// environmentContextPrefix and userInstructionsPrefix mark synthetic
// user-role messages injected by the orchestrator itself (environment
// context, AGENTS.md contents) rather than typed by the user. These are
// never turn boundaries.
//
// Maps to: §4.2.3 "except those starting with <environment_context> or
// <user_instructions>"
const (
	environmentContextPrefix = "<environment_context>"
	userInstructionsPrefix   = "<user_instructions>"
)

// isUserMessageBoundary reports whether item is a real user-authored
// turn boundary: a user-role response item whose content does not start
// with one of the synthetic session-prefix markers.
//
// Maps to: codex-rs/core/src/event_mapping.rs parse_turn_item, restricted
// to the UserMessage arm, as used by user_message_positions_in_rollout.
func isUserMessageBoundary(item *models.ConversationItem) bool {
	if item == nil || item.Type != models.ItemTypeUserMessage {
		return false
	}
	return !strings.HasPrefix(item.Content, environmentContextPrefix) &&
		!strings.HasPrefix(item.Content, userInstructionsPrefix)
}

// UserMessagePositions returns the indices of user-message turn
// boundaries in items, with ThreadRolledBack markers applied so the
// result reflects post-rollback history rather than the raw stream.
//
// Maps to: codex-rs/core/src/rollout/truncation.rs
// user_message_positions_in_rollout
func UserMessagePositions(items []Item) []int {
	var positions []int
	for idx, item := range items {
		switch item.Kind {
		case ItemKindResponseItem:
			if isUserMessageBoundary(item.ResponseItem) {
				positions = append(positions, idx)
			}
		case ItemKindEventMsg:
			if item.EventMsgItem != nil && item.EventMsgItem.Kind == EventKindThreadRolledBack {
				numTurns := 0
				if item.EventMsgItem.ThreadRolledBack != nil {
					numTurns = item.EventMsgItem.ThreadRolledBack.NumTurns
				}
				newLen := len(positions) - numTurns
				if newLen < 0 {
					newLen = 0
				}
				positions = positions[:newLen]
			}
		}
	}
	return positions
}

// TruncateBeforeNthUserMessageFromStart returns the prefix of items
// obtained by cutting strictly before the nth (0-based) effective user
// message boundary. If nFromStart is MaxFromStart, the full rollout is
// returned unmodified. If fewer than or equal to nFromStart user-message
// boundaries exist, the result is empty (out of range).
//
// Maps to: codex-rs/core/src/rollout/truncation.rs
// truncate_rollout_before_nth_user_message_from_start
func TruncateBeforeNthUserMessageFromStart(items []Item, nFromStart int) []Item {
	if nFromStart == MaxFromStart {
		out := make([]Item, len(items))
		copy(out, items)
		return out
	}

	positions := UserMessagePositions(items)
	if len(positions) <= nFromStart {
		return []Item{}
	}

	cutIdx := positions[nFromStart]
	out := make([]Item, cutIdx)
	copy(out, items[:cutIdx])
	return out
}
