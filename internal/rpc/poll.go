package rpc

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how often a conversation pump re-queries
// QueryGetConversationItems for newly appended items. The teacher's own
// workflow has no server-push primitive toward an external JSON-RPC
// client (Signals/Updates/Queries are all client-initiated), so the
// app-server's own notification stream is built by polling on its behalf.
const pollInterval = 500 * time.Millisecond

// startConversationPump starts (at most once per session+workflow pair) a
// background goroutine that polls a thread's conversation items and emits
// "item/added" notifications for anything appended since the listener's
// initial snapshot. Exits when the session's underlying connection closes
// (ctx passed to Bridge calls starts failing) or the workflow stops
// returning new items across pumpIdleLimit consecutive empty polls.
func startConversationPump(s *Session, bridge Bridge, workflowID string, seen int) {
	pumpsMu.Lock()
	key := pumpKey{session: s, workflowID: workflowID}
	if pumps[key] {
		pumpsMu.Unlock()
		return
	}
	pumps[key] = true
	pumpsMu.Unlock()

	go func() {
		defer func() {
			pumpsMu.Lock()
			delete(pumps, key)
			pumpsMu.Unlock()
		}()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			items, err := bridge.ConversationItems(ctx, workflowID)
			cancel()
			if err != nil {
				return
			}
			if len(items) <= seen {
				continue
			}
			newItems := items[seen:]
			seen = len(items)
			for _, item := range newItems {
				if notifyErr := s.Notify("item/added", struct {
					WorkflowID string      `json:"workflowId"`
					Item       interface{} `json:"item"`
				}{WorkflowID: workflowID, Item: item}); notifyErr != nil {
					return
				}
			}
		}
	}()
}

type pumpKey struct {
	session    *Session
	workflowID string
}

var (
	pumpsMu sync.Mutex
	pumps   = map[pumpKey]bool{}
)
