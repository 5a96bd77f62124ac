package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/workflow"
)

// requestTimeout bounds every Bridge call dispatched from a handler — the
// same 30s ceiling cmd/client/main.go's Update calls already use.
const requestTimeout = 30 * time.Second

// BuildDispatchTable wires the JSON-RPC methods listed in SPEC_FULL.md
// §4.1 to a Bridge. Static map, not reflection — matches the teacher's
// explicit-switch style in internal/workflow/handlers.go.
func BuildDispatchTable(bridge Bridge, codexHome string) map[string]Handler {
	return map[string]Handler{
		// Threads v1
		"newConversation":        handleNewConversation(bridge),
		"sendUserMessage":        handleSendUserMessage(bridge),
		"sendUserTurn":           handleSendUserMessage(bridge), // same Update; v1 turn-context fields are additive, not yet modeled
		"interruptConversation":  handleInterruptConversation(bridge),
		"archiveConversation":    handleArchiveConversation(bridge),
		"listConversations":      handleListConversations(bridge),
		"addConversationListener": handleAddConversationListener(bridge),

		// Threads v2 aliases — same underlying operations, v2 method names
		"thread/start":   handleNewConversation(bridge),
		"thread/resume":  handleAddConversationListener(bridge), // reattach to an existing workflowId and replay its items
		"turn/start":     handleSendUserMessage(bridge),
		"turn/interrupt": handleInterruptConversation(bridge),

		// Approvals
		"execApproval":  handleExecApproval(bridge),
		"patchApproval": handleExecApproval(bridge), // patch approvals ride the same ApprovalResponse Update

		// Config
		"config/read":        handleConfigRead(codexHome),
		"config/value/write": handleConfigValueWrite(codexHome),
		"config/batch/write": handleConfigBatchWrite(codexHome),

		// Skills — no skill registry exists yet in this runtime.
		"skills/list": func(_ *Session, _ json.RawMessage) (interface{}, *Error) {
			return struct {
				Skills []string `json:"skills"`
			}{Skills: []string{}}, nil
		},
	}
}

func unmarshalParams(params json.RawMessage, v interface{}) *Error {
	if len(params) == 0 {
		return newError(CodeInvalidParams, "params required")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return newError(CodeInvalidParams, "invalid params: "+err.Error())
	}
	return nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func handleNewConversation(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req NewConversationParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		result, err := bridge.NewConversation(ctx, req)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return result, nil
	}
}

type sendUserMessageParams struct {
	WorkflowID string `json:"workflowId"`
	Message    string `json:"message"`
}

func handleSendUserMessage(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req sendUserMessageParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		accepted, err := bridge.SendUserMessage(ctx, req.WorkflowID, req.Message)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return accepted, nil
	}
}

type workflowIDParams struct {
	WorkflowID string `json:"workflowId"`
}

func handleInterruptConversation(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req workflowIDParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp, err := bridge.InterruptConversation(ctx, req.WorkflowID)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return resp, nil
	}
}

type archiveConversationParams struct {
	WorkflowID string `json:"workflowId"`
	Reason     string `json:"reason,omitempty"`
}

func handleArchiveConversation(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req archiveConversationParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp, err := bridge.ArchiveConversation(ctx, req.WorkflowID, req.Reason)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return resp, nil
	}
}

type listConversationsParams struct {
	HarnessWorkflowID string `json:"harnessWorkflowId"`
}

func handleListConversations(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req listConversationsParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		sessions, err := bridge.ListConversations(ctx, req.HarnessWorkflowID)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return struct {
			Conversations []workflow.SessionEntry `json:"conversations"`
		}{Conversations: sessions}, nil
	}
}

// handleAddConversationListener replies with an immediate snapshot of the
// thread's items; ongoing updates are pushed by startConversationPump
// (poll.go) as "item/added" notifications, started the first time a
// session successfully registers a listener for a given workflow id.
func handleAddConversationListener(bridge Bridge) Handler {
	return func(s *Session, params json.RawMessage) (interface{}, *Error) {
		var req workflowIDParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		items, err := bridge.ConversationItems(ctx, req.WorkflowID)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		startConversationPump(s, bridge, req.WorkflowID, len(items))
		return struct {
			Items []interface{} `json:"items"`
		}{Items: toInterfaceSlice(items)}, nil
	}
}

func toInterfaceSlice[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

type execApprovalParams struct {
	WorkflowID string   `json:"workflowId"`
	Approved   []string `json:"approved,omitempty"`
	Denied     []string `json:"denied,omitempty"`
}

func handleExecApproval(bridge Bridge) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req execApprovalParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		ctx, cancel := withTimeout()
		defer cancel()
		err := bridge.ApprovalResponse(ctx, req.WorkflowID, workflow.ApprovalResponse{
			Approved: req.Approved,
			Denied:   req.Denied,
		})
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		return struct{}{}, nil
	}
}
