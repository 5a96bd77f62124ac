package rpc

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/mfateev/codex-temporal-go/internal/workflow"
)

// Bridge is everything a dispatch handler needs from the Temporal side,
// kept as an interface so dispatch.go's handlers are testable without a
// live Temporal server. TemporalBridge is the production implementation;
// it wraps exactly the same client.Client calls cmd/client/main.go makes
// by hand, just addressable by JSON-RPC method name instead of CLI flag.
type Bridge interface {
	NewConversation(ctx context.Context, req NewConversationParams) (NewConversationResult, error)
	SendUserMessage(ctx context.Context, sessionWorkflowID, content string) (workflow.UserInputAccepted, error)
	InterruptConversation(ctx context.Context, sessionWorkflowID string) (workflow.InterruptResponse, error)
	ArchiveConversation(ctx context.Context, sessionWorkflowID, reason string) (workflow.ShutdownResponse, error)
	ListConversations(ctx context.Context, harnessWorkflowID string) ([]workflow.SessionEntry, error)
	ConversationItems(ctx context.Context, sessionWorkflowID string) ([]models.ConversationItem, error)
	ApprovalResponse(ctx context.Context, sessionWorkflowID string, resp workflow.ApprovalResponse) error
	EscalationResponse(ctx context.Context, sessionWorkflowID string, resp workflow.EscalationResponse) error
}

// NewConversationParams starts a new session, either as a standalone
// AgenticWorkflow (HarnessWorkflowID empty) or as a child session of an
// existing long-lived harness (Threads v1's newConversation semantics).
type NewConversationParams struct {
	HarnessWorkflowID string                      `json:"harnessWorkflowId,omitempty"`
	UserMessage       string                      `json:"userMessage"`
	Config            models.SessionConfiguration `json:"config,omitempty"`
}

// NewConversationResult identifies the session the caller just started.
type NewConversationResult struct {
	SessionID  string `json:"sessionId,omitempty"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

const sessionTaskQueue = "codex-temporal"

// TemporalBridge is the production Bridge, talking to a real Temporal
// cluster. Grounded on cmd/client/main.go's dialTemporal/cmdStart/cmdSend/
// cmdHistory/cmdInterrupt/cmdEnd — this is the same set of calls, reachable
// over JSON-RPC instead of one-shot CLI invocations.
type TemporalBridge struct {
	Client    client.Client
	TaskQueue string
}

// NewTemporalBridge wraps an already-dialed Temporal client.
func NewTemporalBridge(c client.Client) *TemporalBridge {
	return &TemporalBridge{Client: c, TaskQueue: sessionTaskQueue}
}

func (b *TemporalBridge) taskQueue() string {
	if b.TaskQueue != "" {
		return b.TaskQueue
	}
	return sessionTaskQueue
}

func (b *TemporalBridge) NewConversation(ctx context.Context, req NewConversationParams) (NewConversationResult, error) {
	if req.HarnessWorkflowID != "" {
		updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
			WorkflowID:   req.HarnessWorkflowID,
			UpdateName:   workflow.UpdateStartSession,
			Args:         []interface{}{workflow.StartSessionRequest{UserMessage: req.UserMessage}},
			WaitForStage: client.WorkflowUpdateStageCompleted,
		})
		if err != nil {
			return NewConversationResult{}, fmt.Errorf("start_session update: %w", err)
		}
		var resp workflow.StartSessionResponse
		if err := updateHandle.Get(ctx, &resp); err != nil {
			return NewConversationResult{}, fmt.Errorf("start_session result: %w", err)
		}
		return NewConversationResult{SessionID: resp.SessionID, WorkflowID: resp.SessionWorkflowID}, nil
	}

	workflowID := fmt.Sprintf("codex-%d", time.Now().UnixNano())
	input := workflow.WorkflowInput{
		ConversationID: workflowID,
		UserMessage:    req.UserMessage,
		Config:         req.Config,
	}
	run, err := b.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: b.taskQueue(),
	}, "AgenticWorkflow", input)
	if err != nil {
		return NewConversationResult{}, fmt.Errorf("start workflow: %w", err)
	}
	return NewConversationResult{WorkflowID: workflowID, RunID: run.GetRunID()}, nil
}

func (b *TemporalBridge) SendUserMessage(ctx context.Context, sessionWorkflowID, content string) (workflow.UserInputAccepted, error) {
	var out workflow.UserInputAccepted
	updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   sessionWorkflowID,
		UpdateName:   workflow.UpdateUserInput,
		Args:         []interface{}{workflow.UserInput{Content: content}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return out, fmt.Errorf("user_input update: %w", err)
	}
	if err := updateHandle.Get(ctx, &out); err != nil {
		return out, fmt.Errorf("user_input result: %w", err)
	}
	return out, nil
}

func (b *TemporalBridge) InterruptConversation(ctx context.Context, sessionWorkflowID string) (workflow.InterruptResponse, error) {
	var out workflow.InterruptResponse
	updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   sessionWorkflowID,
		UpdateName:   workflow.UpdateInterrupt,
		Args:         []interface{}{workflow.InterruptRequest{}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return out, fmt.Errorf("interrupt update: %w", err)
	}
	if err := updateHandle.Get(ctx, &out); err != nil {
		return out, fmt.Errorf("interrupt result: %w", err)
	}
	return out, nil
}

func (b *TemporalBridge) ArchiveConversation(ctx context.Context, sessionWorkflowID, reason string) (workflow.ShutdownResponse, error) {
	var out workflow.ShutdownResponse
	updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   sessionWorkflowID,
		UpdateName:   workflow.UpdateShutdown,
		Args:         []interface{}{workflow.ShutdownRequest{Reason: reason}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return out, fmt.Errorf("shutdown update: %w", err)
	}
	if err := updateHandle.Get(ctx, &out); err != nil {
		return out, fmt.Errorf("shutdown result: %w", err)
	}
	return out, nil
}

func (b *TemporalBridge) ListConversations(ctx context.Context, harnessWorkflowID string) ([]workflow.SessionEntry, error) {
	resp, err := b.Client.QueryWorkflow(ctx, harnessWorkflowID, "", workflow.QueryGetSessions)
	if err != nil {
		return nil, fmt.Errorf("get_sessions query: %w", err)
	}
	var sessions []workflow.SessionEntry
	if err := resp.Get(&sessions); err != nil {
		return nil, fmt.Errorf("decode get_sessions result: %w", err)
	}
	return sessions, nil
}

func (b *TemporalBridge) ConversationItems(ctx context.Context, sessionWorkflowID string) ([]models.ConversationItem, error) {
	resp, err := b.Client.QueryWorkflow(ctx, sessionWorkflowID, "", workflow.QueryGetConversationItems)
	if err != nil {
		return nil, fmt.Errorf("get_conversation_items query: %w", err)
	}
	var items []models.ConversationItem
	if err := resp.Get(&items); err != nil {
		return nil, fmt.Errorf("decode get_conversation_items result: %w", err)
	}
	return items, nil
}

func (b *TemporalBridge) ApprovalResponse(ctx context.Context, sessionWorkflowID string, resp workflow.ApprovalResponse) error {
	updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   sessionWorkflowID,
		UpdateName:   workflow.UpdateApprovalResponse,
		Args:         []interface{}{resp},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return fmt.Errorf("approval_response update: %w", err)
	}
	var ack workflow.ApprovalResponseAck
	return updateHandle.Get(ctx, &ack)
}

func (b *TemporalBridge) EscalationResponse(ctx context.Context, sessionWorkflowID string, resp workflow.EscalationResponse) error {
	updateHandle, err := b.Client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   sessionWorkflowID,
		UpdateName:   workflow.UpdateEscalationResponse,
		Args:         []interface{}{resp},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return fmt.Errorf("escalation_response update: %w", err)
	}
	var ack workflow.EscalationResponseAck
	return updateHandle.Get(ctx, &ack)
}
