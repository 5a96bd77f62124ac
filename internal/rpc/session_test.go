package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/mfateev/codex-temporal-go/internal/workflow"
)

type fakeSender struct {
	sent []interface{}
}

func (f *fakeSender) send(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeSender) lastResponse(t *testing.T) *Response {
	t.Helper()
	require.NotEmpty(t, f.sent)
	resp, ok := f.sent[len(f.sent)-1].(*Response)
	require.True(t, ok, "last sent message was not a *Response")
	return resp
}

type fakeBridge struct {
	items []models.ConversationItem
}

func (f *fakeBridge) NewConversation(_ context.Context, req NewConversationParams) (NewConversationResult, error) {
	return NewConversationResult{WorkflowID: "wf-1", RunID: "run-1"}, nil
}
func (f *fakeBridge) SendUserMessage(_ context.Context, _, _ string) (workflow.UserInputAccepted, error) {
	return workflow.UserInputAccepted{TurnID: "turn-1"}, nil
}
func (f *fakeBridge) InterruptConversation(_ context.Context, _ string) (workflow.InterruptResponse, error) {
	return workflow.InterruptResponse{Acknowledged: true}, nil
}
func (f *fakeBridge) ArchiveConversation(_ context.Context, _, _ string) (workflow.ShutdownResponse, error) {
	return workflow.ShutdownResponse{Acknowledged: true}, nil
}
func (f *fakeBridge) ListConversations(_ context.Context, _ string) ([]workflow.SessionEntry, error) {
	return []workflow.SessionEntry{{SessionID: "sess-1", WorkflowID: "wf-1"}}, nil
}
func (f *fakeBridge) ConversationItems(_ context.Context, _ string) ([]models.ConversationItem, error) {
	return f.items, nil
}
func (f *fakeBridge) ApprovalResponse(_ context.Context, _ string, _ workflow.ApprovalResponse) error {
	return nil
}
func (f *fakeBridge) EscalationResponse(_ context.Context, _ string, _ workflow.EscalationResponse) error {
	return nil
}

func newTestSession(bridge Bridge) (*Session, *fakeSender) {
	sender := &fakeSender{}
	sess := NewSession(sender, BuildDispatchTable(bridge, "/tmp/codex-home-does-not-exist"))
	return sess, sender
}

func idFor(n int) json.RawMessage {
	data, _ := json.Marshal(n)
	return data
}

func TestDispatch_RejectsMethodsBeforeInitialize(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{})

	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(1), Method: "listConversations", Params: json.RawMessage(`{}`)})

	resp := sender.lastResponse(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotInitialized, resp.Error.Code)
}

func TestDispatch_InitializeThenSecondInitializeFails(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{})

	params, _ := json.Marshal(InitializeParams{ClientInfo: ClientInfo{Name: "test-client"}})
	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(1), Method: "initialize", Params: params})
	resp := sender.lastResponse(t)
	assert.Nil(t, resp.Error)

	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(2), Method: "initialize", Params: params})
	resp = sender.lastResponse(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeAlreadyInitialized, resp.Error.Code)
}

func TestDispatch_UnknownMethodAfterInitialize(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{})
	initialize(t, sess, sender)

	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(2), Method: "not/a/real/method"})
	resp := sender.lastResponse(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatch_ListConversations(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{})
	initialize(t, sess, sender)

	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(2), Method: "listConversations", Params: json.RawMessage(`{"harnessWorkflowId":"h-1"}`)})
	resp := sender.lastResponse(t)
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "sess-1")
}

func TestDispatch_ThreadResumeReattachesByWorkflowID(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{items: []models.ConversationItem{{CallID: "c-1"}}})
	initialize(t, sess, sender)

	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(2), Method: "thread/resume", Params: json.RawMessage(`{"workflowId":"wf-1"}`)})
	resp := sender.lastResponse(t)
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "c-1")
}

func TestDispatch_NotificationGetsNoResponse(t *testing.T) {
	sess, sender := newTestSession(&fakeBridge{})
	initialize(t, sess, sender)
	before := len(sender.sent)

	sess.Dispatch(&Request{JSONRPC: "2.0", Method: "listConversations", Params: json.RawMessage(`{}`)})

	assert.Len(t, sender.sent, before)
}

func initialize(t *testing.T, sess *Session, sender *fakeSender) {
	t.Helper()
	params, _ := json.Marshal(InitializeParams{ClientInfo: ClientInfo{Name: "test-client"}})
	sess.Dispatch(&Request{JSONRPC: "2.0", ID: idFor(1), Method: "initialize", Params: params})
	resp := sender.lastResponse(t)
	require.Nil(t, resp.Error)
}
