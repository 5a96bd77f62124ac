package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/execsession"
	"github.com/mfateev/codex-temporal-go/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedExecTool_StartAndCollect(t *testing.T) {
	tool := NewUnifiedExecTool(execsession.NewStore(), nil)
	invocation := &tools.ToolInvocation{
		CallID:    "call-1",
		Arguments: map[string]interface{}{"command": []interface{}{"echo", "hello"}, "timeout_ms": float64(500)},
	}

	output, err := tool.Handle(context.Background(), invocation)
	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Contains(t, output.Content, "hello")
	assert.Contains(t, output.Content, "exited=true")
	require.NotNil(t, output.Success)
	assert.True(t, *output.Success)
}

func TestUnifiedExecTool_NonZeroExit(t *testing.T) {
	tool := NewUnifiedExecTool(execsession.NewStore(), nil)
	invocation := &tools.ToolInvocation{
		CallID:    "call-2",
		Arguments: map[string]interface{}{"command": []interface{}{"sh", "-c", "exit 3"}, "timeout_ms": float64(500)},
	}

	output, err := tool.Handle(context.Background(), invocation)
	require.NoError(t, err)
	require.NotNil(t, output)
	require.NotNil(t, output.Success)
	assert.False(t, *output.Success)
}

func TestUnifiedExecTool_WriteStdinToRunningSession(t *testing.T) {
	store := execsession.NewStore()
	tool := NewUnifiedExecTool(store, nil)
	start := &tools.ToolInvocation{
		CallID: "call-3",
		Arguments: map[string]interface{}{
			"command":    []interface{}{"cat"},
			"tty":        true,
			"timeout_ms": float64(100),
		},
	}
	_, err := tool.Handle(context.Background(), start)
	require.NoError(t, err)

	defer store.Remove("call-3")

	follow := &tools.ToolInvocation{
		Arguments: map[string]interface{}{
			"session_id":  "call-3",
			"write_stdin": "ping\n",
			"timeout_ms":  float64(500),
		},
	}
	output, err := tool.Handle(context.Background(), follow)
	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Contains(t, output.Content, "ping")
}

func TestUnifiedExecTool_MissingCommand(t *testing.T) {
	tool := NewUnifiedExecTool(execsession.NewStore(), nil)
	_, err := tool.Handle(context.Background(), &tools.ToolInvocation{Arguments: map[string]interface{}{}})
	require.Error(t, err)
	assert.True(t, tools.IsValidationError(err))
}

func TestUnifiedExecTool_UnknownSessionID(t *testing.T) {
	tool := NewUnifiedExecTool(execsession.NewStore(), nil)
	_, err := tool.Handle(context.Background(), &tools.ToolInvocation{
		Arguments: map[string]interface{}{"session_id": "does-not-exist"},
	})
	require.Error(t, err)
	assert.True(t, tools.IsValidationError(err))
}

func TestCollectWindow_DefaultsWhenUnset(t *testing.T) {
	window := collectWindow(&tools.ToolInvocation{Arguments: map[string]interface{}{}})
	assert.Equal(t, defaultCollectWindow, window)
}

func TestCollectWindow_HonorsTimeoutMsArgument(t *testing.T) {
	window := collectWindow(&tools.ToolInvocation{Arguments: map[string]interface{}{"timeout_ms": float64(250)}})
	assert.Equal(t, 250*time.Millisecond, window)
}
