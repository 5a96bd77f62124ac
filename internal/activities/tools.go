package activities

import (
	"context"
	"errors"

	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/mfateev/codex-temporal-go/internal/tools"
)

// ToolActivityInput is the input for tool execution.
//
// Maps to: codex-rs/core/src/tools/context.rs ToolInvocation fields
type ToolActivityInput struct {
	CallID    string                 `json:"call_id"`
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
	Cwd       string                 `json:"cwd,omitempty"`

	// SessionID and McpServerName/McpToolName route calls to an MCP-backed
	// tool rather than a built-in handler. McpServerName is empty for
	// built-in tools.
	SessionID     string `json:"session_id,omitempty"`
	McpServerName string `json:"mcp_server_name,omitempty"`
	McpToolName   string `json:"mcp_tool_name,omitempty"`

	// SandboxPolicy carries the session's resolved sandbox settings so
	// handlers that shell out (shell, unified_exec) can wrap the command
	// through the worker's SandboxManager. Nil means unrestricted.
	SandboxPolicy *tools.SandboxPolicyRef `json:"sandbox_policy,omitempty"`
}

// ToolActivityOutput is the output from tool execution.
// Only returned on successful activity completion. Infrastructure errors
// are returned as temporal.ApplicationError (retryable or non-retryable).
//
// Maps to: codex-rs/core/src/tools/router.rs ToolOutput + call_id
type ToolActivityOutput struct {
	CallID  string `json:"call_id"`
	Content string `json:"content,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// ToolActivities contains tool-related activities.
type ToolActivities struct {
	registry *tools.ToolRegistry
}

// NewToolActivities creates a new ToolActivities instance.
func NewToolActivities(registry *tools.ToolRegistry) *ToolActivities {
	return &ToolActivities{registry: registry}
}

// ExecuteTool executes a single tool call.
//
// Error handling:
//   - Tool not found → non-retryable ApplicationError (ToolNotFound)
//   - Handler validation error → non-retryable ApplicationError (ToolValidation)
//   - Handler timeout → non-retryable ApplicationError (ToolTimeout)
//   - Tool runs but fails (e.g., command exits non-zero) → successful return with Success=false
//   - Tool runs successfully → successful return with Success=true
//
// Maps to: codex-rs/core/src/tools/router.rs ToolRouter.dispatch()
func (a *ToolActivities) ExecuteTool(ctx context.Context, input ToolActivityInput) (ToolActivityOutput, error) {
	handler, err := a.registry.GetHandler(input.ToolName)
	if err != nil {
		return ToolActivityOutput{}, models.NewToolNotFoundError(input.ToolName)
	}

	invocation := &tools.ToolInvocation{
		CallID:        input.CallID,
		ToolName:      input.ToolName,
		Arguments:     input.Arguments,
		Cwd:           input.Cwd,
		SessionID:     input.SessionID,
		SandboxPolicy: input.SandboxPolicy,
	}
	if input.McpServerName != "" {
		invocation.McpToolRef = &tools.McpToolRef{
			ServerName: input.McpServerName,
			ToolName:   input.McpToolName,
		}
	}

	output, err := handler.Handle(ctx, invocation)
	if err != nil {
		return ToolActivityOutput{}, classifyHandlerError(input.ToolName, err)
	}

	return ToolActivityOutput{
		CallID:  input.CallID,
		Content: output.Content,
		Success: output.Success,
	}, nil
}

// classifyHandlerError converts a handler error into the appropriate
// temporal.ApplicationError based on the error context.
//
// No handler error is classified as transient: they represent validation
// failures (missing args, bad types) or execution issues (timeouts) that
// won't resolve on retry. A context.DeadlineExceeded becomes a tool timeout
// error; every other error becomes a tool validation error.
func classifyHandlerError(toolName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewToolTimeoutError(toolName, err)
	}

	// Default: treat handler errors as validation/execution errors (non-retryable).
	// The same invalid input will produce the same error on retry.
	return models.NewToolValidationError(toolName, err)
}
