// Package handlers contains tool handler implementations.
//
// unified_exec.go provides UnifiedExecTool, a PTY/pipe-backed process
// runtime that can be started, written to, and polled across multiple
// tool calls — unlike ShellTool, which runs one command to completion.
//
// Maps to: codex-rs/core/src/tools/runtimes/unified_exec.rs UnifiedExecRuntime
package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/execsession"
	"github.com/mfateev/codex-temporal-go/internal/models"
	"github.com/mfateev/codex-temporal-go/internal/sandbox"
	"github.com/mfateev/codex-temporal-go/internal/tools"
)

// unifiedExecDenialProbeWindow is how long a freshly-spawned process is
// given to exit before its output is returned as a normal (possibly
// still-running) result. A command that exits non-zero inside this
// window under a restricted sandbox policy is classified as sandbox
// denial rather than an ordinary command failure — most sandbox deny
// mechanisms (seccomp, Seatbelt) kill the process almost immediately.
//
// Maps to: codex-rs/core/src/unified_exec/process.rs early-exit probe
const unifiedExecDenialProbeWindow = 150 * time.Millisecond

// defaultCollectWindow bounds how long a single unified_exec call waits
// for new output before returning, when the caller doesn't set timeout_ms.
const defaultCollectWindow = 5 * time.Second

// UnifiedExecTool starts, writes to, and polls long-lived PTY/pipe
// processes, keeping them alive in a worker-scoped Store across calls.
//
// Maps to: codex-rs/core/src/tools/runtimes/unified_exec.rs UnifiedExecRuntime
type UnifiedExecTool struct {
	store      *execsession.Store
	sandboxMgr sandbox.SandboxManager
}

// NewUnifiedExecTool creates a handler backed by the given session store
// and sandbox manager.
func NewUnifiedExecTool(store *execsession.Store, mgr sandbox.SandboxManager) *UnifiedExecTool {
	return &UnifiedExecTool{store: store, sandboxMgr: mgr}
}

func (t *UnifiedExecTool) Name() string {
	return "unified_exec"
}

func (t *UnifiedExecTool) Kind() tools.ToolKind {
	return tools.ToolKindFunction
}

// IsMutating is conservative: a long-lived interactive process could do
// anything over its lifetime, so it's always treated as mutating.
func (t *UnifiedExecTool) IsMutating(_ *tools.ToolInvocation) bool {
	return true
}

// Handle starts a new session (no session_id argument), or writes to and
// polls an existing one (session_id set, process still registered in the
// store). Arguments:
//   - command: []interface{} of strings — required when starting a session.
//   - session_id: string — process id to resume; omitted to start fresh.
//   - write_stdin: string — bytes to write before collecting output.
//   - tty: bool — PTY mode vs pipe mode for a new session.
//   - timeout_ms: int — how long to wait for new output this call.
func (t *UnifiedExecTool) Handle(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	if sessionID, ok := invocation.Arguments["session_id"].(string); ok && sessionID != "" {
		return t.handleExisting(sessionID, invocation)
	}
	return t.handleStart(ctx, invocation)
}

func (t *UnifiedExecTool) handleExisting(sessionID string, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	sess := t.store.Get(sessionID)
	if sess == nil {
		return nil, tools.NewValidationError("no such unified_exec session: " + sessionID)
	}

	if stdin, ok := invocation.Arguments["write_stdin"].(string); ok && stdin != "" {
		if err := sess.WriteStdin([]byte(stdin)); err != nil {
			return nil, tools.NewValidationError("write_stdin: " + err.Error())
		}
	}

	output := sess.CollectOutput(time.Now().Add(collectWindow(invocation)), invocation.Heartbeat)
	exited := sess.HasExited()
	if exited {
		t.store.Remove(sessionID)
	}

	success := !exited || sess.ExitCode() == nil || *sess.ExitCode() == 0
	return &tools.ToolOutput{
		Content: fmt.Sprintf("session_id=%s exited=%v\n%s", sessionID, exited, output),
		Success: &success,
	}, nil
}

func (t *UnifiedExecTool) handleStart(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	cmdArg, ok := invocation.Arguments["command"]
	if !ok {
		return nil, tools.NewValidationError("missing required argument: command")
	}
	cmdItems, ok := cmdArg.([]interface{})
	if !ok || len(cmdItems) == 0 {
		return nil, tools.NewValidationError("command must be a non-empty array of strings")
	}
	command := make([]string, len(cmdItems))
	for i, item := range cmdItems {
		s, ok := item.(string)
		if !ok {
			return nil, tools.NewValidationError("command elements must be strings")
		}
		command[i] = s
	}

	tty, _ := invocation.Arguments["tty"].(bool)
	processID, _ := invocation.Arguments["process_id"].(string)
	if processID == "" {
		processID = invocation.CallID
	}

	spec := sandbox.CommandSpec{
		Program: command[0],
		Args:    command[1:],
		Cwd:     invocation.Cwd,
	}

	policy := sandboxPolicyRefToPolicy(invocation.SandboxPolicy)
	execEnv, err := t.resolveExecEnv(spec, policy)
	if err != nil {
		return nil, tools.NewValidationError("sandbox setup failed: " + err.Error())
	}

	env := os.Environ()
	if len(execEnv.Env) > 0 {
		env = appendEnvMap(env, execEnv.Env)
	}

	sess, err := execsession.StartSession(execsession.SessionOpts{
		ProcessID: processID,
		Command:   execEnv.Command,
		Cwd:       execEnv.Cwd,
		Env:       env,
		TTY:       tty,
	})
	if err != nil {
		return nil, tools.NewValidationError("failed to start process: " + err.Error())
	}

	if denied, output := probeSandboxDenial(sess, policy); denied {
		return nil, models.NewSandboxDeniedError(output, "")
	}

	t.store.Put(sess)
	output := sess.CollectOutput(time.Now().Add(collectWindow(invocation)), invocation.Heartbeat)
	exited := sess.HasExited()
	if exited {
		t.store.Remove(processID)
	}

	success := !exited || sess.ExitCode() == nil || *sess.ExitCode() == 0
	return &tools.ToolOutput{
		Content: fmt.Sprintf("session_id=%s exited=%v\n%s", processID, exited, output),
		Success: &success,
	}, nil
}

// probeSandboxDenial waits up to unifiedExecDenialProbeWindow for the
// process to exit. If it already exited non-zero under a restricted
// sandbox policy, the failure is almost certainly the sandbox killing the
// process rather than the command's own logic — classify it as a denial.
func probeSandboxDenial(sess *execsession.ExecSession, policy *sandbox.SandboxPolicy) (bool, string) {
	if policy == nil || !policy.IsRestricted() {
		return false, ""
	}
	deadline := time.Now().Add(unifiedExecDenialProbeWindow)
	for time.Now().Before(deadline) {
		if sess.HasExited() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !sess.HasExited() {
		return false, ""
	}
	code := sess.ExitCode()
	if code == nil || *code == 0 {
		return false, ""
	}
	return true, string(sess.CollectOutput(time.Now(), nil))
}

func collectWindow(invocation *tools.ToolInvocation) time.Duration {
	if ms, ok := invocation.Arguments["timeout_ms"].(float64); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultCollectWindow
}

// resolveExecEnv applies sandbox wrapping if a policy is set.
func (t *UnifiedExecTool) resolveExecEnv(spec sandbox.CommandSpec, policy *sandbox.SandboxPolicy) (*sandbox.ExecEnv, error) {
	if policy == nil || t.sandboxMgr == nil {
		return &sandbox.ExecEnv{
			Command: append([]string{spec.Program}, spec.Args...),
			Cwd:     spec.Cwd,
		}, nil
	}
	return t.sandboxMgr.Transform(spec, policy)
}
