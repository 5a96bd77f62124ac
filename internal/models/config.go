package models

import "github.com/mfateev/codex-temporal-go/internal/mcp"

// ModelConfig configures the LLM model parameters
//
// Maps to: codex-rs/core/src/codex.rs SessionConfiguration (model config part)
type ModelConfig struct {
	Provider        string  `json:"provider,omitempty"`         // "openai" | "anthropic"
	Model           string  `json:"model"`                      // e.g., "gpt-4o-mini", "claude-sonnet-4.5"
	Temperature     float64 `json:"temperature"`                // 0.0 to 2.0
	MaxTokens       int     `json:"max_tokens"`                 // Max tokens to generate
	ContextWindow   int     `json:"context_window"`             // Max context window size
	ReasoningEffort string  `json:"reasoning_effort,omitempty"` // "low" | "medium" | "high", provider-specific
}

// DefaultModelConfig returns a sensible default configuration
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		Temperature:   0.7,
		MaxTokens:     4096,
		ContextWindow: 128000,
	}
}

// ShellToolKind selects which flavor of shell tool is exposed to the model.
//
// Maps to: codex-rs/core/src/tools/spec.rs ConfigShellToolType
type ShellToolKind int

const (
	// ShellToolDefault exposes the combined "shell" tool (command as argv array).
	ShellToolDefault ShellToolKind = iota
	// ShellToolShellCommand exposes the "shell_command" variant (command as a single string).
	ShellToolShellCommand
	// ShellToolDisabled exposes no shell tool at all.
	ShellToolDisabled
)

// ToolsConfig configures which tools are enabled
//
// Maps to: codex-rs/core/src/codex.rs SessionConfiguration (tools config part)
type ToolsConfig struct {
	EnableShell        bool `json:"enable_shell"`
	EnableReadFile     bool `json:"enable_read_file"`
	EnableWriteFile    bool `json:"enable_write_file,omitempty"`    // Built-in write_file tool
	EnableListDir      bool `json:"enable_list_dir,omitempty"`      // Built-in list_dir tool
	EnableGrepFiles    bool `json:"enable_grep_files,omitempty"`    // Built-in grep_files tool
	EnableApplyPatch   bool `json:"enable_apply_patch,omitempty"`   // Built-in apply_patch tool
	EnableUnifiedExec  bool `json:"enable_unified_exec,omitempty"`  // Built-in PTY-backed long-lived exec tool
	EnableUpdatePlan   bool `json:"enable_update_plan,omitempty"`   // Built-in update_plan intercepted tool
	EnableCollab       bool `json:"enable_collab,omitempty"`        // spawn_agent/send_input/wait/close_agent/resume_agent
	EnableWebSearch    bool `json:"enable_web_search,omitempty"`    // native web_search tool, gated by WebSearchMode
	ShellCommandString bool `json:"shell_command_string,omitempty"` // use shell_command (string) instead of shell (argv)

	// EnabledTools, when non-empty, is the authoritative list of tool names
	// this session exposes after role overrides and RemoveTools calls have
	// been applied. buildToolSpecs seeds it from the Enable* flags above and
	// collab handlers mutate it directly when spawning restricted children.
	EnabledTools []string `json:"enabled_tools,omitempty"`
}

// ResolvedShellType returns which shell tool variant this config exposes.
func (c ToolsConfig) ResolvedShellType() ShellToolKind {
	if !c.EnableShell {
		return ShellToolDisabled
	}
	if c.ShellCommandString {
		return ShellToolShellCommand
	}
	return ShellToolDefault
}

// RemoveTools drops the named tools from EnabledTools in place. Names not
// present are silently ignored. "collab" removes all collaboration tools by
// also clearing EnableCollab.
func (c *ToolsConfig) RemoveTools(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
		if n == "collab" {
			c.EnableCollab = false
		}
	}
	kept := c.EnabledTools[:0:0]
	for _, t := range c.EnabledTools {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	c.EnabledTools = kept
}

// DefaultToolsConfig returns default tools configuration
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		EnableShell:       true,
		EnableReadFile:    true,
		EnableWriteFile:   true,
		EnableListDir:     true,
		EnableGrepFiles:   true,
		EnableApplyPatch:  true,
		EnableUnifiedExec: true,
		EnableUpdatePlan:  true,
		EnableCollab:      true,
	}
}

// ApprovalMode selects when the user is asked to approve a tool call.
//
// Maps to: codex-rs/core/src/config/types.rs AskForApproval
type ApprovalMode string

const (
	ApprovalNever         ApprovalMode = "never"
	ApprovalOnFailure     ApprovalMode = "on-failure"
	ApprovalOnRequest     ApprovalMode = "on-request"
	ApprovalUnlessTrusted ApprovalMode = "unless-trusted"
	ApprovalReject        ApprovalMode = "reject"
)

// SessionConfiguration configures a complete agentic session.
//
// Maps to: codex-rs/core/src/codex.rs SessionConfiguration
type SessionConfiguration struct {
	// Instructions hierarchy (maps to Codex 3-tier system)
	BaseInstructions      string `json:"base_instructions,omitempty"`      // Core system prompt for the model
	DeveloperInstructions string `json:"developer_instructions,omitempty"` // Developer overrides (sent as developer message)
	UserInstructions      string `json:"user_instructions,omitempty"`      // Project docs (AGENTS.md content)

	// Model configuration
	Model ModelConfig `json:"model"`

	// Tool configuration
	Tools ToolsConfig `json:"tools"`

	// WebSearchMode gates the native web_search tool independent of
	// EnableWebSearch, mirroring features.web_search_cached /
	// features.web_search_request — a restricted sub-agent (e.g. a
	// reviewer) forces this to WebSearchModeOff even if the parent
	// session enabled it.
	WebSearchMode WebSearchMode `json:"web_search_mode,omitempty"`

	// MCP servers to connect at session start, keyed by server name.
	McpServers map[string]mcp.McpServerConfig `json:"mcp_servers,omitempty"`

	// Execution context
	Cwd string `json:"cwd,omitempty"` // Working directory for tool execution

	// Session metadata
	SessionSource string `json:"session_source,omitempty"` // "cli", "api", "exec" — for logging/tracking

	// Home / persistence.
	CodexHome        string `json:"codex_home,omitempty"`         // Root directory for config, sessions, state DB
	SessionTaskQueue string `json:"session_task_queue,omitempty"` // Temporal task queue for this session's activities

	// Approval + sandbox policy (§3 Sandbox policy / §6 approval_policy).
	ApprovalMode         ApprovalMode `json:"approval_mode,omitempty"`
	SandboxMode          string       `json:"sandbox_mode,omitempty"`           // danger-full-access|read-only|workspace-write
	SandboxWritableRoots []string     `json:"sandbox_writable_roots,omitempty"` // absolute paths, only meaningful for workspace-write
	SandboxNetworkAccess bool         `json:"sandbox_network_access,omitempty"`

	// Exec policy rules (Starlark source lines), appended to the
	// built-in policy before evaluation.
	ExecPolicyRules []string `json:"exec_policy_rules,omitempty"`

	// Misc session-level feature toggles.
	DisableSuggestions    bool   `json:"disable_suggestions,omitempty"`
	AutoCompactTokenLimit int    `json:"auto_compact_token_limit,omitempty"`
	Personality           string `json:"personality,omitempty"`
}

// DefaultSessionConfiguration returns sensible defaults.
func DefaultSessionConfiguration() SessionConfiguration {
	return SessionConfiguration{
		Model:                 DefaultModelConfig(),
		Tools:                 DefaultToolsConfig(),
		ApprovalMode:          ApprovalOnRequest,
		SandboxMode:           "workspace-write",
		AutoCompactTokenLimit: 0,
	}
}
