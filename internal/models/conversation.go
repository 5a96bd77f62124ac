// Package models contains shared types for the codex-temporal-go project.
//
// Corresponds to: codex-rs/core/src/protocol/models.rs
package models

// ConversationItemType represents the type of a conversation item
type ConversationItemType string

const (
	ItemTypeUserMessage        ConversationItemType = "user_message"
	ItemTypeAssistantMessage   ConversationItemType = "assistant_message"
	ItemTypeToolCall           ConversationItemType = "tool_call"
	ItemTypeToolResult         ConversationItemType = "tool_result"
	ItemTypeFunctionCall       ConversationItemType = "function_call"
	ItemTypeFunctionCallOutput ConversationItemType = "function_call_output"
	ItemTypeReasoning          ConversationItemType = "reasoning"
	ItemTypeWebSearchCall      ConversationItemType = "web_search_call"
	ItemTypeLocalShellCall     ConversationItemType = "local_shell_call"
	ItemTypeTurnStarted        ConversationItemType = "turn_started"
	ItemTypeTurnComplete       ConversationItemType = "turn_complete"
	ItemTypeModelSwitch        ConversationItemType = "model_switch"
	ItemTypeExitedReviewMode   ConversationItemType = "exited_review_mode"
)

// FunctionCallOutputPayload is the body of a function_call_output item.
//
// Maps to: codex-rs/core/src/protocol/models.rs FunctionCallOutputPayload
type FunctionCallOutputPayload struct {
	Content string `json:"content"`
	Success *bool  `json:"success,omitempty"`
}

// ConversationItem represents a single item in the conversation history.
//
// The field set here is the union of every field the turn orchestrator
// (internal/workflow/turn.go), the rollout writer, and the provider
// clients (internal/llm) actually read or write, rather than the narrower
// shape originally sketched for just the simple user/assistant/tool-result
// case.
//
// Maps to: codex-rs/core/src/protocol/models.rs ConversationItem
type ConversationItem struct {
	Type ConversationItemType `json:"type"`

	// Plain message content (user/assistant/turn-marker items).
	Content string `json:"content,omitempty"`

	// Legacy aggregate tool-call list, kept for ItemTypeAssistantMessage
	// items produced before function calls were split into their own
	// ItemTypeFunctionCall entries.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ItemTypeToolResult (legacy) fields.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`
	ToolError  string `json:"tool_error,omitempty"`

	// ItemTypeFunctionCall fields.
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // raw JSON object string
	CallID    string `json:"call_id,omitempty"`

	// ItemTypeFunctionCallOutput fields.
	Output *FunctionCallOutputPayload `json:"output,omitempty"`

	// Turn/ordering bookkeeping, used by truncation and history
	// compaction to find turn boundaries without re-scanning content.
	TurnID string `json:"turn_id,omitempty"`
	Seq    int    `json:"seq,omitempty"`

	// ItemTypeModelSwitch payload: the model name the orchestrator
	// fell back to, for the "Warning:" TurnItem described in the turn
	// orchestrator's safety checks.
	SwitchedModel string `json:"switched_model,omitempty"`
}

// ToolCall represents a request to call a tool
//
// Maps to: codex-rs/core/src/protocol/models.rs ToolCall
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult represents the result of a tool execution
//
// Maps to: codex-rs/core/src/tools/types.rs ToolResult
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FinishReason indicates why the LLM stopped generating
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"           // Natural completion
	FinishReasonToolCalls     FinishReason = "tool_calls"      // LLM wants to call tools
	FinishReasonLength        FinishReason = "length"          // Hit token limit
	FinishReasonContentFilter FinishReason = "content_filter"  // Content filtered
)

// WebSearchMode selects how the native OpenAI web_search tool is exposed
// to the model, mirroring the features.web_search_cached /
// features.web_search_request config keys.
//
// Maps to: codex-rs/core/src/config/types.rs WebSearchMode (referenced by
// the teacher's llm/client.go and activities/llm.go but never itself
// defined anywhere in the retrieved teacher files).
type WebSearchMode string

const (
	WebSearchModeOff     WebSearchMode = ""
	WebSearchModeCached  WebSearchMode = "cached"
	WebSearchModeRequest WebSearchMode = "request"
)

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	CachedTokens        int `json:"cached_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
}
