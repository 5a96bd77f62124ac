package models

import (
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mfateev/codex-temporal-go/internal/networkpolicy"
)

// ErrorType categorizes errors for appropriate handling
//
// Maps to: codex-rs/core/src/function_tool.rs error categorization
type ErrorType int

const (
	ErrorTypeTransient       ErrorType = iota // Network, timeout → Temporal retries
	ErrorTypeContextOverflow                  // Context window exceeded → ContinueAsNew
	ErrorTypeAPILimit                         // Rate limit → surface to user
	ErrorTypeToolFailure                      // Individual tool failed → continue workflow
	ErrorTypeFatal                            // Unrecoverable → stop workflow
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeContextOverflow:
		return "ContextOverflow"
	case ErrorTypeAPILimit:
		return "APILimit"
	case ErrorTypeToolFailure:
		return "ToolFailure"
	case ErrorTypeFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// String-valued classification constants used by the turn orchestrator's
// handleLLMError switch (internal/workflow/turn.go). Kept distinct from
// ErrorType (an int enum used by internal/activities) because the
// orchestrator persists these into rollout EventMsg items, where a stable
// string is required across process restarts.
const (
	LLMErrTypeContextOverflow = "context_overflow"
	LLMErrTypeAPILimit        = "api_limit"
	LLMErrTypeFatal           = "fatal"
)

// Tool activity error types, mirroring the LLMErrType* constants above but
// for the §4.4 tool-execution activity (internal/activities/tools.go).
const (
	ToolErrTypeNotFound   = "tool_not_found"
	ToolErrTypeTimeout    = "tool_timeout"
	ToolErrTypeValidation = "tool_validation"
)

// NewToolNotFoundError is returned when a tool call names a handler that
// isn't registered. Non-retryable: retrying won't register the handler.
func NewToolNotFoundError(toolName string) error {
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("tool not found: %s", toolName), ToolErrTypeNotFound, nil)
}

// NewToolTimeoutError is returned when a tool handler's context is
// cancelled by the activity's StartToCloseTimeout. Non-retryable: Temporal
// already governs activity retry via the activity's own RetryPolicy.
func NewToolTimeoutError(toolName string, cause error) error {
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("tool %s timed out", toolName), ToolErrTypeTimeout, cause)
}

// NewToolValidationError is returned when a tool handler rejects its
// arguments or fails to execute in a way that a retry can't fix.
func NewToolValidationError(toolName string, cause error) error {
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("tool %s failed: %v", toolName, cause), ToolErrTypeValidation, cause)
}

// ActivityError represents an error from a Temporal activity with categorization
//
// Maps to: codex-rs/core/src/function_tool.rs error handling
type ActivityError struct {
	Type      ErrorType              `json:"type"`
	Retryable bool                   `json:"retryable"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ActivityError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewTransientError creates a retryable transient error
func NewTransientError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeTransient,
		Retryable: true,
		Message:   message,
	}
}

// NewContextOverflowError creates a context overflow error
func NewContextOverflowError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeContextOverflow,
		Retryable: false,
		Message:   message,
	}
}

// NewAPILimitError creates an API rate limit error
func NewAPILimitError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeAPILimit,
		Retryable: true,
		Message:   message,
	}
}

// NewToolFailureError creates a tool failure error
func NewToolFailureError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeToolFailure,
		Retryable: false,
		Message:   message,
	}
}

// NewFatalError creates a fatal error
func NewFatalError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeFatal,
		Retryable: false,
		Message:   message,
	}
}

// CodexErrorKind enumerates the domain-level error kinds from §7 of the
// specification that ActivityError's five-way ErrorType is too coarse to
// carry (each needs extra structured data, not just a message string).
//
// Maps to: codex-rs/core/src/error.rs CodexErr (the Rust sum type this
// sits next to conceptually; represented here as a discriminated struct
// rather than a tagged union, since Go has no sum types).
type CodexErrorKind string

const (
	CodexErrInvalidRequest       CodexErrorKind = "invalid_request"
	CodexErrUnexpectedStatus     CodexErrorKind = "unexpected_status"
	CodexErrContextWindowExceeded CodexErrorKind = "context_window_exceeded"
	CodexErrQuotaExceeded        CodexErrorKind = "quota_exceeded"
	CodexErrUsageLimitReached    CodexErrorKind = "usage_limit_reached"
	CodexErrUsageNotIncluded     CodexErrorKind = "usage_not_included"
	CodexErrRetryLimit           CodexErrorKind = "retry_limit"
	CodexErrStream               CodexErrorKind = "stream"
	CodexErrTimeout              CodexErrorKind = "timeout"
	CodexErrInternalServerError  CodexErrorKind = "internal_server_error"
	CodexErrServerOverloaded     CodexErrorKind = "server_overloaded"
	CodexErrInvalidImageRequest  CodexErrorKind = "invalid_image_request"
	CodexErrSandboxDenied        CodexErrorKind = "sandbox_denied"
	CodexErrSandboxLandlockRestrict CodexErrorKind = "sandbox_landlock_restrict"
	CodexErrAgentLimitReached    CodexErrorKind = "agent_limit_reached"
)

// RateLimitSnapshot mirrors the rate-limit headers surfaced on a 429 so
// UsageLimitReached can report them back to the client verbatim.
type RateLimitSnapshot struct {
	LimitRequests     int   `json:"limit_requests,omitempty"`
	RemainingRequests int   `json:"remaining_requests,omitempty"`
	ResetRequestsUnix int64 `json:"reset_requests_unix,omitempty"`
}

// CodexError is the structured representation of the §7 error kinds that
// carry more than a message: upstream HTTP context, usage-limit plan
// data, or sandbox denial output.
type CodexError struct {
	Kind CodexErrorKind `json:"kind"`

	Message string `json:"message"`

	// UnexpectedStatus / RetryLimit fields.
	HTTPStatus int    `json:"http_status,omitempty"`
	URL        string `json:"url,omitempty"`
	RequestID  string `json:"request_id,omitempty"` // see ExtractRequestTrackingID
	CFRay      string `json:"cf_ray,omitempty"`
	Body       string `json:"body,omitempty"`

	// UsageLimitReached fields.
	PlanType  string             `json:"plan_type,omitempty"`
	LimitName string             `json:"limit_name,omitempty"`
	// ResetSeconds is decoded as a unix timestamp unconditionally.
	//
	// TODO: values below 10^9 are clearly not a valid unix timestamp and
	// are probably meant as a relative "seconds from now" duration, but
	// the behavior this is grounded on does not branch on magnitude —
	// preserved as-is per the specification's explicit instruction not to
	// guess a fix for this open question.
	ResetSeconds int64              `json:"reset_seconds,omitempty"`
	RateLimits   *RateLimitSnapshot `json:"rate_limits,omitempty"`

	// Sandbox::Denied fields.
	ExecOutput string `json:"exec_output,omitempty"`
	// NetworkPolicyDecision is set only when the denial correlates with a
	// blocked proxy request — see networkpolicy.ProxyServer.
	NetworkPolicyDecision networkpolicy.NetworkPolicyDecision `json:"network_policy_decision,omitempty"`

	// AgentLimitReached fields.
	MaxThreads int `json:"max_threads,omitempty"`
}

func (e *CodexError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// NewAgentLimitReachedError builds the error returned when a sub-agent
// spawn is refused because the live-thread slot budget is exhausted.
//
// Maps to: codex-rs/core/src/agent/guards.rs AgentLimitReached
func NewAgentLimitReachedError(maxThreads int) *CodexError {
	return &CodexError{
		Kind:       CodexErrAgentLimitReached,
		Message:    fmt.Sprintf("maximum of %d concurrent sub-agents reached", maxThreads),
		MaxThreads: maxThreads,
	}
}

// NewSandboxDeniedError builds the error returned when a sandboxed exec is
// refused. npDecision is the zero value unless the denial correlates with a
// blocked request made through a networkpolicy.ProxyServer.
//
// Maps to: codex-rs/core/src/tools/runtimes/unified_exec.rs SandboxDenied
func NewSandboxDeniedError(execOutput string, npDecision networkpolicy.NetworkPolicyDecision) *CodexError {
	return &CodexError{
		Kind:                  CodexErrSandboxDenied,
		Message:               "command was denied by the sandbox",
		ExecOutput:            execOutput,
		NetworkPolicyDecision: npDecision,
	}
}

// ExtractRequestTrackingID falls back from x-request-id to
// x-oai-request-id to cf-ray, in that order, returning the first
// non-empty value found.
//
// Maps to: codex-rs boundary case in §8 TESTABLE PROPERTIES.
func ExtractRequestTrackingID(headers map[string]string) string {
	for _, key := range []string{"x-request-id", "x-oai-request-id", "cf-ray"} {
		if v, ok := headers[key]; ok && v != "" {
			return v
		}
	}
	return ""
}
