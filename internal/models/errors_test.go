package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/mfateev/codex-temporal-go/internal/networkpolicy"
)

func TestNewSandboxDeniedError_CarriesExecOutputAndDecision(t *testing.T) {
	err := NewSandboxDeniedError("permission denied", networkpolicy.NetworkDecisionDeny)
	assert.Equal(t, CodexErrSandboxDenied, err.Kind)
	assert.Equal(t, "permission denied", err.ExecOutput)
	assert.Equal(t, networkpolicy.NetworkDecisionDeny, err.NetworkPolicyDecision)
}

func TestNewSandboxDeniedError_DefaultsNetworkPolicyDecisionToZeroValue(t *testing.T) {
	err := NewSandboxDeniedError("killed", "")
	assert.Equal(t, networkpolicy.NetworkPolicyDecision(""), err.NetworkPolicyDecision)
}

func TestNewToolNotFoundError_IsNonRetryable(t *testing.T) {
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(NewToolNotFoundError("frobnicate"), &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, ToolErrTypeNotFound, appErr.Type())
}

func TestNewToolTimeoutError_IsNonRetryable(t *testing.T) {
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(NewToolTimeoutError("shell", nil), &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, ToolErrTypeTimeout, appErr.Type())
}

func TestNewToolValidationError_IsNonRetryable(t *testing.T) {
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(NewToolValidationError("shell", errors.New("bad argument")), &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, ToolErrTypeValidation, appErr.Type())
}
