// Package workflow contains Temporal workflow definitions.
//
// plan.go implements the update_plan intercepted tool: the model reports
// its task breakdown and step statuses, which is stored on SessionState and
// surfaced through get_turn_status / get_state_update.
//
// Maps to: codex-rs/core/src/tools/spec.rs update_plan tool
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/mfateev/codex-temporal-go/internal/models"
)

// updatePlanArgs mirrors the update_plan tool's JSON argument schema.
//
// Maps to: internal/tools/plan_spec.go NewUpdatePlanToolSpec
type updatePlanArgs struct {
	Explanation string `json:"explanation,omitempty"`
	Plan        []struct {
		Step   string `json:"step"`
		Status string `json:"status"`
	} `json:"plan"`
}

var validPlanStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

// handleUpdatePlan parses an update_plan call, validates it, and replaces
// the session's current plan. Always returns a function_call_output item,
// even on validation failure, so the model can see what went wrong.
func (s *SessionState) handleUpdatePlan(fc models.ConversationItem) (models.ConversationItem, error) {
	var args updatePlanArgs
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return planErrorOutput(fc.CallID, fmt.Sprintf("invalid update_plan arguments: %v", err)), nil
	}

	inProgress := 0
	steps := make([]PlanStep, 0, len(args.Plan))
	for _, p := range args.Plan {
		if !validPlanStatuses[p.Status] {
			return planErrorOutput(fc.CallID, fmt.Sprintf("invalid plan step status %q", p.Status)), nil
		}
		if p.Status == "in_progress" {
			inProgress++
		}
		steps = append(steps, PlanStep{Step: p.Step, Status: p.Status})
	}
	if inProgress > 1 {
		return planErrorOutput(fc.CallID, "at most one plan step may be in_progress"), nil
	}

	s.Plan = steps

	success := true
	return models.ConversationItem{
		Type:   models.ItemTypeFunctionCallOutput,
		CallID: fc.CallID,
		Output: &models.FunctionCallOutputPayload{
			Content: "Plan updated.",
			Success: &success,
		},
	}, nil
}

func planErrorOutput(callID, reason string) models.ConversationItem {
	success := false
	return models.ConversationItem{
		Type:   models.ItemTypeFunctionCallOutput,
		CallID: callID,
		Output: &models.FunctionCallOutputPayload{
			Content: reason,
			Success: &success,
		},
	}
}
