package models

import "encoding/json"

// ReviewFinding is one defect reported by a review sub-agent.
//
// Maps to: codex-rs/protocol ReviewFinding (referenced from
// original_source/codex-rs/core/src/tasks/review.rs)
type ReviewFinding struct {
	Title           string       `json:"title"`
	Body            string       `json:"body"`
	ConfidenceScore float64      `json:"confidence_score,omitempty"`
	Priority        int          `json:"priority,omitempty"`
	CodeLocation    CodeLocation `json:"code_location,omitempty"`
}

// CodeLocation anchors a ReviewFinding to a file and line range.
type CodeLocation struct {
	AbsoluteFilePath string    `json:"absolute_file_path,omitempty"`
	LineRange        LineRange `json:"line_range,omitempty"`
}

// LineRange is an inclusive [Start, End] line span.
type LineRange struct {
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
}

// ReviewOutputEvent is the structured result of a review sub-agent task.
//
// Maps to: original_source/codex-rs/core/src/tasks/review.rs ReviewOutputEvent
type ReviewOutputEvent struct {
	OverallExplanation string          `json:"overall_explanation"`
	OverallCorrect     bool            `json:"overall_correct,omitempty"`
	Findings           []ReviewFinding `json:"findings,omitempty"`
}

// ParseReviewOutputEvent parses a review sub-agent's final assistant
// message as a ReviewOutputEvent. It tries, in order: the whole text as
// JSON; the first balanced "{...}" substring as JSON; and finally a
// fallback that wraps the raw text in OverallExplanation so a malformed
// or free-text reviewer response is never silently dropped.
//
// Maps to: original_source/codex-rs/core/src/tasks/review.rs parse_review_output_event
func ParseReviewOutputEvent(text string) ReviewOutputEvent {
	var ev ReviewOutputEvent
	if err := json.Unmarshal([]byte(text), &ev); err == nil {
		return ev
	}

	if slice, ok := balancedBraceSubstring(text); ok {
		var fromSlice ReviewOutputEvent
		if err := json.Unmarshal([]byte(slice), &fromSlice); err == nil {
			return fromSlice
		}
	}

	return ReviewOutputEvent{OverallExplanation: text}
}

// balancedBraceSubstring returns the substring from the first "{" to the
// last "}" in text, provided the first precedes the last.
func balancedBraceSubstring(text string) (string, bool) {
	start := -1
	end := -1
	for i, r := range text {
		if r == '{' && start == -1 {
			start = i
		}
		if r == '}' {
			end = i
		}
	}
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}
