package rollout

import "fmt"

// Resumed is what LoadForResume hands back to the conversation manager:
// the full set of persisted lines plus the metadata re-derived from them,
// so the caller can rehydrate its in-memory history and turn context
// without re-deriving anything itself.
//
// Maps to: §4.2.4 "the manager loads the rollout, re-derives turn context
// and token counter from events, and emits an initial_messages stream"
type Resumed struct {
	Lines    []Line
	Metadata ThreadMetadata
}

// LoadForResume loads the rollout file at path and extracts its metadata,
// applying no truncation — callers that need a truncated view should pass
// Resumed.Lines through ItemsOf and TruncateBeforeNthUserMessageFromStart
// themselves.
func LoadForResume(threadID, path string) (Resumed, error) {
	lines, err := Load(path)
	if err != nil {
		return Resumed{}, fmt.Errorf("rollout: resume %s: %w", threadID, err)
	}
	return Resumed{
		Lines:    lines,
		Metadata: ExtractThreadMetadata(threadID, lines),
	}, nil
}
