package rollout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rolloutFileName builds the on-disk file name for a thread started at
// ts, per §4.2.2: rollout-<ISO_TS>-<threadId>.jsonl.
func rolloutFileName(ts time.Time, threadID string) string {
	return fmt.Sprintf("rollout-%s-%s.jsonl", ts.UTC().Format("2006-01-02T15-04-05.000Z"), threadID)
}

// RolloutPath returns the path a thread's rollout file would live at
// under codexHome, given its start time and thread ID.
//
// Maps to: §4.2.2 <CODEX_HOME>/sessions/YYYY/MM/DD/rollout-<ISO_TS>-<threadId>.jsonl
func RolloutPath(codexHome string, ts time.Time, threadID string) string {
	ts = ts.UTC()
	return filepath.Join(codexHome, "sessions",
		fmt.Sprintf("%04d", ts.Year()), fmt.Sprintf("%02d", ts.Month()), fmt.Sprintf("%02d", ts.Day()),
		rolloutFileName(ts, threadID))
}

// Writer owns one buffered file per thread and serializes appends onto a
// single goroutine so writes are observed in submission order, matching
// the "one writer task per thread" ordering guarantee.
//
// Maps to: codex-rs/core/src/rollout/mod.rs RolloutRecorder (one writer
// actor per thread, generalized here to a Go channel + goroutine since
// the teacher has no on-disk persistence to generalize from directly —
// internal/history/memory.go's mutex-guarded append is the closest
// teacher analogue, adapted here to an append-only file instead of an
// in-memory slice).
type Writer struct {
	threadID string
	path     string

	mu       sync.Mutex
	file     *os.File
	bufw     *bufio.Writer
	lines    chan Line
	done     chan struct{}
	closeErr error
}

// NewWriter opens (creating any missing directories) the rollout file for
// threadID under codexHome and starts its drain goroutine. Materialization
// is lazy per §4.2.2: the caller is expected to defer calling NewWriter
// until the first user message is persisted for ephemeral threads.
func NewWriter(codexHome string, startedAt time.Time, threadID string) (*Writer, error) {
	path := RolloutPath(codexHome, startedAt, threadID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rollout: create session dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rollout: open rollout file: %w", err)
	}

	w := &Writer{
		threadID: threadID,
		path:     path,
		file:     f,
		bufw:     bufio.NewWriter(f),
		lines:    make(chan Line, 64),
		done:     make(chan struct{}),
	}
	go w.drain()
	return w, nil
}

// Path returns the on-disk path of the rollout file.
func (w *Writer) Path() string { return w.path }

// Append enqueues item to be persisted as the next line, stamped with the
// current time. Returns immediately; the write happens asynchronously on
// the writer's drain goroutine.
func (w *Writer) Append(item Item) {
	w.lines <- Line{Timestamp: time.Now().UTC(), Item: item}
}

// drain is the single goroutine that owns file writes for this thread.
func (w *Writer) drain() {
	defer close(w.done)
	for line := range w.lines {
		if err := w.writeLine(line); err != nil {
			log.Printf("rollout: write to %s: %v", w.path, err)
		}
	}
}

func (w *Writer) writeLine(line Line) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal rollout line: %w", err)
	}
	if _, err := w.bufw.Write(b); err != nil {
		return err
	}
	if err := w.bufw.WriteByte('\n'); err != nil {
		return err
	}
	return w.bufw.Flush()
}

// Close stops accepting new lines, waits for the drain goroutine to flush
// everything already enqueued, and closes the underlying file.
func (w *Writer) Close() error {
	close(w.lines)
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.bufw.Flush(); err != nil {
		w.closeErr = err
	}
	if err := w.file.Close(); err != nil && w.closeErr == nil {
		w.closeErr = err
	}
	return w.closeErr
}

// Load reads every line of the rollout file at path, in order.
//
// Maps to: §4.2.4 resume — "the manager loads the rollout"
func Load(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rollout: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line Line
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("rollout: decode line in %s: %w", path, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rollout: scan %s: %w", path, err)
	}
	return lines, nil
}

// ItemsOf extracts the Item payload from each line, dropping timestamps,
// for callers that only need the truncation/metadata view.
func ItemsOf(lines []Line) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = l.Item
	}
	return items
}
