package execsession

import "sync"

// DefaultMaxBytes is the default capacity of a HeadTailBuffer used by
// unified-exec sessions (PTY and long-lived pipe processes).
const DefaultMaxBytes = 1 << 20 // 1 MiB

// chunk is one write appended to the tail ring.
type chunk []byte

// HeadTailBuffer is a capped buffer that keeps the *beginning* and the
// *end* of a stream of writes, dropping the middle once the stream
// exceeds max_bytes. The head is filled first and never evicted; once the
// head budget is exhausted, subsequent bytes roll through a tail window
// that always shows the most recent tail_budget bytes.
//
// Maps to: codex-rs/core/src/unified_exec/head_tail_buffer.rs HeadTailBuffer
//
// The teacher's internal/execsession/session.go already calls
// NewHeadTailBuffer(DefaultMaxBytes) and uses a *HeadTailBuffer, but never
// defines the type anywhere in the retrieved sources — this is a
// from-scratch port of the Rust original, including its edge cases.
type HeadTailBuffer struct {
	mu sync.Mutex

	headBudget int
	tailBudget int

	head []byte  // filled once, never evicted, capped at headBudget
	tail []chunk // ring of chunks, trimmed to tailBudget total bytes
	tailLen int  // total bytes currently held across tail chunks

	totalWritten int64
	omittedBytes int64
}

// NewHeadTailBuffer creates a buffer with the given total byte budget,
// split symmetrically: head_budget = max_bytes/2, tail_budget = max_bytes
// - head_budget (so an odd max_bytes gives the tail the extra byte).
func NewHeadTailBuffer(maxBytes int) *HeadTailBuffer {
	if maxBytes < 0 {
		maxBytes = 0
	}
	headBudget := maxBytes / 2
	tailBudget := maxBytes - headBudget
	return &HeadTailBuffer{
		headBudget: headBudget,
		tailBudget: tailBudget,
	}
}

// Push appends a chunk of bytes, routing through the head first and then
// the tail, per push_chunk in the Rust source.
func (b *HeadTailBuffer) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalWritten += int64(len(data))

	remaining := data

	// Fill the head first, up to headBudget. Once full, the head never
	// changes again — new bytes always go to the tail.
	if len(b.head) < b.headBudget {
		room := b.headBudget - len(b.head)
		take := room
		if take > len(remaining) {
			take = len(remaining)
		}
		b.head = append(b.head, remaining[:take]...)
		remaining = remaining[take:]
	}

	if len(remaining) == 0 {
		return
	}

	b.pushToTail(remaining)
}

// pushToTail handles the remainder of a write once the head is full.
//
// Maps to: push_to_tail in head_tail_buffer.rs.
func (b *HeadTailBuffer) pushToTail(data []byte) {
	if b.tailBudget == 0 {
		// Zero tail budget: nothing can be retained in the tail. All of it
		// is omitted.
		b.omittedBytes += int64(len(data))
		return
	}

	if len(data) >= b.tailBudget {
		// Oversized chunk: discard everything previously in the tail and
		// keep only the last tailBudget bytes of this chunk.
		omitted := b.tailLen + (len(data) - b.tailBudget)
		b.omittedBytes += int64(omitted)
		b.tail = []chunk{append(chunk(nil), data[len(data)-b.tailBudget:]...)}
		b.tailLen = b.tailBudget
		return
	}

	b.tail = append(b.tail, append(chunk(nil), data...))
	b.tailLen += len(data)
	b.trimTailToBudget()
}

// trimTailToBudget evicts the oldest tail chunks until the tail fits
// within tailBudget, tracking evicted bytes as omitted.
func (b *HeadTailBuffer) trimTailToBudget() {
	for b.tailLen > b.tailBudget && len(b.tail) > 0 {
		oldest := b.tail[0]
		if b.tailLen-len(oldest) >= b.tailBudget {
			// Can drop the whole oldest chunk.
			b.tail = b.tail[1:]
			b.tailLen -= len(oldest)
			b.omittedBytes += int64(len(oldest))
			continue
		}
		// Partially trim the oldest chunk down to fit.
		overBy := b.tailLen - b.tailBudget
		b.tail[0] = oldest[overBy:]
		b.tailLen -= overBy
		b.omittedBytes += int64(overBy)
	}
}

// TotalWritten returns the total number of bytes ever pushed, including
// bytes that were subsequently omitted.
func (b *HeadTailBuffer) TotalWritten() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalWritten
}

// RetainedBytes returns the number of bytes currently retained
// (head + tail). Always <= max_bytes.
func (b *HeadTailBuffer) RetainedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.head) + b.tailLen
}

// OmittedBytes returns the number of bytes dropped from the middle of the
// stream because they exceeded the combined head/tail budget.
func (b *HeadTailBuffer) OmittedBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.omittedBytes
}

// snapshotChunks returns the head followed by the tail chunks, in order.
func (b *HeadTailBuffer) snapshotChunks() [][]byte {
	out := make([][]byte, 0, 1+len(b.tail))
	if len(b.head) > 0 {
		out = append(out, b.head)
	}
	for _, c := range b.tail {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns a copy of the currently retained bytes, head followed
// by tail, with no gap marker (omitted byte counts are tracked
// separately and are not reinserted into the buffer).
func (b *HeadTailBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toBytes()
}

func (b *HeadTailBuffer) toBytes() []byte {
	chunks := b.snapshotChunks()
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// DrainChunks returns the retained chunks (head, then each tail chunk)
// without concatenating them, and resets the buffer to empty — including
// the omitted-byte counter, per the Rust original's drain_chunks.
func (b *HeadTailBuffer) DrainChunks() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.snapshotChunks()
	b.head = nil
	b.tail = nil
	b.tailLen = 0
	b.omittedBytes = 0
	return out
}
