package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
)

// stdioSender serializes one Response/Notification per line to out,
// guarded by a mutex since Notify can fire from a poll goroutine
// concurrently with the request-handling loop's replies.
type stdioSender struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *stdioSender) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(data); err != nil {
		return err
	}
	_, err = w.out.Write([]byte("\n"))
	return err
}

// ServeStdio runs one JSON-RPC session over newline-delimited JSON on in/
// out — one process per client, the framing the teacher's cmd/cli stdin
// reader loop already uses (bufio.Scanner per line), generalized from a
// plain-text line protocol to a JSON-RPC one.
//
// Maps to: SPEC_FULL.md §4.1 "stdio: one process per client".
func ServeStdio(in io.Reader, out io.Writer, bridge Bridge, codexHome string) error {
	sess := NewSession(&stdioSender{out: out}, BuildDispatchTable(bridge, codexHome))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = sess.out.send(errorResponse(nil, newError(CodeInvalidRequest, fmt.Sprintf("invalid JSON-RPC request: %v", err))))
			continue
		}
		sess.Dispatch(&req)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("rpc: stdio scan error: %v", err)
		return err
	}
	return nil
}
