package rpc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// wsSender serializes one text frame per Response/Notification, guarded
// the same way stdioSender is — Notify can race a reply from the read
// loop.
type wsSender struct {
	mu   sync.Mutex
	ctx  context.Context
	conn *websocket.Conn
}

func (w *wsSender) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(w.ctx, websocket.MessageText, data)
}

// WebSocketHandler returns an http.Handler that accepts a WebSocket
// connection per request and runs an independent JSON-RPC Session over
// it — many sessions, one process, each with its own request-id space and
// initialized flag, per SPEC_FULL.md §4.1. Chosen over gorilla/websocket
// (vanducng-goclaw's choice for its own gateway) because coder/websocket
// takes a context.Context on every read/write, matching this codebase's
// context-propagation convention instead of gorilla's deadline-based API.
func WebSocketHandler(bridge Bridge, codexHome string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Printf("rpc: websocket accept failed: %v", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		sess := NewSession(&wsSender{ctx: ctx, conn: conn}, BuildDispatchTable(bridge, codexHome))

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var req Request
			if err := json.Unmarshal(data, &req); err != nil {
				_ = sess.out.send(errorResponse(nil, newError(CodeInvalidRequest, "invalid JSON-RPC request: "+err.Error())))
				continue
			}
			sess.Dispatch(&req)
		}
	})
}
