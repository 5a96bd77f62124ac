package rpc

import (
	"encoding/json"
	"sync"
)

// ClientInfo identifies the connecting client, sent with initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ClientCapabilities are the client-declared feature flags for this
// session. OptOutNotificationMethods lets the client suppress named
// notification streams it has no UI for.
type ClientCapabilities struct {
	OptOutNotificationMethods []string `json:"optOutNotificationMethods,omitempty"`
}

// InitializeParams is the payload of the mandatory first request.
type InitializeParams struct {
	ClientInfo   ClientInfo          `json:"clientInfo"`
	Capabilities *ClientCapabilities `json:"capabilities,omitempty"`
}

// InitializeResult is returned from a successful initialize call.
type InitializeResult struct {
	ServerInfo ClientInfo `json:"serverInfo"`
}

const serverName = "codex-temporal-go-appserver"

// sender delivers an already-framed outbound message (Response or
// Notification) over this session's transport. stdio and WebSocket
// transports each supply their own implementation.
type sender interface {
	send(v interface{}) error
}

// Session is one client connection: one JSON-RPC request-id space, one
// initialized flag, one set of opted-out notification methods. A stdio
// process has exactly one Session for its lifetime; a WebSocket listener
// creates one Session per accepted connection.
//
// Maps to: SPEC_FULL.md §4.1 "each connection is an independent JSON-RPC
// session with its own request-id space and its own initialized flag".
type Session struct {
	mu          sync.Mutex
	initialized bool
	clientInfo  ClientInfo
	optOut      map[string]bool

	out     sender
	methods map[string]Handler
}

// Handler answers one JSON-RPC method call. params is the raw params
// value from the request (nil for a no-params call); the returned value is
// marshaled into the response's result field.
type Handler func(s *Session, params json.RawMessage) (interface{}, *Error)

// NewSession wires a Session to its outbound sender and method table.
func NewSession(out sender, methods map[string]Handler) *Session {
	return &Session{out: out, methods: methods, optOut: map[string]bool{}}
}

// Dispatch handles one parsed Request, writing exactly one Response back
// through the transport unless the request was a notification (no id).
func (s *Session) Dispatch(req *Request) {
	if req.Method == "initialize" {
		s.handleInitialize(req)
		return
	}

	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		s.reply(req, nil, newError(CodeNotInitialized, "Not initialized"))
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		s.reply(req, nil, newError(CodeMethodNotFound, "method not found: "+req.Method))
		return
	}

	result, rpcErr := handler(s, req.Params)
	s.reply(req, result, rpcErr)
}

func (s *Session) handleInitialize(req *Request) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		s.reply(req, nil, newError(CodeAlreadyInitialized, "Already initialized"))
		return
	}
	s.mu.Unlock()

	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.reply(req, nil, newError(CodeInvalidParams, "invalid initialize params: "+err.Error()))
			return
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.clientInfo = params.ClientInfo
	if params.Capabilities != nil {
		for _, method := range params.Capabilities.OptOutNotificationMethods {
			s.optOut[method] = true
		}
	}
	s.mu.Unlock()

	s.reply(req, InitializeResult{ServerInfo: ClientInfo{Name: serverName, Version: "1"}}, nil)
}

func (s *Session) reply(req *Request, result interface{}, rpcErr *Error) {
	if req.isNotification() {
		return
	}
	var resp *Response
	if rpcErr != nil {
		resp = errorResponse(req.ID, rpcErr)
	} else {
		resp = successResponse(req.ID, result)
	}
	_ = s.out.send(resp)
}

// Notify sends a server-initiated notification, unless the client opted
// out of this method via its initialize capabilities.
func (s *Session) Notify(method string, params interface{}) error {
	s.mu.Lock()
	optedOut := s.optOut[method]
	s.mu.Unlock()
	if optedOut {
		return nil
	}
	notif, err := newNotification(method, params)
	if err != nil {
		return err
	}
	return s.out.send(notif)
}
