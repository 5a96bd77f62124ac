package networkpolicy

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mfateev/codex-temporal-go/internal/execpolicy"
)

// Decider asks a human (or a cached prior answer) whether a connection an
// ask-decision covers should be allowed. Implementations typically run this
// through a Temporal Update/Signal round trip against the owning session's
// workflow; ProxyServer itself has no opinion on how the answer is obtained.
type Decider interface {
	DecideNetworkApproval(ctx context.Context, approval NetworkApprovalContext) (bool, error)
}

// ProxyServer is a forward HTTP/CONNECT proxy that consults an
// execpolicy.Policy before forwarding any request, turning a CheckNetwork
// verdict into either a pass-through, a deny response carrying
// DeniedNetworkPolicyMessage, or (for DecisionPrompt) a Decider round trip.
//
// Maps to: original_source/codex-rs/core/src/network_policy_decision.rs and
// its proxy-side counterpart; shaped on vanducng-goclaw's internal/gateway
// Server, which pairs a policy/permissions engine with a net/http listener
// the same way (that repo uses gorilla/websocket for its own transport —
// this proxy has no websocket leg of its own, so it stays on net/http).
type ProxyServer struct {
	Policy  *execpolicy.Policy
	Decider Decider

	// ApprovalMode selects whether an ask-decision blocks the in-flight
	// request (Immediate) or is allowed through and merely recorded for a
	// later async approval (Deferred).
	ApprovalMode NetworkApprovalMode

	// DialTimeout bounds establishing the upstream connection for an
	// allowed CONNECT request. Zero uses a 10s default.
	DialTimeout time.Duration
}

func (s *ProxyServer) dialTimeout() time.Duration {
	if s.DialTimeout > 0 {
		return s.DialTimeout
	}
	return 10 * time.Second
}

// ServeHTTP implements http.Handler, dispatching CONNECT (HTTPS tunneling)
// separately from plain forward HTTP requests.
func (s *ProxyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.serveConnect(w, r)
		return
	}
	s.serveForward(w, r)
}

func (s *ProxyServer) serveConnect(w http.ResponseWriter, r *http.Request) {
	host := hostOnly(r.Host)
	ctx := r.Context()

	allowed, blocked := s.authorize(ctx, host, "https")
	if blocked != nil {
		s.writeDenied(w, *blocked)
		return
	}
	if !allowed {
		s.writeDenied(w, BlockedRequest{Host: host, Reason: "not_allowed", Protocol: "https", Decision: string(NetworkDecisionDeny)})
		return
	}

	upstream, err := net.DialTimeout("tcp", r.Host, s.dialTimeout())
	if err != nil {
		http.Error(w, "failed to reach upstream host", http.StatusBadGateway)
		return
	}
	defer upstream.Close()

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "proxy does not support connection hijacking", http.StatusInternalServerError)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		log.Printf("networkpolicy: hijack failed for %s: %v", host, err)
		return
	}
	defer client.Close()

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() { io.Copy(upstream, client); done <- struct{}{} }()
	go func() { io.Copy(client, upstream); done <- struct{}{} }()
	<-done
}

func (s *ProxyServer) serveForward(w http.ResponseWriter, r *http.Request) {
	host := hostOnly(r.Host)
	ctx := r.Context()

	allowed, blocked := s.authorize(ctx, host, "http")
	if blocked != nil {
		s.writeDenied(w, *blocked)
		return
	}
	if !allowed {
		s.writeDenied(w, BlockedRequest{Host: host, Reason: "not_allowed", Protocol: "http", Decision: string(NetworkDecisionDeny)})
		return
	}

	outbound := r.Clone(ctx)
	outbound.RequestURI = ""
	resp, err := http.DefaultTransport.RoundTrip(outbound)
	if err != nil {
		http.Error(w, "failed to reach upstream host", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// authorize runs host+protocol through the policy and, for a Prompt
// verdict, the Decider. It returns allowed=true when the request should be
// forwarded, or a non-nil BlockedRequest describing why it was refused.
func (s *ProxyServer) authorize(ctx context.Context, host, protocol string) (allowed bool, blocked *BlockedRequest) {
	eval := s.Policy.CheckNetwork(host, protocol)
	switch eval.Decision {
	case execpolicy.DecisionAllow:
		return true, nil
	case execpolicy.DecisionForbidden:
		return false, &BlockedRequest{
			Host: host, Protocol: protocol, Decision: string(NetworkDecisionDeny),
			Reason: "denied", Source: string(NetworkDecisionSourceBaselinePolicy),
		}
	default: // DecisionPrompt
		payload := NetworkPolicyDecisionPayload{
			Decision: NetworkDecisionAsk,
			Source:   NetworkDecisionSourceDecider,
			Protocol: protocol,
			Host:     host,
		}
		approval, ok := NetworkApprovalContextFromPayload(payload)
		if !ok || s.Decider == nil {
			return false, &BlockedRequest{
				Host: host, Protocol: protocol, Decision: string(NetworkDecisionDeny),
				Reason: "not_allowed", Source: string(NetworkDecisionSourceBaselinePolicy),
			}
		}
		if s.ApprovalMode == NetworkApprovalDeferred {
			go s.Decider.DecideNetworkApproval(context.WithoutCancel(ctx), approval) //nolint:errcheck
			return true, nil
		}
		ok2, err := s.Decider.DecideNetworkApproval(ctx, approval)
		if err != nil || !ok2 {
			return false, &BlockedRequest{
				Host: host, Protocol: protocol, Decision: string(NetworkDecisionDeny),
				Reason: "not_allowed", Source: string(NetworkDecisionSourceDecider),
			}
		}
		return true, nil
	}
}

func (s *ProxyServer) writeDenied(w http.ResponseWriter, blocked BlockedRequest) {
	msg, ok := DeniedNetworkPolicyMessage(blocked)
	if !ok {
		msg = "Network access was blocked by policy."
	}
	http.Error(w, msg, http.StatusForbidden)
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.TrimSpace(hostport)
}
