// Package networkpolicy implements the network approval broker: decoding
// the proxy's block/ask decisions into a typed approval context the
// workflow layer can request user sign-off on, and rendering the fixed
// deny-message vocabulary for requests the policy blocked outright.
//
// Maps to: original_source/codex-rs/core/src/network_policy_decision.rs
package networkpolicy

import "strings"

// NetworkPolicyDecision is the proxy's verdict for one request.
type NetworkPolicyDecision string

const (
	NetworkDecisionDeny NetworkPolicyDecision = "deny"
	NetworkDecisionAsk  NetworkPolicyDecision = "ask"
)

// NetworkDecisionSource identifies which layer produced the decision.
type NetworkDecisionSource string

const (
	NetworkDecisionSourceBaselinePolicy NetworkDecisionSource = "baseline_policy"
	NetworkDecisionSourceDecider        NetworkDecisionSource = "decider"
)

// NetworkApprovalProtocol is the wire protocol an ask-decision covers.
// Proxy-internal aliases (https_connect/http-connect) normalize to the
// plain Http/Https values the approval UI actually distinguishes.
type NetworkApprovalProtocol string

const (
	NetworkProtocolHTTP      NetworkApprovalProtocol = "http"
	NetworkProtocolHTTPS     NetworkApprovalProtocol = "https"
	NetworkProtocolSocks5TCP NetworkApprovalProtocol = "socks5_tcp"
	NetworkProtocolSocks5UDP NetworkApprovalProtocol = "socks5_udp"
)

// normalizeProtocol maps proxy-internal protocol spellings (CONNECT-tunnel
// aliases for HTTP/HTTPS) onto the four approval-facing values.
func normalizeProtocol(raw string) (NetworkApprovalProtocol, bool) {
	switch strings.ToLower(strings.ReplaceAll(raw, "-", "_")) {
	case "http":
		return NetworkProtocolHTTP, true
	case "https", "https_connect", "http_connect":
		return NetworkProtocolHTTPS, true
	case "socks5_tcp":
		return NetworkProtocolSocks5TCP, true
	case "socks5_udp":
		return NetworkProtocolSocks5UDP, true
	default:
		return "", false
	}
}

// NetworkApprovalContext is what the workflow layer needs to ask a user
// whether a specific outbound connection should be allowed.
type NetworkApprovalContext struct {
	Host     string                  `json:"host"`
	Protocol NetworkApprovalProtocol `json:"protocol"`
}

// NetworkApprovalMode selects whether an ask-decision blocks the
// in-flight request until answered (Immediate) or is merely logged and
// answered asynchronously for a future attempt (Deferred).
type NetworkApprovalMode string

const (
	NetworkApprovalImmediate NetworkApprovalMode = "immediate"
	NetworkApprovalDeferred  NetworkApprovalMode = "deferred"
)

// NetworkPolicyDecisionPayload is the proxy's per-request decision
// notification, decoded off the wire.
type NetworkPolicyDecisionPayload struct {
	Decision NetworkPolicyDecision  `json:"decision"`
	Source   NetworkDecisionSource  `json:"source"`
	Protocol string                 `json:"protocol,omitempty"`
	Host     string                 `json:"host,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Port     int                    `json:"port,omitempty"`
}

// IsAskFromDecider reports whether this payload represents a decider
// asking for live user approval, as opposed to a baseline-policy block or
// an automatic allow.
func (p NetworkPolicyDecisionPayload) IsAskFromDecider() bool {
	return p.Decision == NetworkDecisionAsk && p.Source == NetworkDecisionSourceDecider
}

// NetworkApprovalContextFromPayload derives an approval context from a
// decision payload, or returns ok=false if the payload doesn't represent
// an ask-from-decider with a valid protocol and non-empty host.
func NetworkApprovalContextFromPayload(p NetworkPolicyDecisionPayload) (NetworkApprovalContext, bool) {
	if !p.IsAskFromDecider() {
		return NetworkApprovalContext{}, false
	}
	protocol, ok := normalizeProtocol(p.Protocol)
	if !ok {
		return NetworkApprovalContext{}, false
	}
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return NetworkApprovalContext{}, false
	}
	return NetworkApprovalContext{Host: host, Protocol: protocol}, true
}

// BlockedRequest is the proxy's record of a request it refused to
// forward, used to render a client-facing deny message.
type BlockedRequest struct {
	Host     string `json:"host"`
	Reason   string `json:"reason"`
	Method   string `json:"method,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Decision string `json:"decision,omitempty"`
	Source   string `json:"source,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// denyReasonDetail is the fixed vocabulary of human-readable explanations
// for each reason code the proxy can attach to a deny decision. A reason
// not in this table still gets a message — the generic fallback — rather
// than silence.
var denyReasonDetail = map[string]string{
	"denied":             "domain is explicitly denied by policy and cannot be approved from this prompt",
	"not_allowed":        "domain is not on the allowlist for the current sandbox mode",
	"not_allowed_local":  "local/private network addresses are blocked by policy",
	"method_not_allowed": "request method is blocked by the current network mode",
	"proxy_disabled":     "managed network proxy is disabled",
}

const genericDenyDetail = "request is blocked by network policy"

// DeniedNetworkPolicyMessage renders the client-facing explanation for a
// blocked request, or returns ok=false if the request wasn't actually a
// deny decision (e.g. it was an ask, which gets its own approval flow
// instead of a deny message).
func DeniedNetworkPolicyMessage(blocked BlockedRequest) (string, bool) {
	if NetworkPolicyDecision(strings.ToLower(blocked.Decision)) != NetworkDecisionDeny {
		return "", false
	}

	host := strings.TrimSpace(blocked.Host)
	if host == "" {
		return "Network access was blocked by policy.", true
	}

	detail, ok := denyReasonDetail[blocked.Reason]
	if !ok {
		detail = genericDenyDetail
	}
	return "Network access to \"" + host + "\" was blocked: " + detail + ".", true
}
