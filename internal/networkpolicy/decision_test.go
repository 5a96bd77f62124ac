package networkpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkApprovalContextFromPayload_RequiresAskFromDecider(t *testing.T) {
	payload := NetworkPolicyDecisionPayload{
		Decision: NetworkDecisionDeny,
		Source:   NetworkDecisionSourceDecider,
		Protocol: "https",
		Host:     "example.com",
		Reason:   "not_allowed",
		Port:     443,
	}

	_, ok := NetworkApprovalContextFromPayload(payload)
	assert.False(t, ok)
}

func TestNetworkApprovalContextFromPayload_MapsHTTPHTTPSAndSocksProtocols(t *testing.T) {
	cases := []struct {
		protocol string
		want     NetworkApprovalProtocol
	}{
		{"http", NetworkProtocolHTTP},
		{"https", NetworkProtocolHTTPS},
		{"socks5_tcp", NetworkProtocolSocks5TCP},
		{"socks5_udp", NetworkProtocolSocks5UDP},
	}
	for _, c := range cases {
		payload := NetworkPolicyDecisionPayload{
			Decision: NetworkDecisionAsk,
			Source:   NetworkDecisionSourceDecider,
			Protocol: c.protocol,
			Host:     "example.com",
			Reason:   "not_allowed",
			Port:     443,
		}
		ctx, ok := NetworkApprovalContextFromPayload(payload)
		assert.True(t, ok, c.protocol)
		assert.Equal(t, NetworkApprovalContext{Host: "example.com", Protocol: c.want}, ctx, c.protocol)
	}
}

func TestNetworkApprovalContextFromPayload_NormalizesProxyProtocolAliases(t *testing.T) {
	for _, alias := range []string{"https_connect", "http-connect"} {
		payload := NetworkPolicyDecisionPayload{
			Decision: NetworkDecisionAsk,
			Source:   NetworkDecisionSourceDecider,
			Protocol: alias,
			Host:     "example.com",
			Reason:   "not_allowed",
			Port:     443,
		}
		ctx, ok := NetworkApprovalContextFromPayload(payload)
		assert.True(t, ok, alias)
		assert.Equal(t, NetworkProtocolHTTPS, ctx.Protocol, alias)
	}
}

func TestNetworkApprovalContextFromPayload_RejectsEmptyHost(t *testing.T) {
	payload := NetworkPolicyDecisionPayload{
		Decision: NetworkDecisionAsk,
		Source:   NetworkDecisionSourceDecider,
		Protocol: "https",
		Host:     "   ",
	}
	_, ok := NetworkApprovalContextFromPayload(payload)
	assert.False(t, ok)
}

func TestDeniedNetworkPolicyMessage_RequiresDenyDecision(t *testing.T) {
	blocked := BlockedRequest{
		Host:     "example.com",
		Reason:   "not_allowed",
		Method:   "GET",
		Protocol: "http",
		Decision: "ask",
		Source:   "decider",
		Port:     80,
	}
	_, ok := DeniedNetworkPolicyMessage(blocked)
	assert.False(t, ok)
}

func TestDeniedNetworkPolicyMessage_ForDenylistBlockIsExplicit(t *testing.T) {
	blocked := BlockedRequest{
		Host:     "example.com",
		Reason:   "denied",
		Method:   "GET",
		Protocol: "http",
		Decision: "deny",
		Source:   "baseline_policy",
		Port:     80,
	}
	msg, ok := DeniedNetworkPolicyMessage(blocked)
	assert.True(t, ok)
	assert.Equal(t, `Network access to "example.com" was blocked: domain is explicitly denied by policy and cannot be approved from this prompt.`, msg)
}

func TestDeniedNetworkPolicyMessage_UsesGenericDetailForUnknownReason(t *testing.T) {
	blocked := BlockedRequest{
		Host:     "example.com",
		Reason:   "something_new",
		Protocol: "http",
		Decision: "deny",
	}
	msg, ok := DeniedNetworkPolicyMessage(blocked)
	assert.True(t, ok)
	assert.Equal(t, `Network access to "example.com" was blocked: request is blocked by network policy.`, msg)
}
