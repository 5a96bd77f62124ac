package execpolicy

import "strings"

// NetworkRule classifies outbound network requests by host and protocol,
// the network counterpart to PrefixRule's command classification.
//
// Maps to: codex-rs/execpolicy/src/rule.rs NetworkRule (host matching) and
// original_source/codex-rs/core/src/network_policy_decision.rs (host/protocol
// normalization rules applied before comparison).
type NetworkRule struct {
	// Host is matched case-insensitively after normalization. A leading
	// "*." makes the rule match the host itself or any subdomain.
	Host string
	// Protocols, if non-empty, restricts the rule to these protocols
	// ("http", "https", "socks5_tcp", "socks5_udp"); empty matches any.
	Protocols     []string
	Decision      Decision
	Justification string
}

// normalizeHost lowercases, trims a trailing dot, strips an IPv4 ":port"
// suffix, and unwraps a bracketed IPv6 literal — the same normalization
// codex-rs applies before comparing a request's host against policy rules,
// so "Example.com.", "example.com:443", and "[::1]" all compare equal to
// their canonical form.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ".")

	if strings.HasPrefix(h, "[") {
		if end := strings.IndexByte(h, ']'); end != -1 {
			return h[1:end]
		}
		return h
	}

	// An IPv6 literal without brackets has more than one colon; a
	// host:port pair has exactly one. Only strip in the host:port case.
	if strings.Count(h, ":") == 1 {
		if idx := strings.IndexByte(h, ':'); idx != -1 {
			return h[:idx]
		}
	}
	return h
}

// normalizeProtocol lowercases and trims a protocol string for comparison.
func normalizeProtocol(protocol string) string {
	return strings.ToLower(strings.TrimSpace(protocol))
}

// hostMatches reports whether a normalized request host matches a rule's
// (unnormalized) host pattern, honoring a "*." wildcard prefix.
func hostMatches(ruleHost, reqHost string) bool {
	if strings.Contains(ruleHost, " ") || strings.Contains(reqHost, " ") {
		return false
	}
	normalizedRule := normalizeHost(strings.TrimPrefix(ruleHost, "*."))
	if strings.HasPrefix(ruleHost, "*.") {
		return reqHost == normalizedRule || strings.HasSuffix(reqHost, "."+normalizedRule)
	}
	return reqHost == normalizedRule
}

func (r *NetworkRule) protocolMatches(protocol string) bool {
	if len(r.Protocols) == 0 {
		return true
	}
	p := normalizeProtocol(protocol)
	for _, allowed := range r.Protocols {
		if normalizeProtocol(allowed) == p {
			return true
		}
	}
	return false
}

// CheckNetwork evaluates a host+protocol pair against every NetworkRule
// added to the policy, returning the highest decision across all matches
// (the same aggregation Check uses for commands). An empty or malformed
// host never matches any rule and falls through to DecisionPrompt, same
// as an unmatched command.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy::check (network variant)
func (p *Policy) CheckNetwork(host, protocol string) Evaluation {
	normalizedHost := normalizeHost(host)
	if normalizedHost == "" {
		return Evaluation{Decision: DecisionPrompt, UsedFallback: true}
	}

	var matched []Rule
	highest := DecisionAllow
	justification := ""
	for _, rule := range p.networkRules {
		if !hostMatches(rule.Host, normalizedHost) || !rule.protocolMatches(protocol) {
			continue
		}
		matched = append(matched, rule)
		if rule.Decision > highest {
			highest = rule.Decision
			justification = rule.Justification
		}
	}

	if len(matched) == 0 {
		return Evaluation{Decision: DecisionPrompt, UsedFallback: true}
	}
	return Evaluation{Decision: highest, MatchedRules: matched, Justification: justification}
}

// AddNetworkRule registers a network rule with the policy.
func (p *Policy) AddNetworkRule(r *NetworkRule) {
	p.networkRules = append(p.networkRules, r)
}

// Match implements Rule for NetworkRule so it can be reported alongside
// command rules in an Evaluation's MatchedRules.
func (r *NetworkRule) Match(_ []string) bool { return false }

// GetDecision implements Rule for NetworkRule.
func (r *NetworkRule) GetDecision() Decision { return r.Decision }

// GetJustification implements Rule for NetworkRule.
func (r *NetworkRule) GetJustification() string { return r.Justification }
