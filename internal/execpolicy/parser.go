package execpolicy

import (
	"fmt"

	"go.starlark.net/starlark"
)

// ParsePolicy parses a Starlark policy file and returns a Policy.
// The Starlark file may contain calls to the prefix_rule() builtin.
//
// Maps to: codex-rs/execpolicy/src/lib.rs parse_policy
func ParsePolicy(filename, source string) (*Policy, error) {
	policy := NewPolicy()

	// Define the prefix_rule builtin
	prefixRule := starlark.NewBuiltin("prefix_rule", func(
		thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			patternVal    *starlark.List
			decisionStr   string
			justification string
			matchesVal    *starlark.List
			notMatchesVal *starlark.List
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"pattern", &patternVal,
			"decision?", &decisionStr,
			"justification?", &justification,
			"matches?", &matchesVal,
			"not_matches?", &notMatchesVal,
		); err != nil {
			return nil, err
		}

		// Default decision is "allow"
		if decisionStr == "" {
			decisionStr = "allow"
		}

		decision, err := ParseDecision(decisionStr)
		if err != nil {
			return nil, err
		}

		pattern, err := parsePatternFromStarlark(patternVal)
		if err != nil {
			return nil, err
		}

		if len(pattern) == 0 {
			return nil, fmt.Errorf("prefix_rule pattern must not be empty")
		}

		matches, err := parseExampleVectors(matchesVal)
		if err != nil {
			return nil, fmt.Errorf("matches: %w", err)
		}
		notMatches, err := parseExampleVectors(notMatchesVal)
		if err != nil {
			return nil, fmt.Errorf("not_matches: %w", err)
		}

		rule := &PrefixRule{
			Pattern:       pattern,
			Decision:      decision,
			Justification: justification,
			Matches:       matches,
			NotMatches:    notMatches,
		}
		policy.AddRule(rule)

		return starlark.None, nil
	})

	// Define the network_rule builtin (§4.5.3).
	networkRule := starlark.NewBuiltin("network_rule", func(
		thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			host          string
			decisionStr   string
			justification string
			protocolsVal  *starlark.List
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"host", &host,
			"decision?", &decisionStr,
			"justification?", &justification,
			"protocols?", &protocolsVal,
		); err != nil {
			return nil, err
		}
		if host == "" {
			return nil, fmt.Errorf("network_rule host must not be empty")
		}
		if decisionStr == "" {
			decisionStr = "prompt"
		}
		decision, err := ParseDecision(decisionStr)
		if err != nil {
			return nil, err
		}
		var protocols []string
		if protocolsVal != nil {
			protocols, err = starlarkListToStrings(protocolsVal)
			if err != nil {
				return nil, fmt.Errorf("protocols: %w", err)
			}
		}

		policy.AddNetworkRule(&NetworkRule{
			Host:          host,
			Protocols:     protocols,
			Decision:      decision,
			Justification: justification,
		})
		return starlark.None, nil
	})

	// Set up the Starlark environment with the builtins
	predeclared := starlark.StringDict{
		"prefix_rule":  prefixRule,
		"network_rule": networkRule,
	}

	thread := &starlark.Thread{Name: filename}

	_, err := starlark.ExecFile(thread, filename, source, predeclared)
	if err != nil {
		return nil, &ParseError{
			File:    filename,
			Message: fmt.Sprintf("starlark parse error: %v", err),
			Cause:   err,
		}
	}

	return policy, nil
}

// parsePatternFromStarlark converts a Starlark list into a PrefixPattern.
// Each element is either a string (PatternSingle) or a list of strings (PatternAlts).
func parsePatternFromStarlark(list *starlark.List) (PrefixPattern, error) {
	pattern := make(PrefixPattern, 0, list.Len())

	iter := list.Iterate()
	defer iter.Done()
	var val starlark.Value
	for iter.Next(&val) {
		switch v := val.(type) {
		case starlark.String:
			s := string(v)
			if s == "" {
				return nil, fmt.Errorf("pattern token must not be empty string")
			}
			pattern = append(pattern, PatternToken{
				Kind:   PatternSingle,
				Single: s,
			})
		case *starlark.List:
			alts, err := starlarkListToStrings(v)
			if err != nil {
				return nil, fmt.Errorf("alternative list: %w", err)
			}
			if len(alts) == 0 {
				return nil, fmt.Errorf("alternative list must not be empty")
			}
			pattern = append(pattern, PatternToken{
				Kind: PatternAlts,
				Alts: alts,
			})
		default:
			return nil, fmt.Errorf("pattern element must be string or list of strings, got %s", val.Type())
		}
	}

	return pattern, nil
}

// starlarkListToStrings converts a Starlark list to a Go string slice.
func starlarkListToStrings(list *starlark.List) ([]string, error) {
	result := make([]string, 0, list.Len())
	iter := list.Iterate()
	defer iter.Done()
	var val starlark.Value
	for iter.Next(&val) {
		s, ok := val.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", val.Type())
		}
		str := string(s)
		if str == "" {
			return nil, fmt.Errorf("alternative must not be empty string")
		}
		result = append(result, str)
	}
	return result, nil
}

// parseExampleVectors converts a Starlark list of lists of strings (the
// matches=/not_matches= keyword args) into [][]string. A nil list yields
// a nil result, matching the builtin's optional-argument default.
func parseExampleVectors(list *starlark.List) ([][]string, error) {
	if list == nil {
		return nil, nil
	}
	vectors := make([][]string, 0, list.Len())
	iter := list.Iterate()
	defer iter.Done()
	var val starlark.Value
	for iter.Next(&val) {
		inner, ok := val.(*starlark.List)
		if !ok {
			return nil, fmt.Errorf("expected list of strings, got %s", val.Type())
		}
		vec, err := starlarkListToStrings(inner)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// ParsePolicyMultiple parses multiple policy sources and merges them into one Policy.
func ParsePolicyMultiple(sources map[string]string) (*Policy, error) {
	merged := NewPolicy()
	for filename, source := range sources {
		p, err := ParsePolicy(filename, source)
		if err != nil {
			return nil, err
		}
		merged.Merge(p)
	}
	return merged, nil
}
