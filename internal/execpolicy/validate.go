package execpolicy

import "fmt"

// Validate checks every PrefixRule's Matches/NotMatches example vectors
// against its own pattern, returning the first mismatch found. A rule
// with no examples is trivially valid — examples are optional annotations,
// not a coverage requirement.
//
// Maps to: codex-rs/execpolicy/src/rule.rs (matches/not_matches validation)
func (p *Policy) Validate() error {
	for _, rules := range p.rulesByProgram {
		for _, r := range rules {
			pr, ok := r.(*PrefixRule)
			if !ok {
				continue
			}
			for _, example := range pr.Matches {
				if !pr.Pattern.Matches(example) {
					return fmt.Errorf("execpolicy: rule %q: matches example %v does not match its own pattern",
						pr.Justification, example)
				}
			}
			for _, example := range pr.NotMatches {
				if pr.Pattern.Matches(example) {
					return fmt.Errorf("execpolicy: rule %q: not_matches example %v unexpectedly matches its own pattern",
						pr.Justification, example)
				}
			}
		}
	}
	return nil
}
