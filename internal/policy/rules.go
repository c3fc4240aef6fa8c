package policy

import (
	"fmt"
	"strings"
)

// SkipRule marks a test family as incompatible with some backends.
type SkipRule struct {
	Prefix   string   `json:"prefix" yaml:"prefix" toml:"prefix"`
	Backends []string `json:"backends" yaml:"backends" toml:"backends"`
}

// Matches reports whether test and backend fall under the rule.
func (r SkipRule) Matches(test, backend string) bool {
	return strings.HasPrefix(test, r.Prefix) && containsAny(backend, r.Backends)
}

// RequiredFailure registers the stderr text an intentional-failure test must produce.
type RequiredFailure struct {
	// Prefixes are 4-character test identifier prefixes (e.g. "t110").
	Prefixes []string `json:"prefixes" yaml:"prefixes" toml:"prefixes"`

	// Backends optionally gates the rule: when non-empty the backend must
	// contain one of these substrings.
	Backends []string `json:"backends,omitempty" yaml:"backends,omitempty" toml:"backends,omitempty"`

	// Required is the exact text that must appear in stderr.
	Required string `json:"required" yaml:"required" toml:"required"`
}

// Matches reports whether the rule applies to test on backend.
func (r RequiredFailure) Matches(test, backend string) bool {
	if len(r.Backends) > 0 && !containsAny(backend, r.Backends) {
		return false
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(test, p) {
			return true
		}
	}
	return false
}

// Check evaluates captured stderr against the rule.
// The message is the pass note when ok, the failure message otherwise.
func (r RequiredFailure) Check(stderr string) (ok bool, message string) {
	if strings.Contains(stderr, r.Required) {
		return true, "fails with required: " + r.Required
	}
	return false, "required: " + r.Required
}

// Limitation identifies a benign environment limitation in stderr.
type Limitation struct {
	Substring string `json:"substring" yaml:"substring" toml:"substring"`
	Reason    string `json:"reason" yaml:"reason" toml:"reason"`
}

// SkipReason formats the skip message for a run hitting the limitation.
func (l Limitation) SkipReason(test, backend string) string {
	return fmt.Sprintf("%s %s %s", l.Reason, test, backend)
}

// Rules is a complete, ordered rule set.
type Rules struct {
	Skip             []SkipRule        `json:"skip" yaml:"skip" toml:"skip"`
	Limitations      []Limitation      `json:"limitations" yaml:"limitations" toml:"limitations"`
	RequiredFailures []RequiredFailure `json:"required_failures" yaml:"required_failures" toml:"required_failures"`

	// StdoutExempt lists test prefixes allowed to print without a reference file.
	StdoutExempt []string `json:"stdout_exempt" yaml:"stdout_exempt" toml:"stdout_exempt"`
}

// ShouldSkip reports whether the run must be skipped before execution.
func (r *Rules) ShouldSkip(test, backend string) bool {
	for _, rule := range r.Skip {
		if rule.Matches(test, backend) {
			return true
		}
	}
	return false
}

// Limitation returns the first limitation whose substring appears in stderr.
func (r *Rules) Limitation(stderr string) (Limitation, bool) {
	if stderr == "" {
		return Limitation{}, false
	}
	for _, l := range r.Limitations {
		if strings.Contains(stderr, l.Substring) {
			return l, true
		}
	}
	return Limitation{}, false
}

// RequiredFailure returns the first required-failure rule registered for test on backend.
func (r *Rules) RequiredFailure(test, backend string) (RequiredFailure, bool) {
	for _, rule := range r.RequiredFailures {
		if rule.Matches(test, backend) {
			return rule, true
		}
	}
	return RequiredFailure{}, false
}

// StdoutAllowed reports whether test may print without a reference file.
func (r *Rules) StdoutAllowed(test string) bool {
	for _, p := range r.StdoutExempt {
		if strings.HasPrefix(test, p) {
			return true
		}
	}
	return false
}

// Merge appends the entries of other after those of r.
func (r *Rules) Merge(other *Rules) {
	r.Skip = append(r.Skip, other.Skip...)
	r.Limitations = append(r.Limitations, other.Limitations...)
	r.RequiredFailures = append(r.RequiredFailures, other.RequiredFailures...)
	r.StdoutExempt = append(r.StdoutExempt, other.StdoutExempt...)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
