// Package rules compiles ignore patterns into case-insensitive matchers.
//
// A pattern ending in "/" matches a directory and everything below it, a
// pattern containing "*" is a wildcard where "*" also crosses path
// separators, and any other pattern matches one path exactly.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the matching strategy of a compiled rule.
type Kind int

const (
	DirectoryPrefix Kind = iota
	Wildcard
	Exact
)

func (k Kind) String() string {
	switch k {
	case DirectoryPrefix:
		return "directory"
	case Wildcard:
		return "wildcard"
	case Exact:
		return "exact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule is a single compiled ignore pattern.
type Rule struct {
	pattern string
	kind    Kind
	prefix  string         // lowercased directory, DirectoryPrefix only
	exact   string         // lowercased path, Exact only
	re      *regexp.Regexp // Wildcard only
}

// Pattern returns the pattern the rule was compiled from.
func (r Rule) Pattern() string { return r.pattern }

// Kind returns the matching strategy.
func (r Rule) Kind() Kind { return r.kind }

// Matches reports whether the normalized, slash-separated path matches.
func (r Rule) Matches(path string) bool {
	switch r.kind {
	case DirectoryPrefix:
		p := strings.ToLower(path)
		return p == r.prefix || strings.HasPrefix(p, r.prefix+"/")
	case Wildcard:
		return r.re.MatchString(path)
	default:
		return strings.ToLower(path) == r.exact
	}
}

func compileRule(pattern string) (Rule, error) {
	if pattern == "" {
		return Rule{}, fmt.Errorf("empty ignore pattern")
	}

	switch {
	case strings.HasSuffix(pattern, "/"):
		prefix := strings.TrimSuffix(pattern, "/")
		if prefix == "" {
			return Rule{}, fmt.Errorf("ignore pattern %q has no directory name", pattern)
		}
		return Rule{pattern: pattern, kind: DirectoryPrefix, prefix: strings.ToLower(prefix)}, nil
	case strings.Contains(pattern, "*"):
		re, err := regexp.Compile("(?i)^" + wildcardToRegexp(pattern) + "$")
		if err != nil {
			return Rule{}, fmt.Errorf("compiling ignore pattern %q: %w", pattern, err)
		}
		return Rule{pattern: pattern, kind: Wildcard, re: re}, nil
	default:
		return Rule{pattern: pattern, kind: Exact, exact: strings.ToLower(pattern)}, nil
	}
}

var starRun = regexp.MustCompile(`\*+`)

// wildcardToRegexp quotes every literal segment and turns each run of "*"
// into ".*".
func wildcardToRegexp(pattern string) string {
	parts := starRun.Split(pattern, -1)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, ".*")
}

// RuleSet is an immutable union of rules. It is safe for concurrent use.
type RuleSet struct {
	rules []Rule
}

// Compile builds a RuleSet from the defaults followed by the extra patterns.
// Duplicates are kept; a match by any rule suffices.
func Compile(defaults, extra []string) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]Rule, 0, len(defaults)+len(extra))}
	for _, group := range [][]string{defaults, extra} {
		for _, pattern := range group {
			r, err := compileRule(pattern)
			if err != nil {
				return nil, err
			}
			rs.rules = append(rs.rules, r)
		}
	}
	return rs, nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(defaults, extra []string) *RuleSet {
	rs, err := Compile(defaults, extra)
	if err != nil {
		panic(err)
	}
	return rs
}

// Matches reports whether any rule matches path. Backslashes are treated as
// separators.
func (rs *RuleSet) Matches(path string) bool {
	if rs == nil {
		return false
	}
	normalized := strings.ReplaceAll(path, `\`, "/")
	for _, r := range rs.rules {
		if r.Matches(normalized) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the compiled rules in declaration order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Patterns returns the source patterns in declaration order.
func (rs *RuleSet) Patterns() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.pattern
	}
	return out
}
