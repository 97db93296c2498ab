// pkg/pattern/pattern.go
//
// Package pattern matches file names against filter expressions in which "*"
// stands for any run of characters and "?" for exactly one. Every other
// character is literal. Matching covers the whole name and ignores case.
package pattern

import (
	"regexp"
	"strings"
)

// Matcher is a compiled filter expression.
type Matcher struct {
	expr string
	re   *regexp.Regexp // nil never matches
}

// Compile translates expression into a Matcher. An empty expression matches
// nothing.
func Compile(expression string) *Matcher {
	m := &Matcher{expr: expression}
	if expression == "" {
		return m
	}
	re, err := regexp.Compile(translate(expression))
	if err != nil {
		// Unreachable with quoted input; degrade to never matching.
		return m
	}
	m.re = re
	return m
}

func translate(expression string) string {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range expression {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// Matches reports whether name matches the expression in full.
func (m *Matcher) Matches(name string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(name)
}

// String returns the source expression.
func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.expr
}

// Set is an ordered list of matchers combined with OR.
type Set []*Matcher

// CompileAll compiles every expression in order.
func CompileAll(expressions []string) Set {
	set := make(Set, 0, len(expressions))
	for _, e := range expressions {
		set = append(set, Compile(e))
	}
	return set
}

// MatchesAny reports whether any matcher accepts name. An empty set accepts
// nothing.
func (s Set) MatchesAny(name string) bool {
	for _, m := range s {
		if m.Matches(name) {
			return true
		}
	}
	return false
}

// Strings returns the source expressions.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.String()
	}
	return out
}
