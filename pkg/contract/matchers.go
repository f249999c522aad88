package contract

import (
	"fmt"
	"strings"
)

// MatchingType is the closed set of explicit body matcher kinds.
type MatchingType int

const (
	MatchEquality MatchingType = iota
	MatchType
	MatchCommand
	MatchRegex
	MatchDate
	MatchTime
	MatchTimestamp
	MatchNull
)

var matchingTypeNames = [...]string{
	MatchEquality:  "by_equality",
	MatchType:      "by_type",
	MatchCommand:   "by_command",
	MatchRegex:     "by_regex",
	MatchDate:      "by_date",
	MatchTime:      "by_time",
	MatchTimestamp: "by_timestamp",
	MatchNull:      "by_null",
}

func (t MatchingType) String() string {
	if int(t) < len(matchingTypeNames) {
		return matchingTypeNames[t]
	}
	return fmt.Sprintf("MatchingType(%d)", int(t))
}

// ParseMatchingType parses the YAML matcher type name.
func ParseMatchingType(s string) (MatchingType, error) {
	for i, name := range matchingTypeNames {
		if strings.EqualFold(s, name) {
			return MatchingType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown matcher type %q", s)
}

// RegexBased reports whether the type is verified through a pattern.
func (t MatchingType) RegexBased() bool {
	switch t {
	case MatchRegex, MatchDate, MatchTime, MatchTimestamp:
		return true
	}
	return false
}

// BodyMatcher overrides how the value found at Path is verified.
// Path is a JSONPath for JSON bodies and an XPath for XML bodies.
type BodyMatcher struct {
	Path string
	Type MatchingType

	// Value is the regex pattern for regex based types and the command
	// for MatchCommand. It is empty for the remaining types.
	Value string

	MinOccurrence *int
	MaxOccurrence *int
}

// Pattern returns the effective regex for regex based matchers. Date, time
// and timestamp matchers fall back to the predefined ISO patterns.
func (m BodyMatcher) Pattern() string {
	if m.Value != "" {
		return m.Value
	}
	switch m.Type {
	case MatchDate:
		return PatternISODate
	case MatchTime:
		return PatternISOTime
	case MatchTimestamp:
		return PatternISODateTime
	}
	return ""
}

func (m BodyMatcher) String() string {
	if m.Value != "" {
		return fmt.Sprintf("%s %s(%s)", m.Path, m.Type, m.Value)
	}
	return fmt.Sprintf("%s %s", m.Path, m.Type)
}

// BodyMatchers is the ordered list of matchers of one contract side.
type BodyMatchers []BodyMatcher

// HasMatchers reports whether any matcher is declared.
func (b BodyMatchers) HasMatchers() bool { return len(b) > 0 }

// Paths returns the declared paths in declaration order.
func (b BodyMatchers) Paths() []string {
	paths := make([]string, 0, len(b))
	for _, m := range b {
		paths = append(paths, m.Path)
	}
	return paths
}

// Effective drops matchers that are overridden by a later declaration for
// the same path, keeping the order of the surviving ones.
func (b BodyMatchers) Effective() BodyMatchers {
	last := make(map[string]int, len(b))
	for i, m := range b {
		last[m.Path] = i
	}
	out := make(BodyMatchers, 0, len(last))
	for i, m := range b {
		if last[m.Path] == i {
			out = append(out, m)
		}
	}
	return out
}

// Without returns the matchers whose type is not one of types.
func (b BodyMatchers) Without(types ...MatchingType) BodyMatchers {
	out := make(BodyMatchers, 0, len(b))
outer:
	for _, m := range b {
		for _, t := range types {
			if m.Type == t {
				continue outer
			}
		}
		out = append(out, m)
	}
	return out
}
