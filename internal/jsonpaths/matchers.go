package jsonpaths

import (
	"fmt"

	"github.com/getmockd/contractd/pkg/contract"
)

// FromMatcher translates one explicit matcher into an assertion. body is
// the projected dsl body; it provides the value for by_equality, the
// pattern for a by_regex without one and the example for by_type.
func FromMatcher(m contract.BodyMatcher, body any) (Assertion, error) {
	x, err := Parse(m.Path)
	if err != nil {
		return Assertion{}, err
	}
	found := x.Get(body)

	switch m.Type {
	case contract.MatchEquality:
		if len(found) == 0 {
			return Assertion{}, fmt.Errorf("%w: %s", ErrMissingEqualityValue, m.Path)
		}
		if r, ok := found[0].(*contract.Regex); ok {
			return Assertion{Path: m.Path, Kind: KindMatches, Value: r}, nil
		}
		return leaf(found[0], m.Path), nil

	case contract.MatchRegex, contract.MatchDate, contract.MatchTime, contract.MatchTimestamp:
		pattern := m.Pattern()
		if pattern == "" {
			if len(found) > 0 {
				if r, ok := found[0].(*contract.Regex); ok {
					return Assertion{Path: m.Path, Kind: KindMatches, Value: r}, nil
				}
			}
			return Assertion{}, fmt.Errorf("%s matcher at %s has no pattern", m.Type, m.Path)
		}
		r, err := contract.NewRegex(pattern)
		if err != nil {
			return Assertion{}, err
		}
		return Assertion{Path: m.Path, Kind: KindMatches, Value: r}, nil

	case contract.MatchNull:
		return Assertion{Path: m.Path, Kind: KindNull}, nil

	case contract.MatchCommand:
		return Assertion{Path: m.Path, Kind: KindCommand, Value: m.Value}, nil

	case contract.MatchType:
		var example any
		if len(found) > 0 {
			example = found[0]
		}
		return Assertion{Path: m.Path, Kind: KindType, Value: example, Min: m.MinOccurrence, Max: m.MaxOccurrence}, nil
	}
	return Assertion{}, fmt.Errorf("unsupported matcher type %s", m.Type)
}

// FromMatchers translates every effective matcher in declaration order.
func FromMatchers(matchers contract.BodyMatchers, body any) ([]Assertion, error) {
	eff := matchers.Effective()
	out := make([]Assertion, 0, len(eff))
	for _, m := range eff {
		a, err := FromMatcher(m, body)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Build generates the structural assertions of body, drops those covered by
// the matchers and appends the matcher assertions.
func Build(body any, matchers contract.BodyMatchers, opts Options) ([]Assertion, error) {
	structural, err := Covered(Generate(body, opts), matchers.Paths())
	if err != nil {
		return nil, err
	}
	explicit, err := FromMatchers(matchers, body)
	if err != nil {
		return nil, err
	}
	return append(structural, explicit...), nil
}
