package jsonpaths

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/contractd/pkg/contract"
)

// NullPolicy decides whether an absent path satisfies a null assertion.
type NullPolicy int

const (
	// NullOrAbsent accepts both an explicit null and a missing path.
	NullOrAbsent NullPolicy = iota
	// NullOnly requires the path to be present with a null value.
	NullOnly
)

// ParseNullPolicy parses "null-or-absent" or "null-only".
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch s {
	case "", "null-or-absent":
		return NullOrAbsent, nil
	case "null-only":
		return NullOnly, nil
	}
	return NullOrAbsent, fmt.Errorf("unknown null policy %q", s)
}

// CommandFunc verifies a command assertion against the first value found
// at its path (nil when absent).
type CommandFunc func(command string, actual any) error

// Evaluator checks assertions against parsed JSON documents.
type Evaluator struct {
	Nulls NullPolicy

	// Commands runs command assertions. When nil they are skipped, which is
	// what live message routing wants.
	Commands CommandFunc
}

// Failure describes one assertion that did not hold.
type Failure struct {
	Assertion Assertion
	Reason    string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Assertion, f.Reason)
}

// CheckAll evaluates every assertion and returns all failures.
func (e Evaluator) CheckAll(assertions []Assertion, doc any) []Failure {
	var failures []Failure
	for _, a := range assertions {
		if reason, ok := e.Check(a, doc); !ok {
			failures = append(failures, Failure{Assertion: a, Reason: reason})
		}
	}
	return failures
}

// Check evaluates a single assertion. The reason is empty on success.
func (e Evaluator) Check(a Assertion, doc any) (string, bool) {
	x, err := Parse(a.Path)
	if err != nil {
		return err.Error(), false
	}
	results := x.Get(doc)

	switch a.Kind {
	case KindEqual:
		if len(results) == 0 {
			return "path not found", false
		}
		for _, r := range results {
			if valuesEqual(r, a.Value) {
				return "", true
			}
		}
		return fmt.Sprintf("expected %s but was %s", show(a.Value), showAll(results)), false

	case KindMatches:
		re := a.Pattern()
		if re == nil {
			return fmt.Sprintf("no pattern for %v", a.Value), false
		}
		if len(results) == 0 {
			return "path not found", false
		}
		for _, r := range results {
			if isScalar(r) && re.MatchesValue(r) {
				return "", true
			}
		}
		return fmt.Sprintf("%s does not match pattern [%s]", showAll(results), re.Pattern()), false

	case KindNull:
		if len(results) == 0 {
			if e.Nulls == NullOrAbsent {
				return "", true
			}
			return "path not found, expected null", false
		}
		for _, r := range results {
			if r == nil {
				return "", true
			}
		}
		return fmt.Sprintf("expected null but was %s", showAll(results)), false

	case KindContains:
		want := 1
		if a.Min != nil {
			want = *a.Min
		}
		for _, r := range results {
			if list, ok := r.([]any); ok {
				n := 0
				for _, item := range list {
					if valuesEqual(item, a.Value) {
						n++
					}
				}
				if n >= want {
					return "", true
				}
			}
		}
		if len(results) == 0 {
			return "path not found", false
		}
		if want > 1 {
			return fmt.Sprintf("array %s does not contain %s %d times", showAll(results), show(a.Value), want), false
		}
		return fmt.Sprintf("array %s does not contain %s", showAll(results), show(a.Value)), false

	case KindSize:
		want, _ := toFloat64(a.Value)
		for _, r := range results {
			if list, ok := r.([]any); ok && float64(len(list)) == want {
				return "", true
			}
		}
		if len(results) == 0 {
			return "path not found", false
		}
		return fmt.Sprintf("expected size %v but was %s", a.Value, showAll(results)), false

	case KindEmpty:
		for _, r := range results {
			switch t := r.(type) {
			case []any:
				if len(t) == 0 {
					return "", true
				}
			case map[string]any:
				if len(t) == 0 {
					return "", true
				}
			case string:
				if t == "" {
					return "", true
				}
			}
		}
		if len(results) == 0 {
			return "path not found", false
		}
		return fmt.Sprintf("expected empty but was %s", showAll(results)), false

	case KindType:
		if len(results) == 0 {
			return "path not found", false
		}
		return checkType(a, results)

	case KindCommand:
		if e.Commands == nil {
			return "", true
		}
		var actual any
		if len(results) > 0 {
			actual = results[0]
		}
		if err := e.Commands(fmt.Sprint(a.Value), actual); err != nil {
			return err.Error(), false
		}
		return "", true
	}
	return fmt.Sprintf("unsupported assertion kind %s", a.Kind), false
}

func checkType(a Assertion, results []any) (string, bool) {
	for _, r := range results {
		if list, ok := r.([]any); ok {
			n := len(list)
			if a.Min != nil && n < *a.Min {
				return fmt.Sprintf("array has %d elements, expected at least %d", n, *a.Min), false
			}
			if a.Max != nil && n > *a.Max {
				return fmt.Sprintf("array has %d elements, expected at most %d", n, *a.Max), false
			}
			continue
		}
		if a.Value == nil {
			continue
		}
		if _, isRegex := a.Value.(*contract.Regex); isRegex {
			continue
		}
		if want, got := jsonType(a.Value), jsonType(r); want != got {
			return fmt.Sprintf("expected a %s but was %s %s", want, got, show(r)), false
		}
	}
	return "", true
}

// ParseDocument parses a JSON payload. Structured Go values are returned
// in their generic map/slice form.
func ParseDocument(payload any) (any, error) {
	switch t := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return parseJSON(string(t))
	case string:
		return parseJSON(t)
	case map[string]any, []any:
		return t, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return parseJSON(string(data))
}

func parseJSON(s string) (any, error) {
	var doc any
	if err := oj.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	return doc, nil
}

// LooksLikeJSON reports whether s is a JSON object or array.
func LooksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	_, err := parseJSON(s)
	return err == nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any, nil:
		return false
	}
	return true
}

// valuesEqual compares JSON values. Objects and arrays are compared element
// by element, numbers by value whatever their Go type. Two integers are
// compared exactly.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !valuesEqual(av, ev) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !valuesEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	case *contract.Regex:
		return isScalar(actual) && e.MatchesValue(actual)
	case []byte:
		expected = string(e)
	}

	if ai, ok := toInt(actual); ok {
		if ei, ok := toInt(expected); ok {
			return ai == ei
		}
	}
	actualNum, actualIsNum := toFloat64(actual)
	expectedNum, expectedIsNum := toFloat64(expected)
	if actualIsNum && expectedIsNum {
		return actualNum == expectedNum
	}
	if actualIsNum != expectedIsNum {
		return false
	}
	as, aok := actual.(string)
	es, eok := expected.(string)
	if aok && eok {
		return as == es
	}
	return reflect.DeepEqual(actual, expected)
}

// toInt returns integer values as int64. Unsigned values above MaxInt64
// are not ok.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func jsonType(v any) string {
	if _, ok := toFloat64(v); ok {
		return "number"
	}
	switch v.(type) {
	case nil:
		return "null"
	case string, []byte:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func show(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func showAll(values []any) string {
	if len(values) == 1 {
		return show(values[0])
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = show(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
