// Package jsonpaths turns example bodies and explicit body matchers into
// JSONPath assertions and evaluates those assertions against documents.
//
// An Assertion is pure data: a path, a kind and an expected value. Rendering
// assertions as test source or WireMock filters lives in internal/render.
package jsonpaths

import (
	"errors"
	"fmt"

	"github.com/getmockd/contractd/pkg/contract"
)

// Sentinel errors.
var (
	ErrInvalidPath          = errors.New("invalid JSONPath")
	ErrMissingEqualityValue = errors.New("by_equality path has no value in the body")
)

// Kind is the assertion performed at a path.
type Kind int

const (
	// KindEqual: some value at Path equals Value.
	KindEqual Kind = iota
	// KindMatches: some value at Path fully matches Value (*contract.Regex).
	KindMatches
	// KindNull: the value at Path is null.
	KindNull
	// KindContains: the array at Path contains Value.
	KindContains
	// KindSize: the array at Path has exactly Value (int) elements.
	KindSize
	// KindEmpty: the array or object at Path is empty.
	KindEmpty
	// KindType: a value exists at Path, arrays honour Min/Max and scalars
	// share the JSON type of Value when it is set.
	KindType
	// KindCommand: Value (string) is a command run by a verifier.
	KindCommand
)

var kindNames = [...]string{
	KindEqual:    "isEqualTo",
	KindMatches:  "matches",
	KindNull:     "isNull",
	KindContains: "contains",
	KindSize:     "hasSize",
	KindEmpty:    "isEmpty",
	KindType:     "isOfType",
	KindCommand:  "command",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Assertion is a single (path, kind, value) verification unit.
type Assertion struct {
	Path  string
	Kind  Kind
	Value any
	Min   *int
	Max   *int
}

// Pattern returns the regex of a KindMatches assertion.
func (a Assertion) Pattern() *contract.Regex {
	r, _ := a.Value.(*contract.Regex)
	return r
}

func (a Assertion) String() string {
	switch a.Kind {
	case KindNull, KindEmpty:
		return fmt.Sprintf("%s %s", a.Path, a.Kind)
	case KindType:
		return fmt.Sprintf("%s %s%s", a.Path, a.Kind, bounds(a.Min, a.Max))
	case KindEqual:
		if s, ok := a.Value.(string); ok {
			return fmt.Sprintf("%s %s %q", a.Path, a.Kind, s)
		}
	case KindContains:
		if s, ok := a.Value.(string); ok {
			return fmt.Sprintf("%s %s %q%s", a.Path, a.Kind, s, bounds(a.Min, nil))
		}
		return fmt.Sprintf("%s %s %v%s", a.Path, a.Kind, a.Value, bounds(a.Min, nil))
	}
	return fmt.Sprintf("%s %s %v", a.Path, a.Kind, a.Value)
}

func bounds(minOcc, maxOcc *int) string {
	switch {
	case minOcc != nil && maxOcc != nil:
		return fmt.Sprintf(" [%d..%d]", *minOcc, *maxOcc)
	case minOcc != nil:
		return fmt.Sprintf(" [%d..]", *minOcc)
	case maxOcc != nil:
		return fmt.Sprintf(" [..%d]", *maxOcc)
	}
	return ""
}
