package jsonpaths

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contractd/pkg/contract"
)

// ArrayMode selects how arrays are turned into assertions.
type ArrayMode int

const (
	// ArrayAuto treats arrays of scalars or equally shaped elements as
	// unordered content and arrays of differently shaped elements as
	// positional.
	ArrayAuto ArrayMode = iota
	// ArrayUnordered always asserts content without positions or sizes.
	ArrayUnordered
	// ArrayOrdered asserts every element at its index plus the array size.
	ArrayOrdered
)

// ParseArrayMode parses auto, unordered or ordered.
func ParseArrayMode(s string) (ArrayMode, error) {
	switch s {
	case "", "auto":
		return ArrayAuto, nil
	case "unordered":
		return ArrayUnordered, nil
	case "ordered":
		return ArrayOrdered, nil
	}
	return ArrayAuto, fmt.Errorf("unknown array mode %q", s)
}

func (m ArrayMode) String() string {
	switch m {
	case ArrayUnordered:
		return "unordered"
	case ArrayOrdered:
		return "ordered"
	}
	return "auto"
}

// Options configures path generation.
type Options struct {
	Arrays ArrayMode
}

// Generate walks a projected body and returns the structural assertions
// that verify it. Map keys are visited in sorted order so the output is
// deterministic. An empty root object yields no assertions.
func Generate(body any, opts Options) []Assertion {
	g := &generator{opts: opts, seen: make(map[string]struct{})}
	g.walk(body, Root)
	return g.out
}

type generator struct {
	opts Options
	out  []Assertion
	seen map[string]struct{}
}

func (g *generator) emit(a Assertion) {
	key := fmt.Sprintf("%s\x00%d\x00%T\x00%v", a.Path, a.Kind, a.Value, a.Value)
	if _, dup := g.seen[key]; dup {
		return
	}
	g.seen[key] = struct{}{}
	g.out = append(g.out, a)
}

func (g *generator) walk(node any, path string) {
	switch t := node.(type) {
	case map[string]any:
		if len(t) == 0 {
			if path != Root {
				g.emit(Assertion{Path: path, Kind: KindEmpty})
			}
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			g.walk(t[k], Child(path, k))
		}
	case []any:
		g.walkArray(t, path)
	default:
		g.emit(leaf(node, path))
	}
}

func (g *generator) walkArray(items []any, path string) {
	if len(items) == 0 {
		if g.opts.Arrays == ArrayOrdered {
			g.emit(Assertion{Path: path, Kind: KindSize, Value: 0})
		} else {
			g.emit(Assertion{Path: path, Kind: KindEmpty})
		}
		return
	}

	positional := g.opts.Arrays == ArrayOrdered ||
		(g.opts.Arrays == ArrayAuto && !homogeneous(items))
	if positional {
		if g.opts.Arrays == ArrayOrdered {
			g.emit(Assertion{Path: path, Kind: KindSize, Value: len(items)})
		}
		for i, item := range items {
			g.walk(item, Index(path, i))
		}
		return
	}

	// Repeated scalars keep their multiplicity: [1,1,2] needs two 1s.
	counts := make(map[string]int)
	for _, item := range items {
		if isContainsValue(item) {
			counts[scalarKey(item)]++
		}
	}
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any, []any:
			g.walk(t, Each(path))
		case *contract.Regex, nil, contract.Execution:
			g.emit(leaf(t, Each(path)))
		default:
			a := Assertion{Path: path, Kind: KindContains, Value: item}
			if n := counts[scalarKey(item)]; n > 1 {
				a.Min = &n
			}
			g.emit(a)
		}
	}
}

func isContainsValue(v any) bool {
	switch v.(type) {
	case map[string]any, []any, *contract.Regex, nil, contract.Execution:
		return false
	}
	return true
}

func scalarKey(v any) string {
	return fmt.Sprintf("%T\x00%v", v, v)
}

func leaf(v any, path string) Assertion {
	switch t := v.(type) {
	case nil:
		return Assertion{Path: path, Kind: KindNull}
	case *contract.Regex:
		return Assertion{Path: path, Kind: KindMatches, Value: t}
	case contract.Execution:
		return Assertion{Path: path, Kind: KindCommand, Value: t.Command}
	case []byte:
		return Assertion{Path: path, Kind: KindEqual, Value: string(t)}
	default:
		return Assertion{Path: path, Kind: KindEqual, Value: v}
	}
}

// homogeneous reports whether all elements are scalars, all are arrays, or
// all are objects sharing the same key set.
func homogeneous(items []any) bool {
	shape := func(v any) string {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return fmt.Sprint("object", keys)
		case []any:
			return "array"
		default:
			return "scalar"
		}
	}
	first := shape(items[0])
	for _, item := range items[1:] {
		if shape(item) != first {
			return false
		}
	}
	return true
}

// Covered drops the assertions whose path is selected by one of the
// matcher paths, so that explicit matchers replace structural inference.
func Covered(assertions []Assertion, matcherPaths []string) ([]Assertion, error) {
	if len(matcherPaths) == 0 {
		return assertions, nil
	}
	exprs := make([]jp.Expr, 0, len(matcherPaths))
	for _, p := range matcherPaths {
		x, err := Parse(p)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, x)
	}
	out := make([]Assertion, 0, len(assertions))
	for _, a := range assertions {
		path, err := Parse(a.Path)
		if err != nil {
			return nil, err
		}
		if !coveredBy(exprs, path) {
			out = append(out, a)
		}
	}
	return out, nil
}

func coveredBy(exprs []jp.Expr, path jp.Expr) bool {
	for _, x := range exprs {
		if covers(x, path) {
			return true
		}
	}
	return false
}
