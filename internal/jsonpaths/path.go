package jsonpaths

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Root is the document root.
const Root = "$"

// Child appends a bracketed key to path.
func Child(path, key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, `'`, `\'`)
	return path + "['" + key + "']"
}

// Index appends an array index to path.
func Index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Each appends an array wildcard to path.
func Each(path string) string {
	return path + "[*]"
}

// Parse parses a JSONPath expression.
func Parse(path string) (jp.Expr, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
	}
	return x, nil
}

// fragments returns the location fragments of x, dropping notation markers.
func fragments(x jp.Expr) []jp.Frag {
	out := make([]jp.Frag, 0, len(x))
	for _, f := range x {
		if _, ok := f.(jp.Bracket); ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// covers reports whether matcher selects path itself or one of its
// ancestors. A wildcard on either side covers any index; descents and
// filters cover everything below them.
func covers(matcher, path jp.Expr) bool {
	m := fragments(matcher)
	p := fragments(path)
	if len(m) > len(p) {
		return false
	}
	for i, mf := range m {
		switch mv := mf.(type) {
		case jp.Root:
			if _, ok := p[i].(jp.Root); !ok {
				return false
			}
		case jp.Child:
			pv, ok := p[i].(jp.Child)
			if !ok || pv != mv {
				return false
			}
		case jp.Nth:
			switch pv := p[i].(type) {
			case jp.Nth:
				if pv != mv {
					return false
				}
			case jp.Wildcard:
			default:
				return false
			}
		case jp.Wildcard:
			switch p[i].(type) {
			case jp.Nth, jp.Wildcard, jp.Child:
			default:
				return false
			}
		default:
			return true
		}
	}
	return true
}

// SplitLast splits path into its parent expression and last fragment.
// The root path has no parent and a nil last fragment.
func SplitLast(path string) (jp.Expr, jp.Frag, error) {
	x, err := Parse(path)
	if err != nil {
		return nil, nil, err
	}
	frags := fragments(x)
	if len(frags) < 2 {
		return frags, nil, nil
	}
	return frags[:len(frags)-1], frags[len(frags)-1], nil
}

// Fragments returns the location fragments of path without the root.
func Fragments(path string) ([]jp.Frag, error) {
	x, err := Parse(path)
	if err != nil {
		return nil, err
	}
	frags := fragments(x)
	if len(frags) > 0 {
		if _, ok := frags[0].(jp.Root); ok {
			frags = frags[1:]
		}
	}
	return frags, nil
}
