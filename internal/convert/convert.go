// Package convert projects contract bodies onto one side of the exchange.
//
// Bodies are walked depth first. Maps and lists are rebuilt, scalars pass
// through unchanged and a nil stays a literal nil node.
package convert

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/getmockd/contractd/pkg/contract"
)

// ErrFileReference is returned when a body file reference cannot be resolved.
var ErrFileReference = errors.New("body file reference")

// Transform rebuilds body, replacing every leaf by fn(leaf). Maps and lists
// are descended into; fn sees contract.Value, *contract.Regex,
// contract.FromFile and contract.Execution nodes as leaves.
func Transform(body any, fn func(any) (any, error)) (any, error) {
	switch t := body.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			nv, err := Transform(v, fn)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			nv, err := Transform(v, fn)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case nil, string, []byte, bool, int, int64, float64,
		contract.Value, *contract.Regex, contract.FromFile, contract.Execution:
		return fn(body)
	}
	return transformReflect(body, fn)
}

// transformReflect handles typed maps and slices such as map[string]string
// or []map[string]any by converting them to their generic form.
func transformReflect(body any, fn func(any) (any, error)) (any, error) {
	rv := reflect.ValueOf(body)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fn(body)
		}
		generic := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[iter.Key().String()] = iter.Value().Interface()
		}
		return Transform(generic, fn)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return fn(body)
		}
		generic := make([]any, rv.Len())
		for i := range generic {
			generic[i] = rv.Index(i).Interface()
		}
		return Transform(generic, fn)
	}
	return fn(body)
}

// Project replaces every contract.Value by its value for side and resolves
// file references. Regex and Execution nodes are kept since they describe
// how a value is verified rather than the value itself.
func Project(body any, side contract.Side) (any, error) {
	var project func(any) (any, error)
	project = func(v any) (any, error) {
		switch t := v.(type) {
		case contract.Value:
			return Transform(t.For(side), project)
		case contract.FromFile:
			resolved, err := t.Resolve()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFileReference, err)
			}
			return resolved, nil
		default:
			return v, nil
		}
	}
	return Transform(body, project)
}

// Concrete projects body like Project and then replaces every Regex by an
// example value, yielding a payload that can actually be sent.
func Concrete(body any, side contract.Side) (any, error) {
	projected, err := Project(body, side)
	if err != nil {
		return nil, err
	}
	return Transform(projected, func(v any) (any, error) {
		switch t := v.(type) {
		case *contract.Regex:
			return Example(t), nil
		case contract.Execution:
			return t.Command, nil
		default:
			return v, nil
		}
	})
}
