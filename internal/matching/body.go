package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/getmockd/contractd/internal/convert"
	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/xpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

const bodyField = "body"

func (e *Engine) matchBody(res *Result, exp Expectation, cand Candidate) error {
	if exp.Body == nil {
		return nil
	}

	if ref, ok := fileReference(exp.Body, exp.Side); ok {
		return e.matchFile(res, ref, cand.Payload)
	}

	projected, err := convert.Project(exp.Body, exp.Side)
	if err != nil {
		return err
	}

	switch want := projected.(type) {
	case *contract.Regex:
		e.matchWholeBody(res, want, cand.Payload)
		return nil
	case contract.Execution:
		e.runBodyCommand(res, want, cand.Payload)
		return nil
	}

	switch ResolveContentType(exp.Headers, exp.Side, cand.Headers, projected) {
	case ContentJSON:
		return e.matchJSON(res, exp, projected, cand.Payload)
	case ContentXML:
		return e.matchXML(res, exp, projected, cand.Payload)
	}
	e.matchEqual(res, projected, cand.Payload)
	return nil
}

func fileReference(body any, side contract.Side) (contract.FromFile, bool) {
	switch t := body.(type) {
	case contract.FromFile:
		return t, true
	case contract.Value:
		ref, ok := t.For(side).(contract.FromFile)
		return ref, ok
	}
	return contract.FromFile{}, false
}

// matchFile compares byte for byte, or as text when the reference is not
// declared binary.
func (e *Engine) matchFile(res *Result, ref contract.FromFile, payload any) error {
	want, err := ref.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", convert.ErrFileReference, err)
	}
	got := payloadBytes(payload)
	field := FieldResult{Field: bodyField, Expected: ref.Path}

	var ok bool
	if ref.Bytes {
		ok = bytes.Equal(want, got)
	} else {
		ok = string(want) == string(got)
	}
	if ok {
		res.pass(field)
		return nil
	}
	field.Actual = truncate(string(got), 200)
	field.Reason = fmt.Sprintf("body does not equal the contents of file [%s]", ref.Path)
	res.fail(field)
	return nil
}

func (e *Engine) matchWholeBody(res *Result, want *contract.Regex, payload any) {
	got := string(payloadBytes(payload))
	field := FieldResult{Field: bodyField, Expected: want.Pattern(), Actual: truncate(got, 200)}
	if want.Matches(got) {
		res.pass(field)
		return
	}
	field.Reason = fmt.Sprintf("body [%s] does not match pattern [%s]", truncate(got, 200), want.Pattern())
	res.fail(field)
}

func (e *Engine) runBodyCommand(res *Result, want contract.Execution, payload any) {
	field := FieldResult{Field: bodyField, Expected: want.Command}
	if e.commands == nil {
		return
	}
	doc, err := jsonpaths.ParseDocument(payload)
	if err != nil {
		doc = string(payloadBytes(payload))
	}
	if err := e.commands(want.Command, doc); err != nil {
		field.Reason = fmt.Sprintf("body failed command [%s]: %v", want.Command, err)
		res.fail(field)
		return
	}
	res.pass(field)
}

func (e *Engine) matchJSON(res *Result, exp Expectation, projected, payload any) error {
	body := projected
	switch body.(type) {
	case map[string]any, []any:
	default:
		parsed, err := jsonpaths.ParseDocument(body)
		if err != nil {
			// A text body that only claims to be JSON.
			e.matchEqual(res, projected, payload)
			return nil
		}
		body = parsed
	}

	assertions, err := jsonpaths.Build(body, exp.Matchers, jsonpaths.Options{Arrays: e.arrays})
	if err != nil {
		return fmt.Errorf("contract %s: %w", exp.Name, err)
	}

	doc, err := jsonpaths.ParseDocument(payload)
	if err != nil {
		res.fail(FieldResult{
			Field:  bodyField,
			Actual: truncate(string(payloadBytes(payload)), 200),
			Reason: fmt.Sprintf("body is not valid JSON: %v", err),
		})
		return nil
	}

	ev := e.evaluator()
	e.record(res, assertions, func(a jsonpaths.Assertion) (string, bool) { return ev.Check(a, doc) })
	return nil
}

func (e *Engine) matchXML(res *Result, exp Expectation, projected, payload any) error {
	example, err := xpaths.Parse(textOf(projected))
	if err != nil {
		e.matchEqual(res, projected, payload)
		return nil
	}
	assertions, err := xpaths.Build(example, exp.Matchers)
	if err != nil {
		return fmt.Errorf("contract %s: %w", exp.Name, err)
	}

	doc, err := xpaths.Parse(payloadBytes(payload))
	if err != nil {
		res.fail(FieldResult{
			Field:  bodyField,
			Actual: truncate(string(payloadBytes(payload)), 200),
			Reason: fmt.Sprintf("body is not valid XML: %v", err),
		})
		return nil
	}

	ev := xpaths.Evaluator{Nulls: e.nulls, Commands: e.commands}
	e.record(res, assertions, func(a jsonpaths.Assertion) (string, bool) { return ev.Check(a, doc) })
	return nil
}

// record evaluates every assertion and keeps every failure rather than
// stopping at the first.
func (e *Engine) record(res *Result, assertions []jsonpaths.Assertion, check func(jsonpaths.Assertion) (string, bool)) {
	for _, a := range assertions {
		field := FieldResult{Field: a.Path, Expected: a.String()}
		if reason, ok := check(a); !ok {
			field.Reason = fmt.Sprintf("%s: %s", a.Path, reason)
			res.fail(field)
			continue
		}
		res.pass(field)
	}
}

// matchEqual compares the projected body with the payload, as values when
// both are structured and as text otherwise.
func (e *Engine) matchEqual(res *Result, projected, payload any) {
	want := textOf(projected)
	got := string(payloadBytes(payload))
	field := FieldResult{Field: bodyField, Expected: truncate(want, 200), Actual: truncate(got, 200)}
	if reflect.DeepEqual(projected, payload) || want == got {
		res.pass(field)
		return
	}
	field.Reason = fmt.Sprintf("body was supposed to be equal to [%s] but was [%s]", truncate(want, 200), truncate(got, 200))
	res.fail(field)
}

// payloadBytes returns the raw form of a payload. Structured payloads are
// serialized as JSON.
func payloadBytes(payload any) []byte {
	switch t := payload.(type) {
	case nil:
		return nil
	case []byte:
		return t
	case string:
		return []byte(t)
	case fmt.Stringer:
		return []byte(t.String())
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return []byte(fmt.Sprint(payload))
	}
	return data
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return string(payloadBytes(v))
}
