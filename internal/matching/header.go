package matching

import (
	"fmt"
	"strings"

	"github.com/getmockd/contractd/pkg/contract"
)

// matchHeaders checks the declared headers in order and stops at the first
// mismatch. It reports whether all of them matched.
func (e *Engine) matchHeaders(res *Result, exp Expectation, actual map[string]any) bool {
	for _, p := range exp.Headers {
		field := "header:" + p.Name
		expected := p.Value.For(exp.Side)
		raw, present := lookupHeader(actual, p.Name)
		value := HeaderString(raw, e.unquote)

		switch want := expected.(type) {
		case *contract.Regex:
			if present && want.Matches(value) {
				res.pass(FieldResult{Field: field, Expected: want.Pattern(), Actual: value})
				continue
			}
			res.fail(FieldResult{
				Field:    field,
				Expected: want.Pattern(),
				Actual:   shownHeader(value, present),
				Reason: fmt.Sprintf("Header with name [%s] was supposed to match pattern [%s] but the value is [%s]",
					p.Name, want.Pattern(), shownHeader(value, present)),
			})
			return false

		case contract.Execution:
			if e.commands == nil {
				continue
			}
			var it any
			if present {
				it = value
			}
			if err := e.commands(want.Command, it); err != nil {
				res.fail(FieldResult{
					Field:    field,
					Expected: want.Command,
					Actual:   shownHeader(value, present),
					Reason:   fmt.Sprintf("Header with name [%s] failed command [%s]: %v", p.Name, want.Command, err),
				})
				return false
			}
			res.pass(FieldResult{Field: field, Expected: want.Command, Actual: value})

		default:
			literal := HeaderString(want, false)
			if present && value == literal {
				res.pass(FieldResult{Field: field, Expected: literal, Actual: value})
				continue
			}
			res.fail(FieldResult{
				Field:    field,
				Expected: literal,
				Actual:   shownHeader(value, present),
				Reason: fmt.Sprintf("Header with name [%s] was supposed to be equal to [%s] but the value is [%s]",
					p.Name, literal, shownHeader(value, present)),
			})
			return false
		}
	}
	return true
}

// lookupHeader finds a header by exact name first and falls back to a
// case-insensitive lookup.
func lookupHeader(headers map[string]any, name string) (any, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// HeaderString normalizes a transport header value to text. Byte values
// are decoded as UTF-8 and, when unquote is set, lose exactly one layer of
// surrounding double quotes. Multi-valued headers yield their first value.
func HeaderString(v any, unquote bool) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		s := string(t)
		if unquote {
			s = stripQuotes(s)
		}
		return s
	case []string:
		if len(t) == 0 {
			return ""
		}
		return t[0]
	case []any:
		if len(t) == 0 {
			return ""
		}
		return HeaderString(t[0], unquote)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func shownHeader(value string, present bool) string {
	if !present {
		return "null"
	}
	return truncate(value, 200)
}
