package matching

import (
	"fmt"
	"strings"
)

// FieldResult describes whether a single header or body path matched.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Result is the outcome of matching a candidate against an expectation.
type Result struct {
	Contract  string        `json:"contract,omitempty"`
	Matched   bool          `json:"matched"`
	Fields    []FieldResult `json:"fields,omitempty"`
	Unmatched []string      `json:"unmatched,omitempty"`
}

func (r *Result) pass(f FieldResult) {
	f.Matched = true
	r.Fields = append(r.Fields, f)
}

func (r *Result) fail(f FieldResult) {
	f.Matched = false
	r.Fields = append(r.Fields, f)
	r.Unmatched = append(r.Unmatched, f.Reason)
}

func (r *Result) finish() *Result {
	r.Matched = len(r.Unmatched) == 0
	return r
}

// Failed returns the fields that did not match, in evaluation order.
func (r *Result) Failed() []FieldResult {
	var out []FieldResult
	for _, f := range r.Fields {
		if !f.Matched {
			out = append(out, f)
		}
	}
	return out
}

// Reason returns a human-readable explanation of the result.
func (r *Result) Reason() string {
	if r == nil {
		return "no result"
	}
	return GenerateReason(r.Fields)
}

func (r *Result) String() string {
	if r.Matched {
		return "matched"
	}
	return strings.Join(r.Unmatched, "; ")
}

// GenerateReason summarizes field results: the fields that matched and the
// first one that did not.
func GenerateReason(fields []FieldResult) string {
	if len(fields) == 0 {
		return "no fields to compare"
	}

	var matched []string
	var firstMismatch *FieldResult

	for i := range fields {
		if fields[i].Matched {
			matched = append(matched, fields[i].Field)
		} else if firstMismatch == nil {
			firstMismatch = &fields[i]
		}
	}

	if firstMismatch == nil {
		return "all specified fields matched"
	}

	if len(matched) == 0 {
		return formatMismatch(firstMismatch)
	}

	return joinFields(matched) + " matched, but " + formatMismatch(firstMismatch)
}

func formatMismatch(f *FieldResult) string {
	if f.Reason != "" {
		return f.Reason
	}
	return fmt.Sprintf("%s expected %v, got %v", f.Field, f.Expected, f.Actual)
}

// joinFields joins field names with commas and "and".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}

// truncate shortens s to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
