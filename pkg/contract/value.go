package contract

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrFileNotFound is returned when a file referenced from a contract body
// cannot be read.
var ErrFileNotFound = errors.New("referenced file not found")

// Side selects one of the two perspectives of a contract value.
type Side int

const (
	// Stub is the consumer (client) side.
	Stub Side = iota
	// Test is the producer (server) side.
	Test
)

func (s Side) String() string {
	if s == Test {
		return "test"
	}
	return "stub"
}

// Value holds a value that may differ between the stub and the test side.
// Construct it with NewValue or Single so that both sides are populated.
type Value struct {
	Client any
	Server any
}

// NewValue creates a Value. A nil side defaults to the other one.
func NewValue(client, server any) Value {
	if client == nil {
		client = server
	}
	if server == nil {
		server = client
	}
	return Value{Client: client, Server: server}
}

// Single creates a Value that is identical on both sides.
func Single(v any) Value {
	return Value{Client: v, Server: v}
}

// For returns the value for the given side.
func (v Value) For(side Side) any {
	if side == Test {
		return v.Server
	}
	return v.Client
}

// IsZero reports whether neither side carries a value.
func (v Value) IsZero() bool {
	return v.Client == nil && v.Server == nil
}

func (v Value) String() string {
	if fmt.Sprint(v.Client) == fmt.Sprint(v.Server) {
		return fmt.Sprint(v.Client)
	}
	return fmt.Sprintf("$(c(%v), p(%v))", v.Client, v.Server)
}

// RegexType controls the Go type of examples generated for a Regex.
type RegexType int

const (
	AsString RegexType = iota
	AsInteger
	AsDouble
	AsBoolean
)

// ParseRegexType parses the YAML regexType values (as_string, as_integer,
// as_double, as_long, as_short, as_boolean).
func ParseRegexType(s string) (RegexType, error) {
	switch strings.ToLower(s) {
	case "", "as_string":
		return AsString, nil
	case "as_integer", "as_long", "as_short":
		return AsInteger, nil
	case "as_double", "as_float":
		return AsDouble, nil
	case "as_boolean":
		return AsBoolean, nil
	default:
		return AsString, fmt.Errorf("unknown regexType %q", s)
	}
}

// Regex is a value whose equality is decided by a full match against a
// pattern rather than by literal comparison.
type Regex struct {
	pattern string
	full    *regexp.Regexp
	example any
	kind    RegexType
}

// NewRegex compiles pattern. Matching always anchors the whole input.
func NewRegex(pattern string) (*Regex, error) {
	full, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return &Regex{pattern: pattern, full: full}, nil
}

// MustRegex is like NewRegex but panics on an invalid pattern.
func MustRegex(pattern string) *Regex {
	r, err := NewRegex(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the source pattern.
func (r *Regex) Pattern() string { return r.pattern }

func (r *Regex) String() string { return r.pattern }

// Matches reports whether s matches the whole pattern.
func (r *Regex) Matches(s string) bool { return r.full.MatchString(s) }

// MatchesValue matches the textual form of an arbitrary scalar.
func (r *Regex) MatchesValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return r.Matches(t)
	case []byte:
		return r.Matches(string(t))
	case float64:
		return r.Matches(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return r.Matches(fmt.Sprint(t))
	}
}

// WithExample returns a copy of r carrying an explicit example value.
func (r *Regex) WithExample(example any) *Regex {
	cp := *r
	cp.example = example
	return &cp
}

// WithType returns a copy of r whose generated examples are converted to kind.
func (r *Regex) WithType(kind RegexType) *Regex {
	cp := *r
	cp.kind = kind
	return &cp
}

// Example returns the explicit example, if one was given.
func (r *Regex) Example() (any, bool) {
	return r.example, r.example != nil
}

// Type returns the declared example type.
func (r *Regex) Type() RegexType { return r.kind }

// Convert turns a generated textual example into the declared type.
func (r *Regex) Convert(s string) any {
	switch r.kind {
	case AsInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case AsDouble:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case AsBoolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

// FromFile references a body stored next to the contract file.
type FromFile struct {
	Path  string
	Bytes bool
}

// Load reads the referenced file.
func (f FromFile) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, f.Path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return data, nil
}

// Resolve loads the file as []byte when declared binary, as string otherwise.
func (f FromFile) Resolve() (any, error) {
	data, err := f.Load()
	if err != nil {
		return nil, err
	}
	if f.Bytes {
		return data, nil
	}
	return string(data), nil
}

// Execution is a command that only a producer-side verifier can evaluate.
// The placeholder $it refers to the value under verification.
type Execution struct {
	Command string
}

// Insert substitutes $it with the given expression.
func (e Execution) Insert(it string) string {
	return strings.ReplaceAll(e.Command, "$it", it)
}

func (e Execution) String() string { return e.Command }
