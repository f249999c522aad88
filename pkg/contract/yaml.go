package contract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlContract mirrors the YAML contract document.
type yamlContract struct {
	Name          string             `yaml:"name"`
	Description   string             `yaml:"description"`
	Label         string             `yaml:"label"`
	Priority      int                `yaml:"priority"`
	Ignored       bool               `yaml:"ignored"`
	InProgress    bool               `yaml:"inProgress"`
	Metadata      map[string]any     `yaml:"metadata"`
	Request       *yamlRequest       `yaml:"request"`
	Response      *yamlResponse      `yaml:"response"`
	Input         *yamlInput         `yaml:"input"`
	OutputMessage *yamlOutputMessage `yaml:"outputMessage"`
}

type yamlRequest struct {
	Method              string            `yaml:"method"`
	URL                 string            `yaml:"url"`
	URLPath             string            `yaml:"urlPath"`
	QueryParameters     orderedMap        `yaml:"queryParameters"`
	Headers             orderedMap        `yaml:"headers"`
	Cookies             orderedMap        `yaml:"cookies"`
	Body                any               `yaml:"body"`
	BodyFromFile        string            `yaml:"bodyFromFile"`
	BodyFromFileAsBytes string            `yaml:"bodyFromFileAsBytes"`
	Matchers            *yamlStubMatchers `yaml:"matchers"`
}

type yamlStubMatchers struct {
	URL             *yamlKeyValueMatcher  `yaml:"url"`
	Body            []yamlBodyMatcher     `yaml:"body"`
	Headers         []yamlKeyValueMatcher `yaml:"headers"`
	QueryParameters []yamlQueryMatcher    `yaml:"queryParameters"`
	Cookies         []yamlKeyValueMatcher `yaml:"cookies"`
}

type yamlResponse struct {
	Status                 int               `yaml:"status"`
	Headers                orderedMap        `yaml:"headers"`
	Cookies                orderedMap        `yaml:"cookies"`
	Body                   any               `yaml:"body"`
	BodyFromFile           string            `yaml:"bodyFromFile"`
	BodyFromFileAsBytes    string            `yaml:"bodyFromFileAsBytes"`
	Async                  bool              `yaml:"async"`
	FixedDelayMilliseconds int               `yaml:"fixedDelayMilliseconds"`
	Matchers               *yamlTestMatchers `yaml:"matchers"`
}

type yamlTestMatchers struct {
	Body    []yamlBodyMatcher     `yaml:"body"`
	Headers []yamlKeyValueMatcher `yaml:"headers"`
	Cookies []yamlKeyValueMatcher `yaml:"cookies"`
}

type yamlInput struct {
	MessageFrom                string            `yaml:"messageFrom"`
	TriggeredBy                string            `yaml:"triggeredBy"`
	MessageHeaders             orderedMap        `yaml:"messageHeaders"`
	MessageBody                any               `yaml:"messageBody"`
	MessageBodyFromFile        string            `yaml:"messageBodyFromFile"`
	MessageBodyFromFileAsBytes string            `yaml:"messageBodyFromFileAsBytes"`
	AssertThat                 string            `yaml:"assertThat"`
	Matchers                   *yamlStubMatchers `yaml:"matchers"`
}

type yamlOutputMessage struct {
	SentTo              string            `yaml:"sentTo"`
	Headers             orderedMap        `yaml:"headers"`
	Body                any               `yaml:"body"`
	BodyFromFile        string            `yaml:"bodyFromFile"`
	BodyFromFileAsBytes string            `yaml:"bodyFromFileAsBytes"`
	AssertThat          string            `yaml:"assertThat"`
	Matchers            *yamlTestMatchers `yaml:"matchers"`
}

type yamlBodyMatcher struct {
	Path          string `yaml:"path"`
	Type          string `yaml:"type"`
	Value         string `yaml:"value"`
	Predefined    string `yaml:"predefined"`
	MinOccurrence *int   `yaml:"minOccurrence"`
	MaxOccurrence *int   `yaml:"maxOccurrence"`
	RegexType     string `yaml:"regexType"`
}

type yamlKeyValueMatcher struct {
	Key        string `yaml:"key"`
	Regex      string `yaml:"regex"`
	Predefined string `yaml:"predefined"`
	Command    string `yaml:"command"`
	RegexType  string `yaml:"regexType"`
}

type yamlQueryMatcher struct {
	Key   string `yaml:"key"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// orderedMap keeps the declaration order of a YAML mapping.
type orderedMap []mapEntry

type mapEntry struct {
	Key   string
	Value any
}

// UnmarshalYAML implements custom unmarshaling that preserves key order.
func (m *orderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v any
		if err := node.Content[i+1].Decode(&v); err != nil {
			return err
		}
		*m = append(*m, mapEntry{Key: node.Content[i].Value, Value: v})
	}
	return nil
}

// mapper converts one decoded document into a Contract.
type mapper struct {
	dir string
}

func (mp *mapper) contract(y *yamlContract) (*Contract, error) {
	c := &Contract{
		Name:        y.Name,
		Description: y.Description,
		Label:       y.Label,
		Priority:    y.Priority,
		Ignored:     y.Ignored,
		InProgress:  y.InProgress,
		Metadata:    y.Metadata,
	}
	var err error
	if y.Request != nil {
		if c.Request, err = mp.request(y.Request); err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
	}
	if y.Response != nil {
		if c.Response, err = mp.response(y.Response); err != nil {
			return nil, fmt.Errorf("response: %w", err)
		}
	}
	if y.Input != nil {
		if c.Input, err = mp.input(y.Input); err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
	}
	if y.OutputMessage != nil {
		if c.OutputMessage, err = mp.output(y.OutputMessage); err != nil {
			return nil, fmt.Errorf("outputMessage: %w", err)
		}
	}
	return c, nil
}

func (mp *mapper) request(y *yamlRequest) (*Request, error) {
	m := y.Matchers
	if m == nil {
		m = &yamlStubMatchers{}
	}
	r := &Request{Method: Single(strings.ToUpper(y.Method))}

	if y.URL != "" || y.URLPath != "" {
		literal := y.URL
		if literal == "" {
			literal = y.URLPath
		}
		v := Single(literal)
		if m.URL != nil {
			pattern, err := keyValuePattern(*m.URL)
			if err != nil {
				return nil, fmt.Errorf("url matcher: %w", err)
			}
			if pattern != nil {
				v = NewValue(pattern, literal)
			}
		}
		if y.URL != "" {
			r.URL = &v
		} else {
			r.URLPath = &v
		}
	}

	var err error
	if r.Headers, err = stubParams(y.Headers, m.Headers); err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	if r.Cookies, err = stubParams(y.Cookies, m.Cookies); err != nil {
		return nil, fmt.Errorf("cookies: %w", err)
	}
	if r.QueryParameters, err = queryParams(y.QueryParameters, m.QueryParameters); err != nil {
		return nil, fmt.Errorf("queryParameters: %w", err)
	}
	r.Body = mp.body(y.Body, y.BodyFromFile, y.BodyFromFileAsBytes)
	if r.BodyMatchers, err = bodyMatchers(m.Body); err != nil {
		return nil, fmt.Errorf("matchers: %w", err)
	}
	return r, nil
}

func (mp *mapper) response(y *yamlResponse) (*Response, error) {
	m := y.Matchers
	if m == nil {
		m = &yamlTestMatchers{}
	}
	r := &Response{
		Status:                 y.Status,
		Async:                  y.Async,
		FixedDelayMilliseconds: y.FixedDelayMilliseconds,
	}
	var err error
	if r.Headers, err = testParams(y.Headers, m.Headers); err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	if r.Cookies, err = testParams(y.Cookies, m.Cookies); err != nil {
		return nil, fmt.Errorf("cookies: %w", err)
	}
	body := mp.body(y.Body, y.BodyFromFile, y.BodyFromFileAsBytes)
	if r.Body, r.BodyMatchers, err = testBody(body, m.Body); err != nil {
		return nil, err
	}
	return r, nil
}

func (mp *mapper) input(y *yamlInput) (*Input, error) {
	m := y.Matchers
	if m == nil {
		m = &yamlStubMatchers{}
	}
	in := &Input{
		MessageFrom: y.MessageFrom,
		TriggeredBy: y.TriggeredBy,
		AssertThat:  y.AssertThat,
		MessageBody: mp.body(y.MessageBody, y.MessageBodyFromFile, y.MessageBodyFromFileAsBytes),
	}
	var err error
	if in.MessageHeaders, err = stubParams(y.MessageHeaders, m.Headers); err != nil {
		return nil, fmt.Errorf("messageHeaders: %w", err)
	}
	if in.BodyMatchers, err = bodyMatchers(m.Body); err != nil {
		return nil, fmt.Errorf("matchers: %w", err)
	}
	return in, nil
}

func (mp *mapper) output(y *yamlOutputMessage) (*OutputMessage, error) {
	m := y.Matchers
	if m == nil {
		m = &yamlTestMatchers{}
	}
	out := &OutputMessage{SentTo: y.SentTo, AssertThat: y.AssertThat}
	var err error
	if out.Headers, err = testParams(y.Headers, m.Headers); err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	body := mp.body(y.Body, y.BodyFromFile, y.BodyFromFileAsBytes)
	if out.Body, out.BodyMatchers, err = testBody(body, m.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (mp *mapper) body(body any, fromFile, fromFileAsBytes string) any {
	switch {
	case fromFile != "":
		return FromFile{Path: mp.resolve(fromFile)}
	case fromFileAsBytes != "":
		return FromFile{Path: mp.resolve(fromFileAsBytes), Bytes: true}
	default:
		return body
	}
}

func (mp *mapper) resolve(path string) string {
	if filepath.IsAbs(path) || mp.dir == "" {
		return path
	}
	return filepath.Join(mp.dir, path)
}

// stubParams builds params whose client value is replaced by the matcher's
// pattern while the literal stays on the server side.
func stubParams(values orderedMap, matchers []yamlKeyValueMatcher) (Params, error) {
	params := make(Params, 0, len(values))
	for _, e := range values {
		literal := scalarString(e.Value)
		v := Single(literal)
		if m, ok := findKeyValueMatcher(matchers, e.Key); ok {
			if m.Command != "" {
				return nil, fmt.Errorf("%s: command matchers are only allowed on the test side", e.Key)
			}
			pattern, err := keyValuePattern(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			if pattern != nil {
				v = NewValue(pattern, literal)
			}
		}
		params = append(params, Param{Name: e.Key, Value: v})
	}
	return params, nil
}

// testParams builds params whose server value is replaced by the matcher's
// pattern or command while the literal stays on the client side.
func testParams(values orderedMap, matchers []yamlKeyValueMatcher) (Params, error) {
	params := make(Params, 0, len(values))
	for _, e := range values {
		literal := scalarString(e.Value)
		v := Single(literal)
		if m, ok := findKeyValueMatcher(matchers, e.Key); ok {
			if m.Command != "" {
				v = NewValue(literal, Execution{Command: m.Command})
			} else {
				pattern, err := keyValuePattern(m)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", e.Key, err)
				}
				if pattern != nil {
					v = NewValue(literal, pattern)
				}
			}
		}
		params = append(params, Param{Name: e.Key, Value: v})
	}
	return params, nil
}

func queryParams(values orderedMap, matchers []yamlQueryMatcher) (Params, error) {
	var params Params
	for _, e := range values {
		items, ok := e.Value.([]any)
		if !ok {
			items = []any{e.Value}
		}
		for _, item := range items {
			literal := scalarString(item)
			v := Single(literal)
			for _, m := range matchers {
				if m.Key != e.Key {
					continue
				}
				switch strings.ToLower(m.Type) {
				case "equal_to", "":
					v = NewValue(m.Value, literal)
				case "matching":
					r, err := NewRegex(m.Value)
					if err != nil {
						return nil, fmt.Errorf("%s: %w", e.Key, err)
					}
					v = NewValue(r, literal)
				case "containing":
					v = NewValue(MustRegex(".*"+regexp.QuoteMeta(m.Value)+".*"), literal)
				default:
					return nil, fmt.Errorf("%s: unsupported query parameter matcher %q", e.Key, m.Type)
				}
			}
			params = append(params, Param{Name: e.Key, Value: v})
		}
	}
	return params, nil
}

func findKeyValueMatcher(matchers []yamlKeyValueMatcher, key string) (yamlKeyValueMatcher, bool) {
	for _, m := range matchers {
		if strings.EqualFold(m.Key, key) {
			return m, true
		}
	}
	return yamlKeyValueMatcher{}, false
}

func keyValuePattern(m yamlKeyValueMatcher) (*Regex, error) {
	pattern := m.Regex
	if pattern == "" && m.Predefined != "" {
		p, err := Predefined(m.Predefined)
		if err != nil {
			return nil, err
		}
		pattern = p
	}
	if pattern == "" {
		return nil, nil
	}
	r, err := NewRegex(pattern)
	if err != nil {
		return nil, err
	}
	kind, err := ParseRegexType(m.RegexType)
	if err != nil {
		return nil, err
	}
	return r.WithType(kind), nil
}

func bodyMatchers(in []yamlBodyMatcher) (BodyMatchers, error) {
	out := make(BodyMatchers, 0, len(in))
	for i, y := range in {
		t, err := ParseMatchingType(y.Type)
		if err != nil {
			return nil, fmt.Errorf("body[%d]: %w", i, err)
		}
		m := BodyMatcher{
			Path:          y.Path,
			Type:          t,
			Value:         y.Value,
			MinOccurrence: y.MinOccurrence,
			MaxOccurrence: y.MaxOccurrence,
		}
		if m.Value == "" && y.Predefined != "" {
			if m.Value, err = Predefined(y.Predefined); err != nil {
				return nil, fmt.Errorf("body[%d]: %w", i, err)
			}
		}
		if t.RegexBased() && m.Value != "" {
			if _, err := NewRegex(m.Value); err != nil {
				return nil, fmt.Errorf("body[%d]: %w", i, err)
			}
		}
		if t.RegexBased() && m.Value == "" {
			m.Value = m.Pattern()
		}
		out = append(out, m)
	}
	return out, nil
}

// testBody maps test side body matchers. A matcher without a path applies to
// the whole body and turns it into a server side pattern or command.
func testBody(body any, in []yamlBodyMatcher) (any, BodyMatchers, error) {
	var pathed []yamlBodyMatcher
	for _, y := range in {
		if y.Path != "" {
			pathed = append(pathed, y)
			continue
		}
		t, err := ParseMatchingType(y.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("matchers: %w", err)
		}
		switch t {
		case MatchRegex:
			pattern := y.Value
			if pattern == "" && y.Predefined != "" {
				if pattern, err = Predefined(y.Predefined); err != nil {
					return nil, nil, fmt.Errorf("matchers: %w", err)
				}
			}
			r, err := NewRegex(pattern)
			if err != nil {
				return nil, nil, fmt.Errorf("matchers: %w", err)
			}
			body = NewValue(body, r)
		case MatchCommand:
			body = NewValue(body, Execution{Command: y.Value})
		default:
			return nil, nil, fmt.Errorf("matchers: %s requires a path", t)
		}
	}
	matchers, err := bodyMatchers(pathed)
	if err != nil {
		return nil, nil, fmt.Errorf("matchers: %w", err)
	}
	return body, matchers, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
