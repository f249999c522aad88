package stubs

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/getmockd/contractd/internal/convert"
	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/internal/render"
	"github.com/getmockd/contractd/internal/xpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

// WireMock mapping types

// WireMockMapping represents a WireMock stub mapping.
type WireMockMapping struct {
	ID       string           `json:"id,omitempty"`
	UUID     string           `json:"uuid,omitempty"`
	Name     string           `json:"name,omitempty"`
	Priority int              `json:"priority,omitempty"`
	Request  WireMockRequest  `json:"request"`
	Response WireMockResponse `json:"response"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// WireMockRequest represents a WireMock request pattern.
type WireMockRequest struct {
	Method          string                     `json:"method,omitempty"`
	URL             string                     `json:"url,omitempty"`
	URLPath         string                     `json:"urlPath,omitempty"`
	URLPattern      string                     `json:"urlPattern,omitempty"`
	URLPathPattern  string                     `json:"urlPathPattern,omitempty"`
	Headers         map[string]WireMockMatcher `json:"headers,omitempty"`
	QueryParameters map[string]WireMockMatcher `json:"queryParameters,omitempty"`
	Cookies         map[string]WireMockMatcher `json:"cookies,omitempty"`
	BodyPatterns    []WireMockBodyPattern      `json:"bodyPatterns,omitempty"`
}

// WireMockMatcher represents a WireMock value matcher.
type WireMockMatcher struct {
	EqualTo    string            `json:"equalTo,omitempty"`
	Matches    string            `json:"matches,omitempty"`
	HasExactly []WireMockMatcher `json:"hasExactly,omitempty"`
}

// WireMockXPath is the object form of matchesXPath.
type WireMockXPath struct {
	Expression string `json:"expression"`
	EqualTo    string `json:"equalTo,omitempty"`
	Matches    string `json:"matches,omitempty"`
}

// WireMockBodyPattern represents a body pattern matcher.
type WireMockBodyPattern struct {
	EqualTo         string          `json:"equalTo,omitempty"`
	Matches         string          `json:"matches,omitempty"`
	BinaryEqualTo   string          `json:"binaryEqualTo,omitempty"`
	EqualToJSON     json.RawMessage `json:"equalToJson,omitempty"`
	MatchesJSONPath string          `json:"matchesJsonPath,omitempty"`
	MatchesXPath    *WireMockXPath  `json:"matchesXPath,omitempty"`
}

// WireMockResponse represents a WireMock response definition.
type WireMockResponse struct {
	Status           int               `json:"status"`
	Headers          map[string]string `json:"headers,omitempty"`
	Body             string            `json:"body,omitempty"`
	Base64Body       string            `json:"base64Body,omitempty"`
	JSONBody         any               `json:"jsonBody,omitempty"`
	FixedDelayMillis int               `json:"fixedDelayMilliseconds,omitempty"`
}

// ErrUnsupportedContract is returned for contracts a generator cannot express.
var ErrUnsupportedContract = errors.New("contract cannot be converted")

// WireMock generates WireMock JSON mappings from HTTP contracts.
type WireMock struct{}

// Name returns the generator name.
func (WireMock) Name() string { return "wiremock" }

// Extension returns the mapping file extension.
func (WireMock) Extension() string { return ".json" }

// CanHandle reports whether c is an HTTP contract.
func (WireMock) CanHandle(c *contract.Contract) bool {
	return c != nil && c.Request != nil && c.Response != nil && !c.Ignored
}

// Generate returns the indented mapping JSON for c.
func (w WireMock) Generate(c *contract.Contract) ([]byte, error) {
	m, err := w.Mapping(c)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mapping: %w", err)
	}
	return append(data, '\n'), nil
}

// Mapping builds the mapping for c. The id is derived from the contract's
// source and name, so regenerating stubs keeps ids stable.
func (w WireMock) Mapping(c *contract.Contract) (*WireMockMapping, error) {
	if !w.CanHandle(c) {
		return nil, fmt.Errorf("%w: %s is not an HTTP contract", ErrUnsupportedContract, c)
	}
	req, err := wireMockRequest(c.Request)
	if err != nil {
		return nil, fmt.Errorf("contract %s: request: %w", c, err)
	}
	resp, err := wireMockResponse(c.Response)
	if err != nil {
		return nil, fmt.Errorf("contract %s: response: %w", c, err)
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.Source+"#"+c.Name)).String()
	return &WireMockMapping{
		ID:       id,
		UUID:     id,
		Name:     c.Name,
		Priority: c.Priority,
		Request:  *req,
		Response: *resp,
	}, nil
}

func wireMockRequest(r *contract.Request) (*WireMockRequest, error) {
	out := &WireMockRequest{}

	switch m := r.Method.For(contract.Stub).(type) {
	case *contract.Regex:
		out.Method = "ANY"
	case nil:
		out.Method = "ANY"
	default:
		out.Method = fmt.Sprint(m)
	}

	switch {
	case r.URLPath != nil:
		switch u := r.URLPath.For(contract.Stub).(type) {
		case *contract.Regex:
			out.URLPathPattern = u.Pattern()
		default:
			out.URLPath = fmt.Sprint(u)
		}
	case r.URL != nil:
		switch u := r.URL.For(contract.Stub).(type) {
		case *contract.Regex:
			out.URLPattern = u.Pattern()
		default:
			if len(r.QueryParameters) > 0 {
				out.URLPath = fmt.Sprint(u)
			} else {
				out.URL = fmt.Sprint(u)
			}
		}
	}

	var err error
	if out.Headers, err = paramMatchers(r.Headers); err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	if out.QueryParameters, err = paramMatchers(r.QueryParameters); err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	if out.Cookies, err = paramMatchers(r.Cookies); err != nil {
		return nil, fmt.Errorf("cookies: %w", err)
	}
	if out.BodyPatterns, err = bodyPatterns(r); err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return out, nil
}

// paramMatchers converts stub-side params. Repeated names become a
// hasExactly matcher.
func paramMatchers(params contract.Params) (map[string]WireMockMatcher, error) {
	if len(params) == 0 {
		return nil, nil
	}
	grouped := make(map[string][]WireMockMatcher)
	var order []string
	for _, p := range params {
		m, err := valueMatcher(p.Value.For(contract.Stub))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		if _, ok := grouped[p.Name]; !ok {
			order = append(order, p.Name)
		}
		grouped[p.Name] = append(grouped[p.Name], m)
	}
	out := make(map[string]WireMockMatcher, len(grouped))
	for _, name := range order {
		list := grouped[name]
		if len(list) == 1 {
			out[name] = list[0]
			continue
		}
		out[name] = WireMockMatcher{HasExactly: list}
	}
	return out, nil
}

func valueMatcher(v any) (WireMockMatcher, error) {
	switch t := v.(type) {
	case *contract.Regex:
		return WireMockMatcher{Matches: t.Pattern()}, nil
	case contract.Execution:
		return WireMockMatcher{}, fmt.Errorf("%w: command %q on the stub side", ErrUnsupportedContract, t.Command)
	case nil:
		return WireMockMatcher{}, nil
	}
	return WireMockMatcher{EqualTo: matching.HeaderString(v, false)}, nil
}

func bodyPatterns(r *contract.Request) ([]WireMockBodyPattern, error) {
	if r.Body == nil {
		return nil, nil
	}
	projected, err := convert.Project(r.Body, contract.Stub)
	if err != nil {
		return nil, err
	}

	switch t := projected.(type) {
	case *contract.Regex:
		return []WireMockBodyPattern{{Matches: t.Pattern()}}, nil
	case []byte:
		return []WireMockBodyPattern{{BinaryEqualTo: base64.StdEncoding.EncodeToString(t)}}, nil
	}

	switch matching.ResolveContentType(r.Headers, contract.Stub, nil, projected) {
	case matching.ContentJSON:
		return jsonBodyPatterns(projected, r.BodyMatchers)
	case matching.ContentXML:
		return xmlBodyPatterns(projected, r.BodyMatchers)
	}
	if s, ok := projected.(string); ok {
		return []WireMockBodyPattern{{EqualTo: s}}, nil
	}
	return []WireMockBodyPattern{{EqualTo: fmt.Sprint(projected)}}, nil
}

func jsonBodyPatterns(body any, matchers contract.BodyMatchers) ([]WireMockBodyPattern, error) {
	doc := body
	switch body.(type) {
	case map[string]any, []any:
	default:
		parsed, err := jsonpaths.ParseDocument(body)
		if err != nil {
			return []WireMockBodyPattern{{EqualTo: fmt.Sprint(body)}}, nil
		}
		doc = parsed
	}

	structural, err := jsonpaths.Covered(jsonpaths.Generate(doc, jsonpaths.Options{}), matchers.Paths())
	if err != nil {
		return nil, err
	}
	explicit, err := jsonpaths.FromMatchers(matchers, doc)
	if err != nil {
		return nil, err
	}

	var out []WireMockBodyPattern
	for _, a := range structural {
		if a.Kind == jsonpaths.KindSize || a.Kind == jsonpaths.KindCommand {
			continue
		}
		filter, err := render.FilterPath(a)
		if err != nil {
			return nil, err
		}
		out = append(out, WireMockBodyPattern{MatchesJSONPath: filter})
	}
	if len(out) == 0 && len(explicit) == 0 {
		concrete, err := convert.Concrete(doc, contract.Stub)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(concrete)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		return []WireMockBodyPattern{{EqualToJSON: data}}, nil
	}
	for _, a := range explicit {
		filter, err := render.FilterPath(a)
		if err != nil {
			return nil, err
		}
		out = append(out, WireMockBodyPattern{MatchesJSONPath: filter})
	}
	return out, nil
}

func xmlBodyPatterns(body any, matchers contract.BodyMatchers) ([]WireMockBodyPattern, error) {
	s := fmt.Sprint(body)
	example, err := xpaths.Parse(s)
	if err != nil {
		return []WireMockBodyPattern{{EqualTo: s}}, nil
	}
	for _, m := range matchers {
		switch m.Type {
		case contract.MatchNull, contract.MatchCommand, contract.MatchType:
			return nil, fmt.Errorf("%w: %s matcher at %s on an XML request body", ErrUnsupportedContract, m.Type, m.Path)
		}
	}
	assertions, err := xpaths.Build(example, matchers)
	if err != nil {
		return nil, err
	}
	out := make([]WireMockBodyPattern, 0, len(assertions))
	for _, a := range assertions {
		x := &WireMockXPath{Expression: a.Path}
		switch a.Kind {
		case jsonpaths.KindEqual:
			x.EqualTo = fmt.Sprint(a.Value)
		case jsonpaths.KindMatches:
			if r := a.Pattern(); r != nil {
				x.Matches = r.Pattern()
			}
		}
		out = append(out, WireMockBodyPattern{MatchesXPath: x})
	}
	return out, nil
}

func wireMockResponse(r *contract.Response) (*WireMockResponse, error) {
	out := &WireMockResponse{Status: r.Status, FixedDelayMillis: r.FixedDelayMilliseconds}

	if len(r.Headers) > 0 {
		out.Headers = make(map[string]string, len(r.Headers))
		for _, p := range r.Headers {
			v, err := convert.Concrete(p.Value, contract.Stub)
			if err != nil {
				return nil, fmt.Errorf("header %s: %w", p.Name, err)
			}
			out.Headers[p.Name] = matching.HeaderString(v, false)
		}
	}

	if r.Body == nil {
		return out, nil
	}
	body, err := convert.Concrete(r.Body, contract.Stub)
	if err != nil {
		return nil, err
	}
	switch t := body.(type) {
	case []byte:
		out.Base64Body = base64.StdEncoding.EncodeToString(t)
	case string:
		out.Body = t
	case map[string]any, []any:
		out.JSONBody = t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		out.Body = string(data)
	}
	return out, nil
}
