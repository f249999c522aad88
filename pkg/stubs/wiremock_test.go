package stubs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/pkg/contract"
)

func ptr[T any](v T) *T { return &v }

func bookContract() *contract.Contract {
	return &contract.Contract{
		Name:     "get book",
		Source:   "contracts/books.yml",
		Priority: 3,
		Request: &contract.Request{
			Method: contract.Single("GET"),
			URL:    ptr(contract.Single("/books/1")),
			Headers: contract.Params{
				{Name: "Accept", Value: contract.NewValue(contract.MustRegex("application/.*"), "application/json")},
			},
		},
		Response: &contract.Response{
			Status:  200,
			Headers: contract.Params{{Name: "Content-Type", Value: contract.Single("application/json")}},
			Body: map[string]any{
				"title": "Dune",
				"id":    contract.NewValue(1, contract.MustRegex("[0-9]+")),
			},
		},
	}
}

func TestWireMock_Mapping(t *testing.T) {
	m, err := WireMock{}.Mapping(bookContract())
	require.NoError(t, err)

	assert.Equal(t, "get book", m.Name)
	assert.Equal(t, 3, m.Priority)
	assert.Equal(t, "GET", m.Request.Method)
	assert.Equal(t, "/books/1", m.Request.URL)
	assert.Equal(t, WireMockMatcher{Matches: "application/.*"}, m.Request.Headers["Accept"])
	assert.Empty(t, m.Request.BodyPatterns)

	assert.Equal(t, 200, m.Response.Status)
	assert.Equal(t, "application/json", m.Response.Headers["Content-Type"])
	assert.Equal(t, map[string]any{"title": "Dune", "id": 1}, m.Response.JSONBody)

	again, err := WireMock{}.Mapping(bookContract())
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID, "ids are stable across runs")
	assert.Equal(t, m.ID, m.UUID)
}

func TestWireMock_Request(t *testing.T) {
	tests := []struct {
		name  string
		req   *contract.Request
		check func(t *testing.T, r WireMockRequest)
	}{
		{
			name: "regex method and url path pattern",
			req: &contract.Request{
				Method:  contract.NewValue(contract.MustRegex("GET|HEAD"), "GET"),
				URLPath: ptr(contract.NewValue(contract.MustRegex("/books/[0-9]+"), "/books/1")),
			},
			check: func(t *testing.T, r WireMockRequest) {
				assert.Equal(t, "ANY", r.Method)
				assert.Equal(t, "/books/[0-9]+", r.URLPathPattern)
				assert.Empty(t, r.URL)
			},
		},
		{
			name: "url with query parameters becomes url path",
			req: &contract.Request{
				Method: contract.Single("GET"),
				URL:    ptr(contract.Single("/books")),
				QueryParameters: contract.Params{
					{Name: "tag", Value: contract.Single("sf")},
					{Name: "tag", Value: contract.Single("classic")},
					{Name: "limit", Value: contract.NewValue(contract.MustRegex("[0-9]+"), "10")},
				},
			},
			check: func(t *testing.T, r WireMockRequest) {
				assert.Equal(t, "/books", r.URLPath)
				assert.Empty(t, r.URL)
				assert.Equal(t, WireMockMatcher{HasExactly: []WireMockMatcher{{EqualTo: "sf"}, {EqualTo: "classic"}}}, r.QueryParameters["tag"])
				assert.Equal(t, WireMockMatcher{Matches: "[0-9]+"}, r.QueryParameters["limit"])
			},
		},
		{
			name: "json body becomes filter paths",
			req: &contract.Request{
				Method:  contract.Single("POST"),
				URL:     ptr(contract.Single("/orders")),
				Headers: contract.Params{{Name: "Content-Type", Value: contract.Single("application/json")}},
				Body: map[string]any{
					"id":     1,
					"status": contract.NewValue(contract.MustRegex("NEW|OPEN"), "NEW"),
				},
			},
			check: func(t *testing.T, r WireMockRequest) {
				var filters []string
				for _, p := range r.BodyPatterns {
					filters = append(filters, p.MatchesJSONPath)
				}
				assert.ElementsMatch(t, []string{
					`$[?(@.id == 1)]`,
					`$[?(@.status =~ /NEW|OPEN/)]`,
				}, filters)
			},
		},
		{
			name: "json body with matcher on its only field",
			req: &contract.Request{
				Method: contract.Single("POST"),
				URL:    ptr(contract.Single("/orders")),
				Body:   map[string]any{"id": 1},
				BodyMatchers: contract.BodyMatchers{
					{Path: "$.id", Type: contract.MatchRegex, Value: "[0-9]+"},
				},
			},
			check: func(t *testing.T, r WireMockRequest) {
				require.Len(t, r.BodyPatterns, 1)
				assert.Equal(t, `$[?(@.id =~ /[0-9]+/)]`, r.BodyPatterns[0].MatchesJSONPath)
			},
		},
		{
			name: "empty json object is compared as a whole",
			req: &contract.Request{
				Method: contract.Single("POST"),
				URL:    ptr(contract.Single("/ping")),
				Body:   map[string]any{},
			},
			check: func(t *testing.T, r WireMockRequest) {
				require.Len(t, r.BodyPatterns, 1)
				assert.JSONEq(t, `{}`, string(r.BodyPatterns[0].EqualToJSON))
			},
		},
		{
			name: "whole body regex",
			req: &contract.Request{
				Method: contract.Single("POST"),
				URL:    ptr(contract.Single("/echo")),
				Body:   contract.NewValue(contract.MustRegex("hello.*"), "hello world"),
			},
			check: func(t *testing.T, r WireMockRequest) {
				require.Len(t, r.BodyPatterns, 1)
				assert.Equal(t, "hello.*", r.BodyPatterns[0].Matches)
			},
		},
		{
			name: "plain text body",
			req: &contract.Request{
				Method:  contract.Single("POST"),
				URL:     ptr(contract.Single("/echo")),
				Headers: contract.Params{{Name: "Content-Type", Value: contract.Single("text/plain")}},
				Body:    "hello",
			},
			check: func(t *testing.T, r WireMockRequest) {
				require.Len(t, r.BodyPatterns, 1)
				assert.Equal(t, "hello", r.BodyPatterns[0].EqualTo)
			},
		},
		{
			name: "xml body becomes xpath patterns",
			req: &contract.Request{
				Method:  contract.Single("POST"),
				URL:     ptr(contract.Single("/books")),
				Headers: contract.Params{{Name: "Content-Type", Value: contract.Single("application/xml")}},
				Body:    `<book><title>Dune</title></book>`,
			},
			check: func(t *testing.T, r WireMockRequest) {
				require.NotEmpty(t, r.BodyPatterns)
				x := r.BodyPatterns[0].MatchesXPath
				require.NotNil(t, x)
				assert.Contains(t, x.Expression, "title")
				assert.Equal(t, "Dune", x.EqualTo)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &contract.Contract{Name: tt.name, Request: tt.req, Response: &contract.Response{Status: 200}}
			m, err := WireMock{}.Mapping(c)
			require.NoError(t, err)
			tt.check(t, m.Request)
		})
	}
}

func TestWireMock_Unsupported(t *testing.T) {
	_, err := WireMock{}.Mapping(&contract.Contract{Name: "msg", Input: &contract.Input{MessageFrom: "in"}})
	assert.ErrorIs(t, err, ErrUnsupportedContract)

	c := bookContract()
	c.Request.Headers = contract.Params{{Name: "X-Check", Value: contract.Single(contract.Execution{Command: "check($it)"})}}
	_, err = WireMock{}.Mapping(c)
	assert.ErrorIs(t, err, ErrUnsupportedContract)

	c = bookContract()
	c.Ignored = true
	assert.False(t, WireMock{}.CanHandle(c))
}

func TestWireMock_ResponseBodies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	tests := []struct {
		name  string
		body  any
		check func(t *testing.T, r WireMockResponse)
	}{
		{
			name: "string",
			body: "pong",
			check: func(t *testing.T, r WireMockResponse) {
				assert.Equal(t, "pong", r.Body)
			},
		},
		{
			name: "file as bytes",
			body: contract.FromFile{Path: path, Bytes: true},
			check: func(t *testing.T, r WireMockResponse) {
				assert.Equal(t, "iVBORw==", r.Base64Body)
			},
		},
		{
			name: "regex produces an example",
			body: map[string]any{"code": contract.NewValue("AB12", contract.MustRegex("[A-Z]{2}[0-9]{2}"))},
			check: func(t *testing.T, r WireMockResponse) {
				assert.Equal(t, map[string]any{"code": "AB12"}, r.JSONBody)
			},
		},
		{
			name: "number",
			body: 42,
			check: func(t *testing.T, r WireMockResponse) {
				assert.Equal(t, "42", r.Body)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bookContract()
			c.Response.Body = tt.body
			m, err := WireMock{}.Mapping(c)
			require.NoError(t, err)
			tt.check(t, m.Response)
		})
	}
}

func TestWireMock_Generate(t *testing.T) {
	data, err := WireMock{}.Generate(bookContract())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "get book", decoded["name"])
	assert.Contains(t, decoded, "request")
	assert.Contains(t, decoded, "response")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"wiremock"}, r.Names())

	g, err := r.Get("wiremock")
	require.NoError(t, err)
	assert.Equal(t, ".json", g.Extension())

	_, err = r.Get("pact")
	assert.ErrorIs(t, err, ErrNoGenerator)

	empty := NewRegistry()
	assert.Empty(t, empty.Names())
	empty.Register(nil)
	assert.Empty(t, empty.Names())
}
