package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

func intPtr(i int) *int { return &i }

func TestChain(t *testing.T) {
	tests := []struct {
		name string
		a    jsonpaths.Assertion
		want string
	}{
		{
			name: "nested string",
			a:    jsonpaths.Assertion{Path: "$['a']['b']", Kind: jsonpaths.KindEqual, Value: "x"},
			want: `assertThatJson(parsedJson).field("['a']").field("['b']").isEqualTo("x")`,
		},
		{
			name: "number is not quoted",
			a:    jsonpaths.Assertion{Path: "$['n']", Kind: jsonpaths.KindEqual, Value: 1.5},
			want: `assertThatJson(parsedJson).field("['n']").isEqualTo(1.5)`,
		},
		{
			name: "wildcard becomes array",
			a:    jsonpaths.Assertion{Path: "$['items'][*]['id']", Kind: jsonpaths.KindNull},
			want: `assertThatJson(parsedJson).array("['items']").field("['id']").isNull()`,
		},
		{
			name: "contains on array",
			a:    jsonpaths.Assertion{Path: "$['tags']", Kind: jsonpaths.KindContains, Value: "a"},
			want: `assertThatJson(parsedJson).array("['tags']").contains("a").value()`,
		},
		{
			name: "contains on root array",
			a:    jsonpaths.Assertion{Path: "$", Kind: jsonpaths.KindContains, Value: 3},
			want: `assertThatJson(parsedJson).array().contains(3).value()`,
		},
		{
			name: "size",
			a:    jsonpaths.Assertion{Path: "$['tags']", Kind: jsonpaths.KindSize, Value: 2},
			want: `assertThatJson(parsedJson).array("['tags']").hasSize(2)`,
		},
		{
			name: "index",
			a:    jsonpaths.Assertion{Path: "$['tags'][1]", Kind: jsonpaths.KindEqual, Value: true},
			want: `assertThatJson(parsedJson).field("['tags']").elementWithIndex(1).isEqualTo(true)`,
		},
		{
			name: "regex is escaped once",
			a:    jsonpaths.Assertion{Path: "$['d']", Kind: jsonpaths.KindMatches, Value: contract.MustRegex(`\d+`)},
			want: `assertThatJson(parsedJson).field("['d']").matches("\\d+")`,
		},
		{
			name: "command",
			a:    jsonpaths.Assertion{Path: "$['d']", Kind: jsonpaths.KindCommand, Value: "assertIt($it)"},
			want: `assertIt(parsedJson.read("$['d']"))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chain(tt.a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChain_TypeCheck(t *testing.T) {
	got, err := Chain(jsonpaths.Assertion{Path: "$.list", Kind: jsonpaths.KindType, Value: []any{1}, Min: intPtr(1), Max: intPtr(3)})
	require.NoError(t, err)
	assert.Contains(t, got, "isInstanceOf(java.util.List.class)")
	assert.Contains(t, got, "hasSizeGreaterThanOrEqualTo(1)")
	assert.Contains(t, got, "hasSizeLessThanOrEqualTo(3)")
}

func TestFilterPath(t *testing.T) {
	tests := []struct {
		name string
		a    jsonpaths.Assertion
		want string
	}{
		{
			name: "string equality",
			a:    jsonpaths.Assertion{Path: "$.a", Kind: jsonpaths.KindEqual, Value: "it's"},
			want: `$[?(@.a == 'it\'s')]`,
		},
		{
			name: "number equality",
			a:    jsonpaths.Assertion{Path: "$.a.b", Kind: jsonpaths.KindEqual, Value: 5},
			want: `$.a[?(@.b == 5)]`,
		},
		{
			name: "regex",
			a:    jsonpaths.Assertion{Path: "$.url", Kind: jsonpaths.KindMatches, Value: contract.MustRegex(`https?://.+`)},
			want: `$[?(@.url =~ /https?:\/\/.+/)]`,
		},
		{
			name: "null",
			a:    jsonpaths.Assertion{Path: "$.a", Kind: jsonpaths.KindNull},
			want: `$[?(@.a == null)]`,
		},
		{
			name: "size",
			a:    jsonpaths.Assertion{Path: "$.items", Kind: jsonpaths.KindSize, Value: 2},
			want: `$[?(@.items.size() == 2)]`,
		},
		{
			name: "type bounds",
			a:    jsonpaths.Assertion{Path: "$.items", Kind: jsonpaths.KindType, Min: intPtr(1), Max: intPtr(4)},
			want: `$[?(@.items.size() >= 1 && @.items.size() <= 4)]`,
		},
		{
			name: "type without bounds is presence",
			a:    jsonpaths.Assertion{Path: "$.items", Kind: jsonpaths.KindType},
			want: `$.items`,
		},
		{
			name: "element of array",
			a:    jsonpaths.Assertion{Path: "$.tags[*]", Kind: jsonpaths.KindMatches, Value: contract.MustRegex(`[a-z]+`)},
			want: `$.tags[?(@ =~ /[a-z]+/)]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterPath(tt.a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FilterPath(jsonpaths.Assertion{Path: "$.a", Kind: jsonpaths.KindCommand, Value: "x($it)"})
	assert.ErrorIs(t, err, ErrNotRepresentable)
}

func TestEscapeJava_RoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		`she said "hi"`,
		`already \"escaped\"`,
		"tab\tnew\nline\r",
		`back\slash`,
		"zażółć \u0001",
		"",
	}
	for _, in := range inputs {
		escaped := EscapeJava(in)
		out, err := UnescapeJava(escaped)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}

	assert.Equal(t, `already \\\"escaped\\\"`, EscapeJava(`already \"escaped\"`))

	_, err := UnescapeJava(`bad\`)
	assert.Error(t, err)
	_, err = UnescapeJava(`\u12`)
	assert.Error(t, err)
}
