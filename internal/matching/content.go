package matching

import (
	"reflect"
	"strings"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/xpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

// ContentType classifies a body for choosing a body matching strategy.
type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentJSON
	ContentXML
	ContentText
	ContentBinary
)

func (c ContentType) String() string {
	switch c {
	case ContentJSON:
		return "json"
	case ContentXML:
		return "xml"
	case ContentText:
		return "text"
	case ContentBinary:
		return "binary"
	}
	return "unknown"
}

// ClassifyMIME maps a media type (or a pattern for one) to a ContentType.
func ClassifyMIME(mime string) ContentType {
	mime = strings.ToLower(mime)
	switch {
	case mime == "":
		return ContentUnknown
	case strings.Contains(mime, "json"):
		return ContentJSON
	case strings.Contains(mime, "xml"):
		return ContentXML
	case strings.HasPrefix(mime, "text/"):
		return ContentText
	case strings.Contains(mime, "octet-stream"):
		return ContentBinary
	}
	return ContentUnknown
}

// ResolveContentType classifies a body. The content type declared by the
// contract wins, then the candidate's content type header, then the shape
// of the projected contract body.
func ResolveContentType(declared contract.Params, side contract.Side, actual map[string]any, body any) ContentType {
	if ct := ClassifyMIME(declared.ContentType(side)); ct != ContentUnknown {
		return ct
	}
	for _, name := range []string{"Content-Type", "contentType"} {
		if v, ok := lookupHeader(actual, name); ok {
			if ct := ClassifyMIME(HeaderString(v, true)); ct != ContentUnknown {
				return ct
			}
		}
	}
	return Sniff(body)
}

// Sniff classifies a body by its Go shape and, for strings, by its text.
func Sniff(body any) ContentType {
	switch t := body.(type) {
	case nil:
		return ContentUnknown
	case map[string]any, []any:
		return ContentJSON
	case []byte:
		return ContentBinary
	case string:
		switch {
		case jsonpaths.LooksLikeJSON(t):
			return ContentJSON
		case xpaths.LooksLikeXML(t):
			return ContentXML
		}
		return ContentText
	}
	switch reflect.ValueOf(body).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return ContentJSON
	}
	return ContentText
}
