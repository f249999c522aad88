// Package xpaths is the XML counterpart of jsonpaths: it derives XPath
// assertions from an example XML body and evaluates them with etree.
package xpaths

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

// ErrUnsupportedMatcher is returned for matcher types XML bodies cannot express.
var ErrUnsupportedMatcher = errors.New("matcher type not supported for XML bodies")

// Parse parses an XML payload.
func Parse(payload any) (*etree.Document, error) {
	doc := etree.NewDocument()
	var err error
	switch t := payload.(type) {
	case []byte:
		err = doc.ReadFromBytes(t)
	case string:
		err = doc.ReadFromString(t)
	default:
		return nil, fmt.Errorf("unsupported XML payload %T", payload)
	}
	if err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("malformed XML: no root element")
	}
	return doc, nil
}

// LooksLikeXML reports whether s starts like an XML document.
func LooksLikeXML(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return false
	}
	_, err := Parse(s)
	return err == nil
}

// Generate returns an equality assertion for the text of every leaf element
// and for every attribute, in document order.
func Generate(doc *etree.Document) []jsonpaths.Assertion {
	var out []jsonpaths.Assertion
	root := doc.Root()
	if root == nil {
		return nil
	}
	walk(root, "/"+root.Tag, &out)
	return out
}

func walk(el *etree.Element, path string, out *[]jsonpaths.Assertion) {
	for _, attr := range el.Attr {
		if attr.Space == "xmlns" || attr.Key == "xmlns" {
			continue
		}
		*out = append(*out, jsonpaths.Assertion{Path: path + "/@" + attr.FullKey(), Kind: jsonpaths.KindEqual, Value: attr.Value})
	}
	children := el.ChildElements()
	if len(children) == 0 {
		*out = append(*out, jsonpaths.Assertion{Path: path, Kind: jsonpaths.KindEqual, Value: strings.TrimSpace(el.Text())})
		return
	}
	counts := make(map[string]int)
	for _, c := range children {
		counts[c.FullTag()]++
	}
	seen := make(map[string]int)
	for _, c := range children {
		tag := c.FullTag()
		seen[tag]++
		childPath := path + "/" + tag
		if counts[tag] > 1 {
			childPath += "[" + strconv.Itoa(seen[tag]) + "]"
		}
		walk(c, childPath, out)
	}
}

// normalize strips a trailing text() step, which etree does not support.
func normalize(xpath string) string {
	xpath = strings.TrimSpace(xpath)
	return strings.TrimSuffix(xpath, "/text()")
}

// find resolves an element or attribute path. present is false when
// nothing is found.
func find(doc *etree.Document, xpath string) (value string, present bool) {
	xpath = normalize(xpath)
	if i := strings.LastIndex(xpath, "/@"); i >= 0 {
		elem := doc.FindElement(xpath[:i])
		if elem == nil {
			return "", false
		}
		attr := elem.SelectAttr(xpath[i+2:])
		if attr == nil {
			return "", false
		}
		return attr.Value, true
	}
	elem := doc.FindElement(xpath)
	if elem == nil {
		return "", false
	}
	if len(elem.ChildElements()) > 0 {
		return "", true
	}
	return strings.TrimSpace(elem.Text()), true
}

// FromMatchers translates matchers against the example document.
func FromMatchers(matchers contract.BodyMatchers, example *etree.Document) ([]jsonpaths.Assertion, error) {
	eff := matchers.Effective()
	out := make([]jsonpaths.Assertion, 0, len(eff))
	for _, m := range eff {
		switch m.Type {
		case contract.MatchEquality:
			v, ok := "", false
			if example != nil {
				v, ok = find(example, m.Path)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s", jsonpaths.ErrMissingEqualityValue, m.Path)
			}
			out = append(out, jsonpaths.Assertion{Path: m.Path, Kind: jsonpaths.KindEqual, Value: v})
		case contract.MatchRegex, contract.MatchDate, contract.MatchTime, contract.MatchTimestamp:
			r, err := contract.NewRegex(m.Pattern())
			if err != nil {
				return nil, err
			}
			out = append(out, jsonpaths.Assertion{Path: m.Path, Kind: jsonpaths.KindMatches, Value: r})
		case contract.MatchNull:
			out = append(out, jsonpaths.Assertion{Path: m.Path, Kind: jsonpaths.KindNull})
		case contract.MatchCommand:
			out = append(out, jsonpaths.Assertion{Path: m.Path, Kind: jsonpaths.KindCommand, Value: m.Value})
		case contract.MatchType:
			return nil, fmt.Errorf("%w: %s at %s", ErrUnsupportedMatcher, m.Type, m.Path)
		default:
			return nil, fmt.Errorf("unsupported matcher type %s", m.Type)
		}
	}
	return out, nil
}

// Covered drops structural assertions at or below a matcher path.
func Covered(assertions []jsonpaths.Assertion, matcherPaths []string) []jsonpaths.Assertion {
	out := make([]jsonpaths.Assertion, 0, len(assertions))
	for _, a := range assertions {
		covered := false
		for _, p := range matcherPaths {
			p = normalize(p)
			if a.Path == p || strings.HasPrefix(a.Path, p+"/") || strings.HasPrefix(a.Path, p+"[") {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, a)
		}
	}
	return out
}

// Build combines structural and matcher assertions for an example document.
func Build(example *etree.Document, matchers contract.BodyMatchers) ([]jsonpaths.Assertion, error) {
	explicit, err := FromMatchers(matchers, example)
	if err != nil {
		return nil, err
	}
	var structural []jsonpaths.Assertion
	if example != nil {
		structural = Covered(Generate(example), matchers.Paths())
	}
	return append(structural, explicit...), nil
}

// Evaluator checks XPath assertions.
type Evaluator struct {
	Nulls    jsonpaths.NullPolicy
	Commands jsonpaths.CommandFunc
}

// CheckAll evaluates every assertion and returns all failures.
func (e Evaluator) CheckAll(assertions []jsonpaths.Assertion, doc *etree.Document) []jsonpaths.Failure {
	var failures []jsonpaths.Failure
	for _, a := range assertions {
		if reason, ok := e.Check(a, doc); !ok {
			failures = append(failures, jsonpaths.Failure{Assertion: a, Reason: reason})
		}
	}
	return failures
}

// Check evaluates one assertion against doc.
func (e Evaluator) Check(a jsonpaths.Assertion, doc *etree.Document) (string, bool) {
	value, present := find(doc, a.Path)
	switch a.Kind {
	case jsonpaths.KindEqual:
		if !present {
			return "path not found", false
		}
		if want := fmt.Sprint(a.Value); value != want {
			return fmt.Sprintf("expected %q but was %q", want, value), false
		}
		return "", true
	case jsonpaths.KindMatches:
		if !present {
			return "path not found", false
		}
		if re := a.Pattern(); re == nil || !re.Matches(value) {
			return fmt.Sprintf("%q does not match pattern [%v]", value, a.Value), false
		}
		return "", true
	case jsonpaths.KindNull:
		if !present {
			if e.Nulls == jsonpaths.NullOrAbsent {
				return "", true
			}
			return "path not found, expected null", false
		}
		if value != "" {
			return fmt.Sprintf("expected null but was %q", value), false
		}
		return "", true
	case jsonpaths.KindCommand:
		if e.Commands == nil {
			return "", true
		}
		var actual any
		if present {
			actual = value
		}
		if err := e.Commands(fmt.Sprint(a.Value), actual); err != nil {
			return err.Error(), false
		}
		return "", true
	}
	return fmt.Sprintf("%s is not supported for XML bodies", a.Kind), false
}
