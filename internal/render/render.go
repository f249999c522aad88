// Package render turns assertions into text: JsonAssert style method chains
// used as test-source hints, and JSONPath filter expressions understood by
// WireMock's matchesJsonPath.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/pkg/contract"
)

// ErrNotRepresentable is returned for assertions a filter path cannot express.
var ErrNotRepresentable = errors.New("assertion cannot be expressed as a JSONPath filter")

// Chain renders a as a JsonAssert method chain.
func Chain(a jsonpaths.Assertion) (string, error) {
	frags, err := jsonpaths.Fragments(a.Path)
	if err != nil {
		return "", err
	}

	if a.Kind == jsonpaths.KindCommand {
		read := `parsedJson.read("` + EscapeJava(a.Path) + `")`
		return contract.Execution{Command: fmt.Sprint(a.Value)}.Insert(read), nil
	}
	if a.Kind == jsonpaths.KindType {
		return typeCheck(a), nil
	}

	var b strings.Builder
	b.WriteString("assertThatJson(parsedJson)")
	arrayTerminal := a.Kind == jsonpaths.KindContains || a.Kind == jsonpaths.KindSize
	for i := 0; i < len(frags); i++ {
		last := i == len(frags)-1
		switch f := frags[i].(type) {
		case jp.Child:
			quoted := `"['` + EscapeJava(string(f)) + `']"`
			_, nextIsWildcard := nextFrag(frags, i).(jp.Wildcard)
			switch {
			case nextIsWildcard:
				b.WriteString(".array(" + quoted + ")")
				i++
			case last && arrayTerminal:
				b.WriteString(".array(" + quoted + ")")
			default:
				b.WriteString(".field(" + quoted + ")")
			}
		case jp.Nth:
			b.WriteString(".elementWithIndex(" + strconv.Itoa(int(f)) + ")")
		case jp.Wildcard:
			b.WriteString(".array()")
		default:
			b.WriteString(`.field("` + EscapeJava(jp.Expr{f}.String()) + `")`)
		}
	}
	if len(frags) == 0 && arrayTerminal {
		b.WriteString(".array()")
	}

	switch a.Kind {
	case jsonpaths.KindEqual:
		b.WriteString(".isEqualTo(" + javaLiteral(a.Value) + ")")
	case jsonpaths.KindMatches:
		b.WriteString(`.matches("` + EscapeJava(patternOf(a)) + `")`)
	case jsonpaths.KindNull:
		b.WriteString(".isNull()")
	case jsonpaths.KindEmpty:
		b.WriteString(".isEmpty()")
	case jsonpaths.KindSize:
		b.WriteString(".hasSize(" + fmt.Sprint(a.Value) + ")")
	case jsonpaths.KindContains:
		b.WriteString(".contains(" + javaLiteral(a.Value) + ").value()")
	default:
		return "", fmt.Errorf("unsupported assertion kind %s", a.Kind)
	}
	return b.String(), nil
}

func typeCheck(a jsonpaths.Assertion) string {
	read := `parsedJson.read("` + EscapeJava(a.Path) + `")`
	var b strings.Builder
	b.WriteString("assertThat((Object) " + read + ")")
	switch a.Value.(type) {
	case []any:
		b.WriteString(".isInstanceOf(java.util.List.class)")
	case map[string]any:
		b.WriteString(".isInstanceOf(java.util.Map.class)")
	case string:
		b.WriteString(".isInstanceOf(java.lang.String.class)")
	case bool:
		b.WriteString(".isInstanceOf(java.lang.Boolean.class)")
	case nil:
		b.WriteString(".isNotNull()")
	default:
		b.WriteString(".isInstanceOf(java.lang.Number.class)")
	}
	if a.Min != nil || a.Max != nil {
		b.WriteString(";\nassertThat((java.lang.Iterable) " + read + ")")
		if a.Min != nil {
			b.WriteString(".hasSizeGreaterThanOrEqualTo(" + strconv.Itoa(*a.Min) + ")")
		}
		if a.Max != nil {
			b.WriteString(".hasSizeLessThanOrEqualTo(" + strconv.Itoa(*a.Max) + ")")
		}
	}
	return b.String()
}

func nextFrag(frags []jp.Frag, i int) jp.Frag {
	if i+1 < len(frags) {
		return frags[i+1]
	}
	return nil
}

func patternOf(a jsonpaths.Assertion) string {
	if r := a.Pattern(); r != nil {
		return r.Pattern()
	}
	return fmt.Sprint(a.Value)
}

func javaLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return `"` + EscapeJava(t) + `"`
	case []byte:
		return `"` + EscapeJava(string(t)) + `"`
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	}
	return `"` + EscapeJava(fmt.Sprint(v)) + `"`
}

// FilterPath renders a as a JSONPath that selects something only when the
// assertion holds.
func FilterPath(a jsonpaths.Assertion) (string, error) {
	parentExpr, last, err := jsonpaths.SplitLast(a.Path)
	if err != nil {
		return "", err
	}
	parent := parentExpr.String()
	if parent == "" {
		parent = "$"
	}

	// The operand inside the filter: @ for array elements, @.field for keys.
	operand := "@"
	arrayPath := a.Path
	switch f := last.(type) {
	case nil:
		parent = "$"
	case jp.Child:
		operand = "@" + fieldRef(string(f))
	case jp.Nth, jp.Wildcard:
		arrayPath = parent
	default:
		return "", fmt.Errorf("%w: unsupported path %s", ErrNotRepresentable, a.Path)
	}

	switch a.Kind {
	case jsonpaths.KindEqual:
		return fmt.Sprintf("%s[?(%s == %s)]", parent, operand, filterLiteral(a.Value)), nil
	case jsonpaths.KindMatches:
		return fmt.Sprintf("%s[?(%s =~ /%s/)]", parent, operand, regexLiteral(patternOf(a))), nil
	case jsonpaths.KindNull:
		return fmt.Sprintf("%s[?(%s == null)]", parent, operand), nil
	case jsonpaths.KindContains:
		x, err := jsonpaths.Parse(arrayPath)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[?(@ == %s)]", x.String(), filterLiteral(a.Value)), nil
	case jsonpaths.KindSize:
		return fmt.Sprintf("%s[?(%s.size() == %v)]", parent, operand, a.Value), nil
	case jsonpaths.KindEmpty:
		return fmt.Sprintf("%s[?(%s.size() == 0)]", parent, operand), nil
	case jsonpaths.KindType:
		var conds []string
		if a.Min != nil {
			conds = append(conds, fmt.Sprintf("%s.size() >= %d", operand, *a.Min))
		}
		if a.Max != nil {
			conds = append(conds, fmt.Sprintf("%s.size() <= %d", operand, *a.Max))
		}
		if len(conds) == 0 {
			x, err := jsonpaths.Parse(a.Path)
			if err != nil {
				return "", err
			}
			return x.String(), nil
		}
		return fmt.Sprintf("%s[?(%s)]", parent, strings.Join(conds, " && ")), nil
	}
	return "", fmt.Errorf("%w: %s at %s", ErrNotRepresentable, a.Kind, a.Path)
}

func fieldRef(key string) string {
	simple := key != ""
	for i, r := range key {
		if !(r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')) {
			simple = false
			break
		}
	}
	if simple {
		return "." + key
	}
	return "['" + strings.ReplaceAll(strings.ReplaceAll(key, `\`, `\\`), `'`, `\'`) + "']"
}

func filterLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(strings.ReplaceAll(t, `\`, `\\`), `'`, `\'`) + "'"
	case []byte:
		return filterLiteral(string(t))
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return fmt.Sprint(t)
	}
	return filterLiteral(fmt.Sprint(v))
}

func regexLiteral(pattern string) string {
	return strings.ReplaceAll(pattern, "/", `\/`)
}
