package convert

import (
	"regexp/syntax"
	"strings"
	"unicode"

	"github.com/getmockd/contractd/pkg/contract"
)

// preferred runes tried, in order, when a character class has to be
// represented by a single example character.
var preferred = []rune{'a', 'A', '1', '0', ' ', '_', '-', '.', ':', '/'}

// Example returns the regex's explicit example or a deterministic value
// generated from its pattern. When generation fails to produce a matching
// value the pattern itself is returned.
func Example(r *contract.Regex) any {
	if ex, ok := r.Example(); ok {
		return ex
	}
	parsed, err := syntax.Parse(r.Pattern(), syntax.Perl)
	if err != nil {
		return r.Pattern()
	}
	var b strings.Builder
	generate(parsed.Simplify(), &b)
	s := b.String()
	if !r.Matches(s) {
		return r.Pattern()
	}
	return r.Convert(s)
}

func generate(re *syntax.Regexp, b *strings.Builder) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			b.WriteRune(r)
		}
	case syntax.OpCharClass:
		b.WriteRune(pickRune(re.Rune))
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteRune('x')
	case syntax.OpCapture:
		generate(re.Sub[0], b)
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		generate(re.Sub[0], b)
	case syntax.OpRepeat:
		n := re.Min
		if n == 0 && re.Max != 0 {
			n = 1
		}
		for range n {
			generate(re.Sub[0], b)
		}
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			generate(sub, b)
		}
	case syntax.OpAlternate:
		generate(re.Sub[0], b)
	}
}

// pickRune chooses a readable rune from a class given as [lo, hi] pairs.
func pickRune(ranges []rune) rune {
	if len(ranges) < 2 {
		return 'x'
	}
	for _, r := range preferred {
		for i := 0; i+1 < len(ranges); i += 2 {
			if r >= ranges[i] && r <= ranges[i+1] {
				return r
			}
		}
	}
	for i := 0; i+1 < len(ranges); i += 2 {
		for r := ranges[i]; r <= ranges[i+1] && r-ranges[i] < 256; r++ {
			if unicode.IsPrint(r) {
				return r
			}
		}
	}
	return ranges[0]
}
