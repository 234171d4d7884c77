package parser

import (
	"strings"
	"unicode"
)

// fields splits s on whitespace, keeping a double-quoted phrase (optionally
// prefixed by '-') as one token including its quotes. An unterminated quote
// runs to the end of the input.
func fields(s string) []string {
	var out []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
			if !inQuote {
				flush()
			}
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// extract removes every token accepted by match and returns the remaining
// text with the removed tokens in input order.
func extract(s string, match func(tok string) bool) (rest string, matched []string) {
	toks := fields(s)
	kept := toks[:0]
	for _, t := range toks {
		if match(t) {
			matched = append(matched, t)
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " "), matched
}

// hasPrefixFold is a case-insensitive strings.HasPrefix for ASCII prefixes.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isFlag(name string) func(string) bool {
	return func(tok string) bool { return strings.EqualFold(tok, name) }
}

func isPrefixed(prefix string) func(string) bool {
	return func(tok string) bool { return hasPrefixFold(tok, prefix) }
}
