package parser

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/kailas-cloud/searchgate/internal/domain/query"
)

const trimChars = ".,!?;:'\"()[]{}-"

// tokenize splits the directive-free remainder into include and exclude terms.
// Stopwords are dropped from the include set and returned separately.
func tokenize(s string, stopwords StopwordSet) (include, exclude, dropped []string) {
	fold := cases.Fold()
	catchAll := false
	for _, tok := range fields(s) {
		neg := false
		if len(tok) > 1 && tok[0] == '-' {
			neg = true
			tok = tok[1:]
		}

		var term string
		phrase := false
		switch {
		case tok == "*" || tok == query.CatchAll:
			if !neg {
				catchAll = true
			}
			continue
		case strings.HasPrefix(tok, `"`):
			words := strings.Fields(strings.Trim(tok, `"`))
			phrase = len(words) > 1
			term = fold.String(strings.Join(words, " "))
			if !phrase {
				term = strings.Trim(term, trimChars)
			}
		default:
			// a quote opened mid-token; the token is plain text
			tok = strings.ReplaceAll(tok, `"`, "")
			term = fold.String(strings.Trim(tok, trimChars))
		}
		if term == "" {
			continue
		}

		if neg {
			exclude = append(exclude, term)
			continue
		}
		if !phrase && stopwords.Contains(term) {
			dropped = appendUnique(dropped, term)
			continue
		}
		include = append(include, term)
	}
	if catchAll && len(include) == 0 {
		include = []string{query.CatchAll}
	}
	return include, exclude, dropped
}
