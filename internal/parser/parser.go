// Package parser turns a raw, human-typed query string into a structured
// query: a goal of include and exclude terms plus a modifier record built
// from embedded directives such as site:, tld: or /near.
//
// Directives are whole whitespace-delimited tokens. Extraction runs as an
// ordered list of rules over the working string: the modifier grammar first,
// then the catch-all check, then the ranking and filter directives. A rule
// removes every token it recognizes, so later rules never see it.
package parser

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/query"
)

// maxOffsetMinutes bounds timezoneOffset to real-world zones.
const maxOffsetMinutes = 14 * 60

// Result is the outcome of parsing one raw query.
type Result struct {
	Goal     query.Goal
	Modifier query.Modifier
	// Canonical is the goal rendered as query text, directives removed.
	Canonical string
	// Excluded lists stopwords dropped from the include set.
	Excluded []string
	// Notices describe directives that were dropped because their body was malformed.
	Notices []string
	// TooShort is set when nothing searchable is left and no host restricts the query.
	TooShort bool
}

// FullQuery renders the goal and modifier as query text. Parsing it again
// yields the same goal and modifier.
func (r Result) FullQuery() string {
	return strings.TrimSpace(r.Canonical + " " + r.Modifier.String())
}

// Parser is safe for concurrent use.
type Parser struct {
	stopwords atomic.Pointer[stopwordHolder]
}

type stopwordHolder struct{ set StopwordSet }

// New creates a parser. A nil set falls back to DefaultStopwords.
func New(stopwords StopwordSet) *Parser {
	p := &Parser{}
	p.SetStopwords(stopwords)
	return p
}

// SetStopwords swaps the stopword set used by later Parse calls.
func (p *Parser) SetStopwords(stopwords StopwordSet) {
	if stopwords == nil {
		stopwords = DefaultStopwords()
	}
	p.stopwords.Store(&stopwordHolder{set: stopwords})
}

// Parse parses raw. tzOffsetMinutes follows the browser convention of
// Date.getTimezoneOffset: minutes behind UTC, so UTC+2 is -120.
func (p *Parser) Parse(raw string, tzOffsetMinutes int) Result {
	st := &state{loc: location(tzOffsetMinutes)}

	working := strings.NewReplacer("<", " ", ">", " ").Replace(raw)
	for _, r := range modifierGrammar {
		working = r.run(working, st)
	}

	catchAll := strings.TrimSpace(working) == "*"
	if catchAll {
		working = ""
	}
	for _, r := range directives {
		working = r.run(working, st)
	}

	if !st.mod.From.IsZero() && !st.mod.To.IsZero() && !st.mod.From.Before(st.mod.To) {
		st.notice("to:", "not after from:")
		st.mod.To = time.Time{}
	}

	include, exclude, dropped := tokenize(working, p.stopwords.Load().set)
	if catchAll {
		include = []string{query.CatchAll}
	}

	res := Result{Modifier: st.mod, Excluded: dropped, Notices: st.notices}
	res.Goal = query.NewGoal(include, exclude)
	if res.Goal.IsEmpty() {
		if st.mod.HasHost() {
			res.Goal = query.NewGoal([]string{query.CatchAll}, exclude)
		} else {
			res.TooShort = true
		}
	}
	res.Canonical = res.Goal.String()
	return res
}

func location(offsetMinutes int) *time.Location {
	if offsetMinutes == 0 || offsetMinutes > maxOffsetMinutes || offsetMinutes < -maxOffsetMinutes {
		return time.UTC
	}
	return time.FixedZone("", -offsetMinutes*60)
}
