package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/geo"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
)

// state accumulates what the rules extract from one query.
type state struct {
	mod     query.Modifier
	notices []string
	loc     *time.Location
}

func (st *state) notice(directive, reason string) {
	st.notices = append(st.notices, domain.NewDirectiveError(directive, reason).Error())
}

// rule extracts one directive kind. Matching tokens are removed from the
// working string and handed to apply in input order.
type rule struct {
	name  string
	match func(tok string) bool
	apply func(st *state, tok string)
}

// run applies the rule to s and returns the remainder.
func (r rule) run(s string, st *state) string {
	rest, toks := extract(s, r.match)
	for _, t := range toks {
		r.apply(st, t)
	}
	return rest
}

func value(tok, prefix string) string { return tok[len(prefix):] }

// modifierGrammar is the host/date/collection shorthand that runs before any
// other directive.
var modifierGrammar = []rule{
	{
		name: "protocol",
		match: func(tok string) bool {
			_, ok := protocols[strings.ToLower(tok)]
			return ok
		},
		apply: func(st *state, tok string) { st.mod.Protocol = protocols[strings.ToLower(tok)] },
	},
	{
		name:  "site",
		match: isPrefixed("site:"),
		apply: func(st *state, tok string) {
			h, err := normalizeHost(value(tok, "site:"))
			if err != nil {
				st.notice("site:", err.Error())
				st.mod.SiteHost = ""
				return
			}
			st.mod.SiteHost = h
		},
	},
	{
		name:  "filetype",
		match: isPrefixed("filetype:"),
		apply: func(st *state, tok string) {
			ext := strings.ToLower(strings.TrimPrefix(value(tok, "filetype:"), "."))
			if ext == "" || strings.ContainsAny(ext, "./") {
				st.notice("filetype:", "invalid extension")
				st.mod.Filetype = ""
				return
			}
			st.mod.Filetype = ext
		},
	},
	textDirective("author:", func(m *query.Modifier, v string) { m.Author = v }),
	textDirective("collection:", func(m *query.Modifier, v string) { m.Collection = v }),
	textDirective("keyword:", func(m *query.Modifier, v string) { m.Keyword = v }),
	{
		name:  "language",
		match: isPrefixed("/language/"),
		apply: func(st *state, tok string) {
			lang := strings.ToLower(value(tok, "/language/"))
			if !isLanguageCode(lang) {
				st.notice("/language/", "expected two-letter code")
				st.mod.Language = ""
				return
			}
			st.mod.Language = lang
		},
	},
	{
		name:  "from",
		match: isPrefixed("from:"),
		apply: func(st *state, tok string) {
			t, _, err := parseDate(value(tok, "from:"), st.loc)
			if err != nil {
				st.notice("from:", err.Error())
				st.mod.From = time.Time{}
				return
			}
			st.mod.From = t.UTC()
		},
	},
	{
		name:  "to",
		match: isPrefixed("to:"),
		apply: func(st *state, tok string) {
			t, dateOnly, err := parseDate(value(tok, "to:"), st.loc)
			if err != nil {
				st.notice("to:", err.Error())
				st.mod.To = time.Time{}
				return
			}
			if dateOnly {
				t = t.AddDate(0, 0, 1)
			}
			st.mod.To = t.UTC()
		},
	},
	{
		name:  "on",
		match: isPrefixed("on:"),
		apply: func(st *state, tok string) {
			t, _, err := parseDate(value(tok, "on:"), st.loc)
			if err != nil {
				st.notice("on:", err.Error())
				return
			}
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			st.mod.From = day.UTC()
			st.mod.To = day.AddDate(0, 0, 1).UTC()
		},
	},
}

// directives run after the catch-all check, in this order.
var directives = []rule{
	flagDirective("/near", func(m *query.Modifier) { m.Near = true }),
	flagDirective("/date", func(m *query.Modifier) { m.Date = true }),
	flagDirective("/location", func(m *query.Modifier) { m.Location = true }),
	{
		name: "inurl",
		match: func(tok string) bool {
			return hasPrefixFold(tok, "inurl:") || hasPrefixFold(tok, "-inurl:")
		},
		apply: func(st *state, tok string) {
			if hasPrefixFold(tok, "-inurl:") {
				v := strings.ToLower(value(tok, "-inurl:"))
				if v == "" {
					st.notice("-inurl:", "empty value")
					return
				}
				st.mod.NotInURL = appendUnique(st.mod.NotInURL, v)
				return
			}
			v := strings.ToLower(value(tok, "inurl:"))
			if v == "" {
				st.notice("inurl:", "empty value")
				return
			}
			st.mod.InURL = appendUnique(st.mod.InURL, v)
		},
	},
	{
		name:  "inlink",
		match: isPrefixed("inlink:"),
		apply: func(st *state, tok string) {
			h, err := normalizeHost(value(tok, "inlink:"))
			if err != nil {
				st.notice("inlink:", err.Error())
				st.mod.InlinkFrom = ""
				return
			}
			st.mod.InlinkFrom = h
		},
	},
	{
		name:  "vocabulary",
		match: isPrefixed("/vocabulary/"),
		apply: func(st *state, tok string) {
			k, v, ok := strings.Cut(value(tok, "/vocabulary/"), "/")
			k = strings.ToLower(k)
			if !ok || k == "" || v == "" {
				st.notice("/vocabulary/", "expected /vocabulary/<key>/<value>")
				return
			}
			if st.mod.Vocabulary == nil {
				st.mod.Vocabulary = make(map[string]string)
			}
			st.mod.Vocabulary[k] = v
		},
	},
	{
		name:  "radius",
		match: isPrefixed("/radius/"),
		apply: func(st *state, tok string) {
			c, err := parseRadius(value(tok, "/radius/"))
			if err != nil {
				st.notice("/radius/", err.Error())
				st.mod.Radius = geo.Circle{}
				return
			}
			st.mod.Radius = c
		},
	},
	flagDirective("/heuristic", func(m *query.Modifier) { m.Heuristic = true }),
	{
		name:  "tld",
		match: isPrefixed("tld:"),
		apply: func(st *state, tok string) {
			t, err := normalizeTLD(value(tok, "tld:"))
			if err != nil {
				st.notice("tld:", err.Error())
				st.mod.TLD = ""
				return
			}
			st.mod.TLD = t
		},
	},
}

var protocols = map[string]query.Protocol{
	"/http":  query.ProtocolHTTP,
	"/https": query.ProtocolHTTPS,
	"/ftp":   query.ProtocolFTP,
	"/smb":   query.ProtocolSMB,
	"/file":  query.ProtocolFile,
}

func flagDirective(name string, set func(*query.Modifier)) rule {
	return rule{
		name:  name,
		match: isFlag(name),
		apply: func(st *state, _ string) { set(&st.mod) },
	}
}

func textDirective(prefix string, set func(*query.Modifier, string)) rule {
	return rule{
		name:  strings.TrimSuffix(prefix, ":"),
		match: isPrefixed(prefix),
		apply: func(st *state, tok string) {
			v := value(tok, prefix)
			if v == "" {
				st.notice(prefix, "empty value")
			}
			set(&st.mod, v)
		},
	}
}

func isLanguageCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// parseDate parses a date in loc. dateOnly is set when the input carries no
// time of day.
func parseDate(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if s == "" {
		return time.Time{}, false, errEmptyValue
	}
	t, err = dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false, errUnparseableDate
	}
	return t, !strings.Contains(s, ":"), nil
}

func parseRadius(body string) (geo.Circle, error) {
	parts := strings.Split(body, "/")
	if len(parts) != 3 {
		return geo.Circle{}, errRadiusShape
	}
	var vals [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return geo.Circle{}, errRadiusShape
		}
		vals[i] = f
	}
	return geo.NewCircle(vals[0], vals[1], vals[2])
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
