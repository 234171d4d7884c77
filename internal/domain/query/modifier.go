package query

import (
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/geo"
)

// Protocol restricts results to one URL scheme.
type Protocol string

// Protocol constants.
const (
	ProtocolAny   Protocol = ""
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolFTP   Protocol = "ftp"
	ProtocolSMB   Protocol = "smb"
	ProtocolFile  Protocol = "file"
)

// Modifier is the set of optional filters and ranking flags extracted from
// query directives. The zero value means "no filtering".
type Modifier struct {
	Protocol   Protocol
	SiteHost   string
	Filetype   string
	Author     string
	Collection string
	Keyword    string
	Language   string

	// From is inclusive, To is exclusive. Zero values leave the bound open.
	From time.Time
	To   time.Time

	InURL      []string // required URL substrings
	NotInURL   []string // forbidden URL substrings
	InlinkFrom string
	TLD        string
	Vocabulary map[string]string
	Radius     geo.Circle

	Near      bool
	Date      bool
	Location  bool
	Heuristic bool
}

// IsZero reports whether no field is set.
func (m Modifier) IsZero() bool {
	return m.String() == ""
}

// Equal compares two modifiers by their canonical form, so nil and empty
// collections compare equal.
func (m Modifier) Equal(o Modifier) bool {
	return m.String() == o.String()
}

// HasHost reports whether the query is restricted to a site host.
func (m Modifier) HasHost() bool {
	return m.SiteHost != ""
}

// String renders the modifier as directive text in a fixed order. Parsing the
// output yields an equal modifier.
func (m Modifier) String() string {
	var parts []string
	add := func(s string) { parts = append(parts, s) }

	if m.Protocol != ProtocolAny {
		add("/" + string(m.Protocol))
	}
	if m.SiteHost != "" {
		add("site:" + m.SiteHost)
	}
	if m.Filetype != "" {
		add("filetype:" + m.Filetype)
	}
	if m.Author != "" {
		add("author:" + m.Author)
	}
	if m.Collection != "" {
		add("collection:" + m.Collection)
	}
	if m.Keyword != "" {
		add("keyword:" + m.Keyword)
	}
	if m.Language != "" {
		add("/language/" + m.Language)
	}
	if !m.From.IsZero() {
		add("from:" + m.From.Format(time.RFC3339))
	}
	if !m.To.IsZero() {
		add("to:" + m.To.Format(time.RFC3339))
	}
	if m.Near {
		add("/near")
	}
	if m.Date {
		add("/date")
	}
	if m.Location {
		add("/location")
	}
	for _, s := range sortedCopy(m.InURL) {
		add("inurl:" + s)
	}
	for _, s := range sortedCopy(m.NotInURL) {
		add("-inurl:" + s)
	}
	if m.InlinkFrom != "" {
		add("inlink:" + m.InlinkFrom)
	}
	keys := make([]string, 0, len(m.Vocabulary))
	for k := range m.Vocabulary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add("/vocabulary/" + k + "/" + m.Vocabulary[k])
	}
	if !m.Radius.IsZero() {
		add(m.Radius.String())
	}
	if m.Heuristic {
		add("/heuristic")
	}
	if m.TLD != "" {
		add("tld:" + m.TLD)
	}
	return strings.Join(parts, " ")
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
