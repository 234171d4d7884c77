package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// Resource values.
const (
	ResourceGlobal = "global"
	ResourceLocal  = "local"
)

// ActionKind names an authenticated-only action carried by a search request.
type ActionKind string

// Action kinds.
const (
	ActionDelete    ActionKind = "deleteref"
	ActionRecommend ActionKind = "recommendref"
	ActionBookmark  ActionKind = "bookmarkref"
)

var actionKinds = []ActionKind{ActionDelete, ActionRecommend, ActionBookmark}

// Action is a side effect requested together with a search.
type Action struct {
	Kind    ActionKind
	URLHash string
	Client  access.Client
}

// Request is the parsed parameter set of one search request. Offset and
// Count are -1 when the caller did not send a usable value.
type Request struct {
	Query      string
	Offset     int
	Count      int
	Resource   string
	ContentDom string
	Verify     string
	Nav        []string
	TZOffset   int
	Language   string
	Actions    []Action
}

// ParseRequest reads the request parameters, accepting the legacy aliases.
// Malformed numbers are reported as -1 and replaced by defaults later.
func ParseRequest(v url.Values) Request {
	req := Request{
		Query:      first(v, "query", "q", "search"),
		Offset:     intParam(first(v, "startRecord", "offset", "start")),
		Count:      intParam(first(v, "maximumRecords", "count", "rows")),
		Resource:   strings.ToLower(first(v, "resource")),
		ContentDom: first(v, "contentdom"),
		Verify:     first(v, "verify"),
		Language:   first(v, "lr", "language"),
	}
	if nav := first(v, "nav"); nav != "" {
		req.Nav = strings.Split(nav, ",")
	}
	if tz, err := strconv.Atoi(first(v, "timezoneOffset")); err == nil {
		req.TZOffset = tz
	}
	// lr carries "lang_xx"
	req.Language = strings.TrimPrefix(req.Language, "lang_")
	for _, kind := range actionKinds {
		if hash := first(v, string(kind)); hash != "" {
			req.Actions = append(req.Actions, Action{Kind: kind, URLHash: hash})
		}
	}
	return req
}

func first(v url.Values, names ...string) string {
	for _, n := range names {
		if s := strings.TrimSpace(v.Get(n)); s != "" {
			return s
		}
	}
	return ""
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
