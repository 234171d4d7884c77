package searchgate

import "time"

// Role is the authentication level of a caller.
type Role string

// Roles.
const (
	RoleAnonymous Role = "anonymous"
	RoleExtended  Role = "extended"
	RoleAdmin     Role = "admin"
)

// Order names a resort criterion.
type Order string

// Orders.
const (
	OrderRelevance Order = "relevance"
	OrderDate      Order = "date"
	OrderLocation  Order = "location"
)

// Caller identifies who runs a request. Addr is an IP address or, for
// callers without one, any stable identifier.
type Caller struct {
	Addr string
	Role Role
}

// SearchRequest is one search. Zero Count and negative Offset use the
// configured defaults.
type SearchRequest struct {
	Query      string
	Offset     int
	Count      int
	Local      bool   // restrict to the local resource
	ContentDom string // text, image, audio, video, app, all
	Verify     string // snippet strategy: false, cacheonly, ifexist, iffresh, nocache
	Navigators []string
	TZOffset   int // minutes behind UTC
	Language   string
}

// Query is what the Retriever receives: the parsed and normalized request.
type Query struct {
	Include    []string
	Exclude    []string
	Canonical  string // goal and directives rendered as query text
	SiteHost   string
	TLD        string
	Filetype   string
	Author     string
	Language   string
	InURL      []string
	NotInURL   []string
	From       time.Time
	To         time.Time
	Near       bool
	Radius     *Circle
	ContentDom string
	Snippet    string
	Navigators []string
	Global     bool
	MaxResults int
}

// Circle is a geographic search area.
type Circle struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Item is a ranked hit.
type Item struct {
	URLHash string
	URL     string
	Title   string
	Snippet string
	Host    string
	Score   float64
	Date    time.Time
	Lat     float64
	Lon     float64
	HasGeo  bool
}

// Results is a Retriever's answer.
type Results struct {
	Items           []Item
	LocalAvailable  int
	RemoteAvailable int
	Facets          map[string]map[string]int
	Suggestions     []string
	Partial         bool
}

// Page is one window of a search session.
type Page struct {
	Query          string
	CanonicalQuery string
	SessionID      string
	Offset         int
	Count          int
	Total          int
	Items          []Item
	Facets         map[string]map[string]int
	Suggestions    []string
	Notices        []string
	ExcludedWords  []string
	Order          Order
	// ResortEnabled is set by Search and Resort only. Session pages report
	// ResortPermits instead.
	ResortEnabled  bool
	ResortPermits  int
	Resorted       bool
	Partial        bool
	TooShort       bool
	Global         bool
	Blocked        bool
	BlockReason    string
}

// ParsedQuery is the outcome of Parse.
type ParsedQuery struct {
	Include   []string
	Exclude   []string
	Canonical string
	FullQuery string
	Excluded  []string
	Notices   []string
	TooShort  bool
}
