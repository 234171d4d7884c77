// Package result holds what the retrieval backend returns for a query: ranked
// items, availability counters and navigator facets.
package result

import "time"

// Item is a single ranked hit.
type Item struct {
	URLHash string    `json:"urlhash"`
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Snippet string    `json:"snippet,omitempty"`
	Host    string    `json:"host"`
	Score   float64   `json:"score"`
	Date    time.Time `json:"date,omitzero"`
	Lat     float64   `json:"lat,omitempty"`
	Lon     float64   `json:"lon,omitempty"`
	HasGeo  bool      `json:"has_geo,omitempty"`
}

// Counters report how many results each source knows about and how many were
// actually stored into the session.
type Counters struct {
	LocalAvailable  int `json:"local_available"`
	LocalStored     int `json:"local_stored"`
	RemoteAvailable int `json:"remote_available"`
	RemoteStored    int `json:"remote_stored"`
	RemotePeers     int `json:"remote_peers"`
}

// Total is the number of results known across all sources.
func (c Counters) Total() int {
	return c.LocalAvailable + c.RemoteAvailable
}

// Facets maps a navigator name to value counts, e.g. "hosts" -> {"example.org": 4}.
type Facets map[string]map[string]int

// Clone returns a deep copy.
func (f Facets) Clone() Facets {
	if f == nil {
		return nil
	}
	out := make(Facets, len(f))
	for name, counts := range f {
		c := make(map[string]int, len(counts))
		for k, v := range counts {
			c[k] = v
		}
		out[name] = c
	}
	return out
}

// Only returns the facets whose name is accepted by keep.
func (f Facets) Only(keep func(name string) bool) Facets {
	out := make(Facets)
	for name, counts := range f {
		if keep(name) {
			out[name] = counts
		}
	}
	return out
}

// Set is a complete answer from RetrieveAndRank.
type Set struct {
	Items       []Item   `json:"items"`
	Counters    Counters `json:"counters"`
	Facets      Facets   `json:"facets,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Partial is set when some source did not answer in time.
	Partial bool `json:"partial,omitempty"`
}

// Page returns the items in [offset, offset+count), clamped to the set.
func Page(items []Item, offset, count int) []Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || count <= 0 {
		return []Item{}
	}
	end := offset + count
	if end > len(items) {
		end = len(items)
	}
	return append([]Item(nil), items[offset:end]...)
}
