package searchgate

import (
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
)

func toQuery(p query.Params) Query {
	m := p.Modifier
	q := Query{
		Include:    p.Goal.Include(),
		Exclude:    p.Goal.Exclude(),
		SiteHost:   m.SiteHost,
		TLD:        m.TLD,
		Filetype:   m.Filetype,
		Author:     m.Author,
		Language:   p.Language,
		InURL:      m.InURL,
		NotInURL:   m.NotInURL,
		From:       m.From,
		To:         m.To,
		Near:       m.Near,
		ContentDom: string(p.ContentDom),
		Snippet:    string(p.Snippet),
		Navigators: p.Navigators,
		Global:     p.Global,
		MaxResults: p.MaxResults,
	}
	q.Canonical = p.Goal.String()
	if mod := m.String(); mod != "" {
		q.Canonical += " " + mod
	}
	if !m.Radius.IsZero() {
		q.Radius = &Circle{Lat: m.Radius.Lat, Lon: m.Radius.Lon, RadiusKm: m.Radius.RadiusKm}
	}
	return q
}

func toSet(r *Results) result.Set {
	items := make([]result.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = result.Item{
			URLHash: it.URLHash,
			URL:     it.URL,
			Title:   it.Title,
			Snippet: it.Snippet,
			Host:    it.Host,
			Score:   it.Score,
			Date:    it.Date,
			Lat:     it.Lat,
			Lon:     it.Lon,
			HasGeo:  it.HasGeo,
		}
	}
	return result.Set{
		Items: items,
		Counters: result.Counters{
			LocalAvailable:  r.LocalAvailable,
			LocalStored:     len(items),
			RemoteAvailable: r.RemoteAvailable,
		},
		Facets:      result.Facets(r.Facets).Clone(),
		Suggestions: r.Suggestions,
		Partial:     r.Partial,
	}
}

func toItems(in []result.Item) []Item {
	out := make([]Item, len(in))
	for i, it := range in {
		out[i] = Item{
			URLHash: it.URLHash,
			URL:     it.URL,
			Title:   it.Title,
			Snippet: it.Snippet,
			Host:    it.Host,
			Score:   it.Score,
			Date:    it.Date,
			Lat:     it.Lat,
			Lon:     it.Lon,
			HasGeo:  it.HasGeo,
		}
	}
	return out
}

// toPage reads the view-model into a typed page. Missing keys stay zero.
func toPage(vm searchuc.ViewModel) *Page {
	p := &Page{
		Blocked:     vm.Blocked(),
		BlockReason: string(vm.BlockReason()),
		SessionID:   vm.SessionID(),
	}
	p.Query, _ = vm[searchuc.KeyQuery].(string)
	p.CanonicalQuery, _ = vm[searchuc.KeyCanonicalQuery].(string)
	p.Offset, _ = vm[searchuc.KeyOffset].(int)
	p.Count, _ = vm[searchuc.KeyItemsPerPage].(int)
	p.Total, _ = vm[searchuc.KeyTotalCount].(int)
	p.Suggestions, _ = vm[searchuc.KeySuggestions].([]string)
	p.Notices, _ = vm[searchuc.KeyNotices].([]string)
	p.ExcludedWords, _ = vm[searchuc.KeyExcludedWords].([]string)
	p.ResortEnabled, _ = vm[searchuc.KeyResortEnabled].(bool)
	p.ResortPermits, _ = vm[searchuc.KeyResortPermits].(int)
	p.Resorted, _ = vm[searchuc.KeyResorted].(bool)
	p.Partial, _ = vm[searchuc.KeyPartial].(bool)
	p.TooShort, _ = vm[searchuc.KeyTooShort].(bool)

	if order, ok := vm[searchuc.KeyOrder].(string); ok {
		p.Order = Order(order)
	}
	if res, ok := vm[searchuc.KeyResource].(string); ok {
		p.Global = res == searchuc.ResourceGlobal
	}
	if items, ok := vm[searchuc.KeyItems].([]result.Item); ok {
		p.Items = toItems(items)
	}
	if nav, ok := vm[searchuc.KeyNav].(result.Facets); ok && len(nav) > 0 {
		p.Facets = nav.Clone()
	}
	return p
}
