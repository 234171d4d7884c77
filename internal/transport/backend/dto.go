package backend

import (
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
)

type geoDTO struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radius_km"`
}

type modifierDTO struct {
	Protocol   string            `json:"protocol,omitempty"`
	SiteHost   string            `json:"site_host,omitempty"`
	Filetype   string            `json:"filetype,omitempty"`
	Author     string            `json:"author,omitempty"`
	Collection string            `json:"collection,omitempty"`
	Keyword    string            `json:"keyword,omitempty"`
	From       *time.Time        `json:"from,omitempty"`
	To         *time.Time        `json:"to,omitempty"`
	InURL      []string          `json:"inurl,omitempty"`
	NotInURL   []string          `json:"not_inurl,omitempty"`
	InlinkFrom string            `json:"inlink_from,omitempty"`
	TLD        string            `json:"tld,omitempty"`
	Vocabulary map[string]string `json:"vocabulary,omitempty"`
	Radius     *geoDTO           `json:"radius,omitempty"`
	Near       bool              `json:"near,omitempty"`
	Date       bool              `json:"date,omitempty"`
	Location   bool              `json:"location,omitempty"`
	Heuristic  bool              `json:"heuristic,omitempty"`
}

type retrieveRequest struct {
	Include    []string    `json:"include"`
	Exclude    []string    `json:"exclude,omitempty"`
	Modifier   modifierDTO `json:"modifier"`
	ContentDom string      `json:"contentdom"`
	Language   string      `json:"language,omitempty"`
	Navigators []string    `json:"navigators,omitempty"`
	Snippet    string      `json:"snippet"`
	Global     bool        `json:"global"`
	MaxResults int         `json:"max_results"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toRequest(p query.Params) retrieveRequest {
	m := p.Modifier
	dto := modifierDTO{
		Protocol:   string(m.Protocol),
		SiteHost:   m.SiteHost,
		Filetype:   m.Filetype,
		Author:     m.Author,
		Collection: m.Collection,
		Keyword:    m.Keyword,
		InURL:      m.InURL,
		NotInURL:   m.NotInURL,
		InlinkFrom: m.InlinkFrom,
		TLD:        m.TLD,
		Vocabulary: m.Vocabulary,
		Near:       m.Near,
		Date:       m.Date,
		Location:   m.Location,
		Heuristic:  m.Heuristic,
	}
	if !m.From.IsZero() {
		from := m.From
		dto.From = &from
	}
	if !m.To.IsZero() {
		to := m.To
		dto.To = &to
	}
	if !m.Radius.IsZero() {
		dto.Radius = &geoDTO{Lat: m.Radius.Lat, Lon: m.Radius.Lon, RadiusKm: m.Radius.RadiusKm}
	}
	return retrieveRequest{
		Include:    p.Goal.Include(),
		Exclude:    p.Goal.Exclude(),
		Modifier:   dto,
		ContentDom: string(p.ContentDom),
		Language:   p.Language,
		Navigators: p.Navigators,
		Snippet:    string(p.Snippet),
		Global:     p.Global,
		MaxResults: p.MaxResults,
	}
}

// retrieveResponse is result.Set on the wire.
type retrieveResponse = result.Set
