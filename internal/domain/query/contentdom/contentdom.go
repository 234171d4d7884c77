package contentdom

import "strings"

// Domain is the kind of content a search targets.
type Domain string

// Content domain constants.
const (
	Text  Domain = "text"
	Image Domain = "image"
	Audio Domain = "audio"
	Video Domain = "video"
	App   Domain = "app"
	// All searches every content kind.
	All Domain = "all"
)

// IsValid checks if the domain is one of the supported values.
func (d Domain) IsValid() bool {
	switch d {
	case Text, Image, Audio, Video, App, All:
		return true
	default:
		return false
	}
}

// Parse maps a request parameter to a Domain, falling back to Text.
func Parse(s string) Domain {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return Text
	}
	return d
}
