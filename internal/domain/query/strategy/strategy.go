// Package strategy names the snippet verification strategies a request may ask for.
package strategy

import "strings"

// Strategy controls how result snippets are verified.
type Strategy string

// Strategy constants.
const (
	// None skips snippet verification.
	None Strategy = "false"
	// CacheOnly uses locally cached content and never contacts remote hosts.
	CacheOnly Strategy = "cacheonly"
	IfExist   Strategy = "ifexist"
	IfFresh   Strategy = "iffresh"
	NoCache   Strategy = "nocache"
)

// Default is used when the request does not name a strategy.
const Default = IfExist

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	switch s {
	case None, CacheOnly, IfExist, IfFresh, NoCache:
		return true
	default:
		return false
	}
}

// FetchesRemote reports whether the strategy may load content from remote hosts.
func (s Strategy) FetchesRemote() bool {
	return s == IfExist || s == IfFresh || s == NoCache
}

// Parse maps the verify request parameter to a Strategy.
func Parse(s string) Strategy {
	v := Strategy(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case v == "":
		return Default
	case v == "true":
		return IfFresh
	case v.IsValid():
		return v
	default:
		return Default
	}
}
