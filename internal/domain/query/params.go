package query

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/searchgate/internal/domain/query/contentdom"
	"github.com/kailas-cloud/searchgate/internal/domain/query/strategy"
)

// Params is everything that affects the computation of a result set. Page
// windowing (offset, page size) is deliberately not part of it.
type Params struct {
	Goal       Goal
	Modifier   Modifier
	ContentDom contentdom.Domain
	Language   string
	Navigators []string
	Snippet    strategy.Strategy
	// Global is true when the distributed tier was granted.
	Global     bool
	MaxResults int
}

// NewParams normalizes navigator names (lower-case, sorted, deduplicated) and
// picks the modifier language over the request language.
func NewParams(
	goal Goal,
	mod Modifier,
	dom contentdom.Domain,
	requestLanguage string,
	navigators []string,
	snippet strategy.Strategy,
	global bool,
	maxResults int,
) Params {
	lang := mod.Language
	if lang == "" {
		lang = strings.ToLower(strings.TrimSpace(requestLanguage))
	}
	return Params{
		Goal:       goal,
		Modifier:   mod,
		ContentDom: dom,
		Language:   lang,
		Navigators: normalizeNavigators(navigators),
		Snippet:    snippet,
		Global:     global,
		MaxResults: maxResults,
	}
}

// Identity returns the canonical identity of the parameters.
func (p Params) Identity() Identity {
	return NewIdentity(p)
}

// WantsNavigator reports whether the facet was requested.
func (p Params) WantsNavigator(name string) bool {
	i := sort.SearchStrings(p.Navigators, name)
	return i < len(p.Navigators) && p.Navigators[i] == name
}

func normalizeNavigators(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
