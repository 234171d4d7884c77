// Package query holds the structured form of a parsed search query and the
// canonical identity used to share search sessions.
package query

import (
	"sort"
	"strings"
)

// CatchAll is the internal term matching every document.
const CatchAll = "*:*"

// Goal is the term part of a query: an ordered include set and an exclude set.
// Include and exclude terms are disjoint.
type Goal struct {
	include []string
	exclude []string
}

// NewGoal builds a goal. Duplicates are dropped (first occurrence wins for
// include order), empty terms are ignored and a term present in both sets is
// kept only as an exclusion. Exclusions are sorted.
func NewGoal(include, exclude []string) Goal {
	ex := make(map[string]struct{}, len(exclude))
	var excl []string
	for _, t := range exclude {
		if t == "" {
			continue
		}
		if _, dup := ex[t]; dup {
			continue
		}
		ex[t] = struct{}{}
		excl = append(excl, t)
	}
	sort.Strings(excl)

	seen := make(map[string]struct{}, len(include))
	var incl []string
	for _, t := range include {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if _, excluded := ex[t]; excluded {
			continue
		}
		seen[t] = struct{}{}
		incl = append(incl, t)
	}
	return Goal{include: incl, exclude: excl}
}

// CatchAllGoal returns the goal matching every document.
func CatchAllGoal() Goal {
	return Goal{include: []string{CatchAll}}
}

// Include returns a copy of the include terms in query order.
func (g Goal) Include() []string { return append([]string(nil), g.include...) }

// Exclude returns a copy of the sorted exclude terms.
func (g Goal) Exclude() []string { return append([]string(nil), g.exclude...) }

// IsEmpty reports whether the goal has no include terms.
func (g Goal) IsEmpty() bool { return len(g.include) == 0 }

// IsCatchAll reports whether the goal is the match-all sentinel.
func (g Goal) IsCatchAll() bool {
	return len(g.include) == 1 && g.include[0] == CatchAll
}

// Equal reports whether two goals have the same terms in the same order.
func (g Goal) Equal(o Goal) bool {
	return equalStrings(g.include, o.include) && equalStrings(g.exclude, o.exclude)
}

// String renders the goal as query text: include terms followed by "-term"
// exclusions. Phrases and terms a parser could read as a directive are quoted.
func (g Goal) String() string {
	parts := make([]string, 0, len(g.include)+len(g.exclude))
	for _, t := range g.include {
		parts = append(parts, quote(t))
	}
	for _, t := range g.exclude {
		parts = append(parts, "-"+quote(t))
	}
	return strings.Join(parts, " ")
}

func quote(t string) string {
	if t == CatchAll {
		return t
	}
	if t == "*" || strings.HasPrefix(t, "/") || strings.ContainsAny(t, " \t:") {
		return `"` + t + `"`
	}
	return t
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
