package search

import (
	"strings"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/session"
)

// ViewModel is the flat name -> value map handed to the rendering layer.
type ViewModel map[string]any

// View-model keys.
const (
	KeyQuery           = "query"
	KeyCanonicalQuery  = "canonicalQuery"
	KeyOffset          = "offset"
	KeyItemsPerPage    = "itemsPerPage"
	KeyTotalCount      = "totalCount"
	KeyLocalAvailable  = "localAvailable"
	KeyLocalStored     = "localStored"
	KeyRemoteAvailable = "remoteAvailable"
	KeyRemoteStored    = "remoteStored"
	KeyRemotePeerCount = "remotePeerCount"
	KeyResource        = "resource"
	KeyResortEnabled   = "resortEnabled"
	KeyResortPermits   = "resortPermits"
	KeyResorted        = "resorted"
	KeyOrder           = "order"
	KeySnippetStrategy = "snippetStrategy"
	KeyBlockReason     = "blockReason"
	KeyBlocked         = "blocked"
	KeySessionID       = "sessionId"
	KeySessionInstance = "sessionInstance"
	KeyNavGeneration   = "navGeneration"
	KeyPartial         = "partial"
	KeyTooShort        = "tooShort"
	KeyExcludedWords   = "excludedWords"
	KeyNotices         = "notices"
	KeySuggestions     = "suggestions"
	KeyItems           = "items"
	KeyNav             = "nav"
	KeyContentDom      = "contentdom"
	KeyLanguage        = "language"
)

// Blocked reports whether the request was rejected by the governor.
func (vm ViewModel) Blocked() bool {
	b, _ := vm[KeyBlocked].(bool)
	return b
}

// BlockReason returns the block reason code, empty when not blocked.
func (vm ViewModel) BlockReason() access.Reason {
	r, _ := vm[KeyBlockReason].(string)
	return access.Reason(r)
}

// SessionID returns the canonical session identifier, empty when no session was used.
func (vm ViewModel) SessionID() string {
	id, _ := vm[KeySessionID].(string)
	return id
}

func blockedView(query string, offset, count int, reason access.Reason) ViewModel {
	return ViewModel{
		KeyQuery:        query,
		KeyOffset:       offset,
		KeyItemsPerPage: count,
		KeyTotalCount:   0,
		KeyBlocked:      true,
		KeyBlockReason:  string(reason),
	}
}

// fillSession copies the page-scoped state of s into vm.
func fillSession(vm ViewModel, s *session.Session, offset, count int) {
	p := s.Params()
	counters := s.Counters()
	items := s.Items()

	total := counters.Total()
	if total < len(items) {
		total = len(items)
	}

	vm[KeyCanonicalQuery] = canonicalQuery(p)
	vm[KeyOffset] = offset
	vm[KeyItemsPerPage] = count
	vm[KeyTotalCount] = total
	vm[KeyLocalAvailable] = counters.LocalAvailable
	vm[KeyLocalStored] = counters.LocalStored
	vm[KeyRemoteAvailable] = counters.RemoteAvailable
	vm[KeyRemoteStored] = counters.RemoteStored
	vm[KeyRemotePeerCount] = counters.RemotePeers
	vm[KeyResource] = resourceName(p.Global)
	vm[KeySnippetStrategy] = string(p.Snippet)
	vm[KeyContentDom] = string(p.ContentDom)
	vm[KeyLanguage] = p.Language
	vm[KeyResortPermits] = s.ResortPermits()
	vm[KeyOrder] = string(s.Order())
	vm[KeySessionID] = s.Identity().String()
	vm[KeySessionInstance] = s.InstanceID()
	vm[KeyNavGeneration] = s.NavGeneration()
	vm[KeyPartial] = s.Partial()
	vm[KeySuggestions] = s.Suggestions()
	vm[KeyItems] = s.Page(offset, count)
	vm[KeyNav] = s.Facets().Only(p.WantsNavigator)
	if _, ok := vm[KeyBlocked]; !ok {
		vm[KeyBlocked] = false
		vm[KeyBlockReason] = ""
	}
}

func canonicalQuery(p query.Params) string {
	return strings.TrimSpace(p.Goal.String() + " " + p.Modifier.String())
}

func resourceName(global bool) string {
	if global {
		return ResourceGlobal
	}
	return ResourceLocal
}

// setResortEnabled reports whether a resort would be applied now: the governor
// granted the resort tier and the session is ready with a permit left.
func setResortEnabled(vm ViewModel, s *session.Session, governorAllowed bool) {
	vm[KeyResortEnabled] = governorAllowed && s.State() == session.StateReady && s.ResortPermits() > 0
}
