// Package access holds the value types exchanged with the access rate governor.
package access

import "net/netip"

// Role is the authentication level of a caller.
type Role string

// Role constants.
const (
	Anonymous Role = "anonymous"
	// Extended callers may run bookmark/vote/delete actions from the query flow.
	Extended Role = "extended"
	Admin    Role = "admin"
)

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool {
	return r == Anonymous || r == Extended || r == Admin
}

// AtLeast reports whether r grants at least the rights of min.
func (r Role) AtLeast(minRole Role) bool {
	return r.rank() >= minRole.rank()
}

func (r Role) rank() int {
	switch r {
	case Admin:
		return 2
	case Extended:
		return 1
	default:
		return 0
	}
}

// Client identifies the caller of a request.
type Client struct {
	ID   string     // network identifier used as the tracker key
	Addr netip.Addr // parsed address, invalid when ID is not an IP
	Role Role
}

// Tier is an optional, individually rate-limited capability of a request.
type Tier string

// Tier constants.
const (
	TierGlobal  Tier = "global"
	TierResort  Tier = "resort"
	TierSnippet Tier = "snippet"
)

// Tiers lists every tier in evaluation order.
var Tiers = []Tier{TierGlobal, TierResort, TierSnippet}

// Request states which optional tiers a request wants to use.
type Request struct {
	Global  bool
	Resort  bool
	Snippet bool
}

// Wants reports whether the tier was requested.
func (r Request) Wants(t Tier) bool {
	switch t {
	case TierGlobal:
		return r.Global
	case TierResort:
		return r.Resort
	case TierSnippet:
		return r.Snippet
	default:
		return false
	}
}

// Reason explains a governor decision.
type Reason string

// Reason codes. Block reasons are rendered to callers; the rest are for logs and metrics.
const (
	ReasonNone             Reason = ""
	ReasonBlacklisted      Reason = "blacklisted"
	ReasonTenMinuteLimit   Reason = "ten-minute-limit"
	ReasonOneMinuteLimit   Reason = "one-minute-limit"
	ReasonThreeSecondLimit Reason = "three-second-limit"
	ReasonWhitelisted      Reason = "whitelisted"
	ReasonPrivileged       Reason = "privileged"
	ReasonLocal            Reason = "local"
	ReasonIntranet         Reason = "intranet"
)

// IsBlock reports whether the reason is one of the block codes.
func (r Reason) IsBlock() bool {
	switch r {
	case ReasonBlacklisted, ReasonTenMinuteLimit, ReasonOneMinuteLimit, ReasonThreeSecondLimit:
		return true
	default:
		return false
	}
}

// TierDecision is the outcome for one tier.
type TierDecision struct {
	Allowed bool
	Reason  Reason // window that caused a downgrade, empty when allowed
}

// Decision is the governor's verdict for one request.
type Decision struct {
	Block  bool
	Reason Reason
	Tiers  map[Tier]TierDecision
	// Counted is false when the request bypassed the tracker.
	Counted bool
	// Counts are the window counts the decision was computed from.
	Counts WindowCounts
}

// Allowed reports whether the tier may be used. A blocked decision allows nothing.
func (d Decision) Allowed(t Tier) bool {
	if d.Block {
		return false
	}
	return d.Tiers[t].Allowed
}

// WindowCounts are the number of requests seen in each horizon, current request included.
type WindowCounts struct {
	ThreeSeconds int
	OneMinute    int
	TenMinutes   int
}
