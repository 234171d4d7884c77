package governor

import (
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// Sliding window horizons.
const (
	ShortWindow  = 3 * time.Second
	MediumWindow = time.Minute
	LongWindow   = 10 * time.Minute
)

// Default tracker bounds.
const (
	DefaultMaxEntries = 600
	DefaultMaxClients = 100
)

// Ceilings are the per-window request limits of one tier. A window is breached
// when its count, current request included, is greater than the ceiling.
// Zero disables the window.
type Ceilings struct {
	ThreeSeconds int
	OneMinute    int
	TenMinutes   int
}

// Breach returns the reason code of the first breached window, checking the
// ten-minute window first, or ReasonNone.
func (c Ceilings) Breach(n access.WindowCounts) access.Reason {
	switch {
	case c.TenMinutes > 0 && n.TenMinutes > c.TenMinutes:
		return access.ReasonTenMinuteLimit
	case c.OneMinute > 0 && n.OneMinute > c.OneMinute:
		return access.ReasonOneMinuteLimit
	case c.ThreeSeconds > 0 && n.ThreeSeconds > c.ThreeSeconds:
		return access.ReasonThreeSecondLimit
	default:
		return access.ReasonNone
	}
}

func (c Ceilings) isZero() bool { return c == Ceilings{} }

// Config holds the thresholds and client lists. It is hot-reloadable through
// Governor.SetConfig.
type Config struct {
	Block   Ceilings
	Global  Ceilings
	Resort  Ceilings
	Snippet Ceilings

	// Whitelist and Blacklist accept IP addresses, CIDR prefixes and host
	// names, where "*.example.org" matches every subdomain.
	Whitelist []string
	Blacklist []string
	// Intranet exempts private network addresses from counting.
	Intranet bool

	MaxEntries int
	MaxClients int
}

// DefaultConfig returns the built-in thresholds.
func DefaultConfig() Config {
	return Config{
		Block:      Ceilings{ThreeSeconds: 30, OneMinute: 200, TenMinutes: 500},
		Global:     Ceilings{ThreeSeconds: 1, OneMinute: 6, TenMinutes: 60},
		Snippet:    Ceilings{ThreeSeconds: 1, OneMinute: 4, TenMinutes: 20},
		Resort:     Ceilings{ThreeSeconds: 1, OneMinute: 1, TenMinutes: 10},
		MaxEntries: DefaultMaxEntries,
		MaxClients: DefaultMaxClients,
	}
}

// ApplyDefaults fills unset ceilings and bounds.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Block.isZero() {
		c.Block = def.Block
	}
	if c.Global.isZero() {
		c.Global = def.Global
	}
	if c.Snippet.isZero() {
		c.Snippet = def.Snippet
	}
	if c.Resort.isZero() {
		c.Resort = def.Resort
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.MaxClients <= 0 {
		c.MaxClients = def.MaxClients
	}
}

// Validate rejects ceilings the tracker can never reach.
func (c *Config) Validate() error {
	var errs []error
	tiers := []struct {
		name string
		ce   Ceilings
	}{{"block", c.Block}, {"global", c.Global}, {"snippet", c.Snippet}, {"resort", c.Resort}}
	for _, tier := range tiers {
		name, ce := tier.name, tier.ce
		if ce.ThreeSeconds < 0 || ce.OneMinute < 0 || ce.TenMinutes < 0 {
			errs = append(errs, fmt.Errorf("%s: ceilings must be >= 0", name))
		}
		if ce.TenMinutes >= c.MaxEntries {
			errs = append(errs, fmt.Errorf("%s: ten minute ceiling %d must be below max entries %d",
				name, ce.TenMinutes, c.MaxEntries))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ceilings(t access.Tier) Ceilings {
	switch t {
	case access.TierGlobal:
		return c.Global
	case access.TierResort:
		return c.Resort
	case access.TierSnippet:
		return c.Snippet
	default:
		return Ceilings{}
	}
}
