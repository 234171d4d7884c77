// Package governor decides, per client and per request, whether the request
// may proceed and which optional tiers (global search, resort, remote
// snippets) it may use, based on sliding-window request counts.
package governor

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

type compiledConfig struct {
	Config
	whitelist *addressList
	blacklist *addressList
}

// Governor is the access rate governor. It is safe for concurrent use;
// requests from distinct clients never contend on a shared lock while counting.
type Governor struct {
	cfg    atomic.Pointer[compiledConfig]
	clock  Clock
	logger *zap.Logger

	mu       sync.RWMutex
	trackers map[string]*tracker
}

// New creates a governor. Unset thresholds fall back to DefaultConfig.
func New(cfg Config, clock Clock, logger *zap.Logger) *Governor {
	if clock == nil {
		clock = SystemClock{}
	}
	g := &Governor{
		clock:    clock,
		logger:   logger,
		trackers: make(map[string]*tracker),
	}
	g.SetConfig(cfg)
	return g
}

// SetConfig swaps thresholds and client lists. Tracked history is kept.
func (g *Governor) SetConfig(cfg Config) {
	cfg.ApplyDefaults()
	g.cfg.Store(&compiledConfig{
		Config:    cfg,
		whitelist: newAddressList(cfg.Whitelist),
		blacklist: newAddressList(cfg.Blacklist),
	})
}

// Check evaluates the request at the governor clock's current time.
func (g *Governor) Check(client access.Client, req access.Request) access.Decision {
	return g.Evaluate(client, g.clock.Now(), req)
}

// Evaluate computes the decision for one request. Counted requests are
// recorded even when blocked.
func (g *Governor) Evaluate(client access.Client, now time.Time, req access.Request) access.Decision {
	cfg := g.cfg.Load()
	if client.Addr.IsValid() {
		client.Addr = client.Addr.Unmap()
	}

	switch {
	case cfg.whitelist.Match(client):
		return grantAll(access.ReasonWhitelisted)
	case cfg.blacklist.Match(client):
		metrics.GovernorBlocksTotal.WithLabelValues(string(access.ReasonBlacklisted)).Inc()
		return access.Decision{
			Block:  true,
			Reason: access.ReasonBlacklisted,
			Tiers:  denyAll(access.ReasonBlacklisted),
		}
	case client.Role == access.Admin:
		return grantAll(access.ReasonPrivileged)
	case client.Addr.IsValid() && client.Addr.IsLoopback():
		return grantAll(access.ReasonLocal)
	case cfg.Intranet && client.Addr.IsValid() && client.Addr.IsPrivate():
		return grantAll(access.ReasonIntranet)
	}

	counts := g.trackerFor(trackerKey(client), now, cfg.MaxClients).record(now, cfg.MaxEntries)

	d := access.Decision{
		Counted: true,
		Counts:  counts,
		Tiers:   make(map[access.Tier]access.TierDecision, len(access.Tiers)),
	}
	for _, t := range access.Tiers {
		reason := cfg.ceilings(t).Breach(counts)
		d.Tiers[t] = access.TierDecision{Allowed: reason == access.ReasonNone, Reason: reason}
		if req.Wants(t) {
			outcome := "allowed"
			if reason != access.ReasonNone {
				outcome = "downgraded"
			}
			metrics.GovernorDecisionsTotal.WithLabelValues(string(t), outcome).Inc()
		}
	}

	if reason := cfg.Block.Breach(counts); reason != access.ReasonNone {
		d.Block = true
		d.Reason = reason
		metrics.GovernorBlocksTotal.WithLabelValues(string(reason)).Inc()
		g.logger.Debug("Client blocked",
			zap.String("client", client.ID),
			zap.String("reason", string(reason)),
			zap.Int("count_3s", counts.ThreeSeconds),
			zap.Int("count_1m", counts.OneMinute),
			zap.Int("count_10m", counts.TenMinutes),
		)
	}
	return d
}

// Clear drops every tracker. Used under memory pressure.
func (g *Governor) Clear() {
	g.mu.Lock()
	n := len(g.trackers)
	g.trackers = make(map[string]*tracker)
	g.mu.Unlock()

	metrics.GovernorTrackedClients.Set(0)
	g.logger.Info("Rate trackers cleared", zap.Int("clients", n))
}

// TrackedClients returns the number of clients with a tracker.
func (g *Governor) TrackedClients() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.trackers)
}

func (g *Governor) trackerFor(key string, now time.Time, maxClients int) *tracker {
	g.mu.RLock()
	t, ok := g.trackers[key]
	g.mu.RUnlock()
	if ok {
		return t
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.trackers[key]; ok {
		return t
	}
	if len(g.trackers) >= maxClients {
		g.purgeLocked(now, maxClients)
	}
	t = &tracker{}
	g.trackers[key] = t
	metrics.GovernorTrackedClients.Set(float64(len(g.trackers)))
	return t
}

// purgeLocked removes idle trackers, then clears the map wholesale if it is
// still full. Caller holds g.mu.
func (g *Governor) purgeLocked(now time.Time, maxClients int) {
	for key, t := range g.trackers {
		if t.idle(now) {
			delete(g.trackers, key)
		}
	}
	if len(g.trackers) >= maxClients {
		g.logger.Warn("Rate tracker map full, clearing", zap.Int("clients", len(g.trackers)))
		g.trackers = make(map[string]*tracker)
	}
}

func trackerKey(c access.Client) string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Addr.IsValid():
		return c.Addr.String()
	default:
		return "unknown"
	}
}

func grantAll(reason access.Reason) access.Decision {
	tiers := make(map[access.Tier]access.TierDecision, len(access.Tiers))
	for _, t := range access.Tiers {
		tiers[t] = access.TierDecision{Allowed: true}
	}
	return access.Decision{Reason: reason, Tiers: tiers}
}

func denyAll(reason access.Reason) map[access.Tier]access.TierDecision {
	tiers := make(map[access.Tier]access.TierDecision, len(access.Tiers))
	for _, t := range access.Tiers {
		tiers[t] = access.TierDecision{Reason: reason}
	}
	return tiers
}
