package governor

import (
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func client(ip string) access.Client {
	return access.Client{ID: ip, Addr: netip.MustParseAddr(ip), Role: access.Anonymous}
}

func newTestGovernor(cfg Config) *Governor {
	return New(cfg, &fakeClock{now: t0}, zap.NewNop())
}

var allTiers = access.Request{Global: true, Resort: true, Snippet: true}

func TestEvaluate_ThreeSecondCeiling(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 5}})
	c := client("203.0.113.7")

	for i := 0; i < 5; i++ {
		d := g.Evaluate(c, t0.Add(time.Duration(i)*100*time.Millisecond), allTiers)
		require.False(t, d.Block, "request %d", i+1)
	}
	d := g.Evaluate(c, t0.Add(time.Second), allTiers)
	assert.True(t, d.Block)
	assert.Equal(t, access.ReasonThreeSecondLimit, d.Reason)
	assert.Equal(t, 6, d.Counts.ThreeSeconds)

	d = g.Evaluate(c, t0.Add(5*time.Second), allTiers)
	assert.False(t, d.Block, "the short window has passed")
}

func TestEvaluate_TenMinuteCeilingAndRecovery(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{TenMinutes: 20}})
	c := client("203.0.113.8")

	at := t0
	for i := 0; i < 20; i++ {
		at = t0.Add(time.Duration(i) * 20 * time.Second)
		require.False(t, g.Evaluate(c, at, access.Request{}).Block, "request %d", i+1)
	}

	at = at.Add(20 * time.Second)
	d := g.Evaluate(c, at, access.Request{})
	assert.True(t, d.Block)
	assert.Equal(t, access.ReasonTenMinuteLimit, d.Reason)

	d = g.Evaluate(c, at.Add(LongWindow), access.Request{})
	assert.False(t, d.Block)
	assert.Equal(t, 1, d.Counts.TenMinutes)
}

func TestEvaluate_LongestWindowWins(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 1, OneMinute: 1, TenMinutes: 1}})
	c := client("203.0.113.9")

	g.Evaluate(c, t0, access.Request{})
	d := g.Evaluate(c, t0, access.Request{})
	assert.Equal(t, access.ReasonTenMinuteLimit, d.Reason)
}

func TestEvaluate_TierDowngrades(t *testing.T) {
	g := newTestGovernor(Config{})
	c := client("198.51.100.1")

	d := g.Evaluate(c, t0, allTiers)
	assert.True(t, d.Allowed(access.TierGlobal))
	assert.True(t, d.Allowed(access.TierResort))
	assert.True(t, d.Allowed(access.TierSnippet))

	d = g.Evaluate(c, t0.Add(time.Second), allTiers)
	assert.False(t, d.Block)
	assert.False(t, d.Allowed(access.TierGlobal))
	assert.Equal(t, access.ReasonThreeSecondLimit, d.Tiers[access.TierGlobal].Reason)
	assert.Equal(t, access.ReasonOneMinuteLimit, d.Tiers[access.TierResort].Reason)
	assert.Equal(t, access.ReasonThreeSecondLimit, d.Tiers[access.TierSnippet].Reason)

	d = g.Evaluate(c, t0.Add(10*time.Second), allTiers)
	assert.True(t, d.Allowed(access.TierGlobal))
	assert.False(t, d.Allowed(access.TierResort))
}

func TestEvaluate_WhitelistNeverCounted(t *testing.T) {
	g := newTestGovernor(Config{
		Block:     Ceilings{ThreeSeconds: 1},
		Whitelist: []string{"10.1.0.0/16"},
	})
	c := client("10.1.2.3")

	for i := 0; i < 100; i++ {
		d := g.Evaluate(c, t0, allTiers)
		require.False(t, d.Block)
		require.False(t, d.Counted)
		require.Equal(t, access.ReasonWhitelisted, d.Reason)
		require.True(t, d.Allowed(access.TierGlobal))
	}
	assert.Equal(t, 0, g.TrackedClients())
}

func TestEvaluate_WhitelistBeatsBlacklist(t *testing.T) {
	g := newTestGovernor(Config{
		Whitelist: []string{"192.0.2.1"},
		Blacklist: []string{"192.0.2.0/24"},
	})
	assert.False(t, g.Evaluate(client("192.0.2.1"), t0, allTiers).Block)
	assert.True(t, g.Evaluate(client("192.0.2.2"), t0, allTiers).Block)
}

func TestEvaluate_BlacklistNotCounted(t *testing.T) {
	g := newTestGovernor(Config{Blacklist: []string{"192.0.2.66"}})
	c := client("192.0.2.66")

	d := g.Evaluate(c, t0, allTiers)
	assert.True(t, d.Block)
	assert.Equal(t, access.ReasonBlacklisted, d.Reason)
	assert.False(t, d.Counted)
	assert.False(t, d.Allowed(access.TierGlobal))
	assert.Equal(t, 0, g.TrackedClients())
}

func TestEvaluate_Exemptions(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 1}, Intranet: true})

	admin := client("203.0.113.50")
	admin.Role = access.Admin
	cases := []struct {
		name   string
		client access.Client
		reason access.Reason
	}{
		{"admin", admin, access.ReasonPrivileged},
		{"loopback", client("127.0.0.1"), access.ReasonLocal},
		{"mapped loopback", client("::ffff:127.0.0.1"), access.ReasonLocal},
		{"intranet", client("192.168.1.20"), access.ReasonIntranet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				d := g.Evaluate(tc.client, t0, allTiers)
				require.False(t, d.Block)
				require.Equal(t, tc.reason, d.Reason)
			}
		})
	}
	assert.Equal(t, 0, g.TrackedClients())
}

func TestEvaluate_PrivateCountedWithoutIntranetMode(t *testing.T) {
	g := newTestGovernor(Config{})
	d := g.Evaluate(client("192.168.1.20"), t0, allTiers)
	assert.True(t, d.Counted)
	assert.Equal(t, 1, g.TrackedClients())
}

func TestEvaluate_BlockedRequestsStillCount(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 1}})
	c := client("203.0.113.10")

	g.Evaluate(c, t0, access.Request{})
	g.Evaluate(c, t0, access.Request{})
	d := g.Evaluate(c, t0, access.Request{})
	assert.True(t, d.Block)
	assert.Equal(t, 3, d.Counts.ThreeSeconds)
}

func TestEvaluate_TrackerTrimmedToMaxEntries(t *testing.T) {
	g := newTestGovernor(Config{MaxEntries: 10, Block: Ceilings{ThreeSeconds: 1000}})
	c := client("203.0.113.11")

	var d access.Decision
	for i := 0; i < 25; i++ {
		d = g.Evaluate(c, t0, access.Request{})
	}
	assert.Equal(t, 10, d.Counts.TenMinutes)
}

func TestEvaluate_ClientCapPurgesIdleThenClears(t *testing.T) {
	g := newTestGovernor(Config{MaxClients: 3})

	for i := 1; i <= 3; i++ {
		g.Evaluate(client(fmt.Sprintf("203.0.113.%d", i)), t0, access.Request{})
	}
	require.Equal(t, 3, g.TrackedClients())

	later := t0.Add(11 * time.Minute)
	g.Evaluate(client("203.0.113.4"), later, access.Request{})
	assert.Equal(t, 1, g.TrackedClients(), "idle trackers are purged")

	g.Evaluate(client("203.0.113.5"), later, access.Request{})
	g.Evaluate(client("203.0.113.6"), later, access.Request{})
	require.Equal(t, 3, g.TrackedClients())

	g.Evaluate(client("203.0.113.7"), later, access.Request{})
	assert.Equal(t, 1, g.TrackedClients(), "a full map of active clients is cleared")
}

func TestClear(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 1}})
	c := client("203.0.113.12")
	g.Evaluate(c, t0, access.Request{})
	require.True(t, g.Evaluate(c, t0, access.Request{}).Block)

	g.Clear()
	assert.Equal(t, 0, g.TrackedClients())
	assert.False(t, g.Evaluate(c, t0, access.Request{}).Block)
}

func TestSetConfig_HotReload(t *testing.T) {
	g := newTestGovernor(Config{})
	c := client("203.0.113.13")
	require.False(t, g.Evaluate(c, t0, access.Request{}).Block)

	g.SetConfig(Config{Blacklist: []string{"203.0.113.13"}})
	assert.True(t, g.Evaluate(c, t0, access.Request{}).Block)
}

func TestCheck_UsesClock(t *testing.T) {
	clk := &fakeClock{now: t0}
	g := New(Config{Block: Ceilings{ThreeSeconds: 1}}, clk, zap.NewNop())
	c := client("203.0.113.14")

	g.Check(c, access.Request{})
	assert.True(t, g.Check(c, access.Request{}).Block)

	clk.now = t0.Add(time.Hour)
	assert.False(t, g.Check(c, access.Request{}).Block)
}

func TestEvaluate_ConcurrentSameClient(t *testing.T) {
	g := newTestGovernor(Config{Block: Ceilings{ThreeSeconds: 599}, MaxEntries: 600})
	c := client("203.0.113.15")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				g.Evaluate(c, t0, access.Request{})
			}
		}()
	}
	wg.Wait()

	d := g.Evaluate(c, t0, access.Request{})
	assert.Equal(t, 501, d.Counts.ThreeSeconds)
}

func TestCeilings_Breach(t *testing.T) {
	c := Ceilings{ThreeSeconds: 2, OneMinute: 5, TenMinutes: 10}
	cases := []struct {
		counts access.WindowCounts
		want   access.Reason
	}{
		{access.WindowCounts{ThreeSeconds: 2, OneMinute: 5, TenMinutes: 10}, access.ReasonNone},
		{access.WindowCounts{ThreeSeconds: 3, OneMinute: 3, TenMinutes: 3}, access.ReasonThreeSecondLimit},
		{access.WindowCounts{ThreeSeconds: 3, OneMinute: 6, TenMinutes: 6}, access.ReasonOneMinuteLimit},
		{access.WindowCounts{ThreeSeconds: 3, OneMinute: 6, TenMinutes: 11}, access.ReasonTenMinuteLimit},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Breach(tc.counts), "%+v", tc.counts)
	}
	assert.Equal(t, access.ReasonNone, Ceilings{}.Breach(access.WindowCounts{ThreeSeconds: 1000}))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Block.TenMinutes = cfg.MaxEntries
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Global.OneMinute = -1
	assert.Error(t, cfg.Validate())
}

func TestAddressList_Match(t *testing.T) {
	l := newAddressList([]string{"10.0.0.0/8", "192.0.2.1", "*.crawler.example", " ", "not-a-prefix/x"})

	assert.True(t, l.Match(client("10.20.30.40")))
	assert.True(t, l.Match(client("192.0.2.1")))
	assert.True(t, l.Match(client("::ffff:192.0.2.1")))
	assert.False(t, l.Match(client("192.0.2.2")))
	assert.True(t, l.Match(access.Client{ID: "bot.crawler.example"}))
	assert.True(t, l.Match(access.Client{ID: "crawler.example"}))
	assert.False(t, l.Match(access.Client{ID: "example"}))

	var empty *addressList
	assert.False(t, empty.Match(client("10.0.0.1")))
	assert.Nil(t, newAddressList(nil))
}
