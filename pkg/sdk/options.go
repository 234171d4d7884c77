package searchgate

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/governor"
	"github.com/kailas-cloud/searchgate/internal/session"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	governor  governor.Config
	session   session.Config
	search    searchuc.Config
	stopwords []string
	clock     governor.Clock

	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

// Limits are request ceilings per sliding window. Zero leaves a window
// unlimited; a zero Limits keeps the built-in defaults.
type Limits struct {
	ThreeSeconds int
	OneMinute    int
	TenMinutes   int
}

func (l Limits) ceilings() governor.Ceilings {
	return governor.Ceilings{ThreeSeconds: l.ThreeSeconds, OneMinute: l.OneMinute, TenMinutes: l.TenMinutes}
}

// WithRateLimits sets the ceilings above which a caller is blocked entirely.
func WithRateLimits(l Limits) Option {
	return optionFunc(func(c *clientConfig) {
		c.governor.Block = l.ceilings()
	})
}

// WithTierLimits sets the ceilings above which the global resource, resorting
// and remote snippet fetching are withheld from a caller.
func WithTierLimits(global, resort, snippet Limits) Option {
	return optionFunc(func(c *clientConfig) {
		c.governor.Global = global.ceilings()
		c.governor.Resort = resort.ceilings()
		c.governor.Snippet = snippet.ceilings()
	})
}

// WithWhitelist exempts callers from rate limiting. Patterns are IP
// addresses, CIDR prefixes or host suffixes like ".example.org".
func WithWhitelist(patterns ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.governor.Whitelist = append(c.governor.Whitelist, patterns...)
	})
}

// WithBlacklist blocks callers outright. Same pattern syntax as WithWhitelist.
func WithBlacklist(patterns ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.governor.Blacklist = append(c.governor.Blacklist, patterns...)
	})
}

// WithIntranet exempts private-network callers from rate limiting.
func WithIntranet() Option {
	return optionFunc(func(c *clientConfig) {
		c.governor.Intranet = true
	})
}

// WithSessionCache bounds the number of cached search sessions and their lifetime.
func WithSessionCache(maxSessions int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.session.MaxSessions = maxSessions
		c.session.SessionTTL = ttl
	})
}

// WithWaitTimeout sets how long Search waits for a session still being built.
// Default: 3s.
func WithWaitTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.session.WaitTimeout = d
	})
}

// WithBuildTimeout sets the budget of one Retriever call. Default: 30s.
func WithBuildTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.session.BuildTimeout = d
	})
}

// WithResortPermits sets how many resorts one session allows. A negative
// value disables resorting. Default: 3.
func WithResortPermits(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.session.ResortPermits = n
	})
}

// WithPageSize sets the default and maximum page sizes. Defaults: 10 and 100.
func WithPageSize(defaultSize, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.DefaultPageSize = defaultSize
		c.search.MaxPageSize = maxSize
	})
}

// WithMaxResults sets how many results a session asks the Retriever for.
// Default: 1000.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.MaxResults = n
	})
}

// WithLocalDefault makes the local resource the default for requests.
func WithLocalDefault() Option {
	return optionFunc(func(c *clientConfig) {
		c.search.DefaultResource = searchuc.ResourceLocal
	})
}

// WithStopwords adds words to the built-in stopword set.
func WithStopwords(words ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.stopwords = append(c.stopwords, words...)
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger sets the logger of the embedded components (governor,
// session cache). Default: no-op.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// withClock replaces the governor clock. Used by tests.
func withClock(clock governor.Clock) Option {
	return optionFunc(func(c *clientConfig) {
		c.clock = clock
	})
}
