package session

import (
	"runtime"
	"time"
)

// Config bounds the session cache and the build pool.
type Config struct {
	MaxSessions int
	SessionTTL  time.Duration
	// WaitTimeout is how long a caller waits for a building session before it
	// gets the session in its current, partial state.
	WaitTimeout time.Duration
	// BuildTimeout is the budget of one RetrieveAndRank call, independent of
	// the request that started it.
	BuildTimeout  time.Duration
	ResortPermits int
	PoolSize      int
}

// Defaults.
const (
	DefaultMaxSessions   = 100
	DefaultSessionTTL    = 10 * time.Minute
	DefaultWaitTimeout   = 3 * time.Second
	DefaultBuildTimeout  = 30 * time.Second
	DefaultResortPermits = 3
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.BuildTimeout <= 0 {
		c.BuildTimeout = DefaultBuildTimeout
	}
	if c.ResortPermits < 0 {
		c.ResortPermits = 0
	} else if c.ResortPermits == 0 {
		c.ResortPermits = DefaultResortPermits
	}
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU() * 4
	}
}
