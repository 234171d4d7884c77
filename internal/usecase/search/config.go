package search

import "time"

// Config holds request defaults and limits.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxResults is the number of results a session asks the backend for.
	MaxResults int
	// DefaultResource is used when the request names none.
	DefaultResource string
	// StatsTimeout bounds the write-behind of block statistics.
	StatsTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 10,
		MaxPageSize:     100,
		MaxResults:      1000,
		DefaultResource: ResourceGlobal,
		StatsTimeout:    2 * time.Second,
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = d.DefaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = d.MaxPageSize
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	if c.DefaultResource != ResourceLocal {
		c.DefaultResource = ResourceGlobal
	}
	if c.StatsTimeout <= 0 {
		c.StatsTimeout = d.StatsTimeout
	}
}
