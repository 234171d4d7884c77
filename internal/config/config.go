package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/searchgate/internal/governor"
	"github.com/kailas-cloud/searchgate/internal/session"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
)

// Config holds the searchgate configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Search    SearchConfig    `yaml:"search"`
	Governor  GovernorConfig  `yaml:"governor"`
	Backend   BackendConfig   `yaml:"backend"`
	Memory    MemoryConfig    `yaml:"memory"`
	Stopwords StopwordsConfig `yaml:"stopwords"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the API keys of the privileged roles. Requests without a
// key are anonymous.
type AuthConfig struct {
	AdminKeys    []string `yaml:"admin_keys"`
	ExtendedKeys []string `yaml:"extended_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// TrustedProxies are the CIDR prefixes or addresses whose X-Real-IP,
	// True-Client-IP and X-Forwarded-For headers identify the client.
	// Requests from anyone else are identified by their peer address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig holds the block statistics store settings. The store is
// optional: without addrs no statistics are persisted.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	StatsTTLHours    int      `yaml:"stats_ttl_hours"`
}

// Enabled reports whether a store is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// SearchConfig holds session cache and paging settings.
type SearchConfig struct {
	MaxSessions     int    `yaml:"max_sessions"`
	SessionTTLSec   int    `yaml:"session_ttl_sec"`
	WaitTimeoutMs   int    `yaml:"wait_timeout_ms"`
	BuildTimeoutSec int    `yaml:"build_timeout_sec"`
	ResortPermits   int    `yaml:"resort_permits"`
	PoolSize        int    `yaml:"pool_size"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	MaxResults      int    `yaml:"max_results"`
	DefaultResource string `yaml:"default_resource"` // global, local
}

// CeilingsConfig holds the per-window limits of one tier. Zero disables a window.
type CeilingsConfig struct {
	ThreeSeconds int `yaml:"three_seconds"`
	OneMinute    int `yaml:"one_minute"`
	TenMinutes   int `yaml:"ten_minutes"`
}

// GovernorConfig holds the access rate thresholds and client lists.
type GovernorConfig struct {
	Block      CeilingsConfig `yaml:"block"`
	Global     CeilingsConfig `yaml:"global"`
	Resort     CeilingsConfig `yaml:"resort"`
	Snippet    CeilingsConfig `yaml:"snippet"`
	Whitelist  []string       `yaml:"whitelist"`
	Blacklist  []string       `yaml:"blacklist"`
	Intranet   bool           `yaml:"intranet"`
	MaxEntries int            `yaml:"max_entries"`
	MaxClients int            `yaml:"max_clients"`
}

// BackendConfig holds the index backend settings.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MemoryConfig holds the heap watchdog settings. A zero limit disables it.
type MemoryConfig struct {
	HeapLimitMB     int `yaml:"heap_limit_mb"`
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

// StopwordsConfig adds words to the built-in stopword list.
type StopwordsConfig struct {
	File  string   `yaml:"file"`
	Extra []string `yaml:"extra"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(FindConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 35
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.StatsTTLHours <= 0 {
		c.Database.StatsTTLHours = 48
	}
	if c.Search.MaxSessions <= 0 {
		c.Search.MaxSessions = session.DefaultMaxSessions
	}
	if c.Search.SessionTTLSec <= 0 {
		c.Search.SessionTTLSec = int(session.DefaultSessionTTL / time.Second)
	}
	if c.Search.WaitTimeoutMs <= 0 {
		c.Search.WaitTimeoutMs = int(session.DefaultWaitTimeout / time.Millisecond)
	}
	if c.Search.BuildTimeoutSec <= 0 {
		c.Search.BuildTimeoutSec = int(session.DefaultBuildTimeout / time.Second)
	}
	if c.Search.ResortPermits == 0 {
		c.Search.ResortPermits = session.DefaultResortPermits
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 10
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 1000
	}
	if c.Search.DefaultResource == "" {
		c.Search.DefaultResource = searchuc.ResourceGlobal
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = c.Search.BuildTimeoutSec
	}
	if c.Memory.PollIntervalSec <= 0 {
		c.Memory.PollIntervalSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	switch c.Search.DefaultResource {
	case searchuc.ResourceGlobal, searchuc.ResourceLocal:
	default:
		errs = append(errs, fmt.Errorf(
			"search.default_resource must be %q or %q, got %q",
			searchuc.ResourceGlobal, searchuc.ResourceLocal, c.Search.DefaultResource,
		))
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		errs = append(errs, fmt.Errorf("search.default_page_size %d exceeds max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize))
	}
	if _, err := c.HTTP.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, fmt.Errorf("http.trusted_proxies: %w", err))
	}
	if c.Memory.HeapLimitMB < 0 {
		errs = append(errs, fmt.Errorf("memory.heap_limit_mb must be >= 0, got %d", c.Memory.HeapLimitMB))
	}
	gov := c.GovernorSettings()
	gov.ApplyDefaults()
	if err := gov.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("governor: %w", err))
	}
	return errors.Join(errs...)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (h HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, raw := range h.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("parse %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", raw, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// GovernorSettings converts the governor section. Unset ceilings are filled
// by the governor itself.
func (c *Config) GovernorSettings() governor.Config {
	g := c.Governor
	return governor.Config{
		Block:      g.Block.ceilings(),
		Global:     g.Global.ceilings(),
		Resort:     g.Resort.ceilings(),
		Snippet:    g.Snippet.ceilings(),
		Whitelist:  g.Whitelist,
		Blacklist:  g.Blacklist,
		Intranet:   g.Intranet,
		MaxEntries: g.MaxEntries,
		MaxClients: g.MaxClients,
	}
}

// SessionSettings converts the session cache part of the search section.
func (c *Config) SessionSettings() session.Config {
	s := c.Search
	return session.Config{
		MaxSessions:   s.MaxSessions,
		SessionTTL:    time.Duration(s.SessionTTLSec) * time.Second,
		WaitTimeout:   time.Duration(s.WaitTimeoutMs) * time.Millisecond,
		BuildTimeout:  time.Duration(s.BuildTimeoutSec) * time.Second,
		ResortPermits: s.ResortPermits,
		PoolSize:      s.PoolSize,
	}
}

// SearchSettings converts the paging part of the search section.
func (c *Config) SearchSettings() searchuc.Config {
	s := c.Search
	return searchuc.Config{
		DefaultPageSize: s.DefaultPageSize,
		MaxPageSize:     s.MaxPageSize,
		MaxResults:      s.MaxResults,
		DefaultResource: s.DefaultResource,
	}
}

// RankingChanged reports whether moving from c to next changes what a search
// computes, so cached sessions must be dropped.
func (c *Config) RankingChanged(next *Config) bool {
	return c.Search.MaxResults != next.Search.MaxResults ||
		c.Backend.BaseURL != next.Backend.BaseURL ||
		!equalStrings(c.Stopwords.Extra, next.Stopwords.Extra) ||
		c.Stopwords.File != next.Stopwords.File
}

func (c CeilingsConfig) ceilings() governor.Ceilings {
	return governor.Ceilings{
		ThreeSeconds: c.ThreeSeconds,
		OneMinute:    c.OneMinute,
		TenMinutes:   c.TenMinutes,
	}
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

// FindConfigPath locates the config file of env.
func FindConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
