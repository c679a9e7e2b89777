// Package config loads the server configuration from the environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/joeshaw/envdecode"
)

// ErrMissingSession is reported by Validate when no LeetCode session cookie
// was supplied.
var ErrMissingSession = errors.New("LeetCode session cookie is required (set LEETCODE_SESSION or pass --session)")

// Config is the full process configuration.
type Config struct {
	// LeetCode upstream. A negative RateLimit disables limiting.
	Session          string        `env:"LEETCODE_SESSION"`
	CSRFToken        string        `env:"LEETCODE_CSRF"`
	BaseURL          string        `env:"LEETCODE_BASE_URL,default=https://leetcode.com"`
	Timeout          time.Duration `env:"LEETCODE_TIMEOUT,default=30s"`
	RateLimit        float64       `env:"LEETCODE_RATE_LIMIT,default=5"`
	PollAttempts     int           `env:"LEETCODE_POLL_ATTEMPTS,default=10"`
	PollInterval     time.Duration `env:"LEETCODE_POLL_INTERVAL,default=1s"`
	CacheTTL         time.Duration `env:"LEETCODE_CACHE_TTL,default=1h"`
	EnableSubmission bool          `env:"LEETCODE_ENABLE_SUBMISSION,default=false"`

	// Storage. An empty RedisAddr keeps sessions and cache in process.
	RedisAddr        string        `env:"REDIS_ADDR"`
	StorageKeyPrefix string        `env:"STORAGE_KEY_PREFIX,default=leetcode-mcp:"`
	CacheSize        int           `env:"STORAGE_MEMORY_ITEMS,default=4096"`
	SessionTTL       time.Duration `env:"MCP_SESSION_TTL,default=1h"`

	// Transport. An empty HTTPAddr serves stdio.
	HTTPAddr        string `env:"MCP_HTTP_ADDR"`
	PublicURL       string `env:"MCP_PUBLIC_URL"`
	AuthIssuer      string `env:"MCP_AUTH_ISSUER"`
	AuthAudience    string `env:"MCP_AUTH_AUDIENCE"`
	AuthHS256Secret string `env:"MCP_AUTH_HS256_SECRET"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	Version  string `env:"VERSION,default=1.0.0"`
}

// Load decodes the environment into a Config with defaults applied.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session) == "" {
		return ErrMissingSession
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return fmt.Errorf("config: VERSION %q is not a semantic version: %w", c.Version, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.PollAttempts <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("config: submission polling needs a positive attempt count and interval")
	}
	if c.AuthIssuer != "" && c.AuthHS256Secret != "" {
		return fmt.Errorf("config: MCP_AUTH_ISSUER and MCP_AUTH_HS256_SECRET are mutually exclusive")
	}
	if c.PublicURL != "" && c.AuthIssuer == "" {
		return fmt.Errorf("config: MCP_PUBLIC_URL is only meaningful with MCP_AUTH_ISSUER")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// ServerVersion returns Version in canonical form.
func (c *Config) ServerVersion() string {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return c.Version
	}
	return v.String()
}
