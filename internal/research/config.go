package research

import (
	"fmt"
	"os"
	"time"
)

// Environment variable overrides for research configuration.
const (
	EnvCacheTTL     = "REFINERY_RESEARCH_CACHE_TTL"
	EnvCorpusPrefix = "REFINERY_RESEARCH_CORPUS_PREFIX"
)

// Config holds research connector settings.
type Config struct {
	// CacheTTL bounds how long a (query, scope) result set is served from
	// cache before the connector is consulted again.
	CacheTTL string `toml:"cache_ttl"`

	// CorpusPrefix optionally narrows corpus scans to blobs under a prefix.
	CorpusPrefix string `toml:"corpus_prefix"`
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
	if overlay.CorpusPrefix != "" {
		c.CorpusPrefix = overlay.CorpusPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.CacheTTL == "" {
		c.CacheTTL = "5m"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCacheTTL); v != "" {
		c.CacheTTL = v
	}
	if v := os.Getenv(EnvCorpusPrefix); v != "" {
		c.CorpusPrefix = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	return nil
}
