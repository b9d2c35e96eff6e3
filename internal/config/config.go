// SPDX-License-Identifier: MIT

// Package config assembles runtime configuration from defaults, an
// optional YAML file and environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/download"
	"github.com/perigee-io/eofetch/internal/orbit"
)

// Config holds every runtime setting of the tool and the query service.
type Config struct {
	// SaveDir is where downloaded orbit files land.
	SaveDir string `yaml:"save_dir"`
	// CacheDir holds the per-kind filename cache.
	CacheDir string `yaml:"cache_dir"`
	// OrbitKind selects precise or restituted files.
	OrbitKind orbit.Kind `yaml:"orbit_kind"`
	// MaxWorkers bounds concurrent downloads.
	MaxWorkers int `yaml:"max_workers"`
	// ForceASF skips the CDSE backend entirely.
	ForceASF bool `yaml:"force_asf"`
	// ScrapeURL optionally adds a legacy HTML listing endpoint as a
	// last-resort backend.
	ScrapeURL string `yaml:"scrape_url"`

	// CDSE credentials. Username/password may also come from netrc.
	CDSEToken    string `yaml:"cdse_token"`
	CDSEUser     string `yaml:"cdse_user"`
	CDSEPassword string `yaml:"cdse_password"`
	CDSE2FA      string `yaml:"cdse_2fa"`
	NetrcFile    string `yaml:"netrc_file"`

	// Serve settings for the HTTP query service.
	Listen       string        `yaml:"listen"`
	RateLimit    int           `yaml:"rate_limit"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		SaveDir:      ".",
		OrbitKind:    orbit.Precise,
		MaxWorkers:   download.DefaultMaxWorkers,
		Listen:       ":8080",
		RateLimit:    100,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		LogLevel:     "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.CacheDir == "" {
		dir, err := catalog.DefaultCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve cache dir: %w", err)
		}
		cfg.CacheDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.SaveDir = ParseString("EOFETCH_SAVE_DIR", c.SaveDir)
	c.CacheDir = ParseString("EOFETCH_CACHE_DIR", c.CacheDir)
	if v := ParseString("EOFETCH_ORBIT_KIND", string(c.OrbitKind)); v != string(c.OrbitKind) {
		c.OrbitKind = orbit.Kind(v)
	}
	c.MaxWorkers = ParseInt("EOFETCH_MAX_WORKERS", c.MaxWorkers)
	c.ForceASF = ParseBool("EOFETCH_FORCE_ASF", c.ForceASF)
	c.ScrapeURL = ParseString("EOFETCH_SCRAPE_URL", c.ScrapeURL)

	c.CDSEToken = ParseString("EOFETCH_CDSE_TOKEN", c.CDSEToken)
	c.CDSEUser = ParseString("EOFETCH_CDSE_USER", c.CDSEUser)
	c.CDSEPassword = ParseString("EOFETCH_CDSE_PASSWORD", c.CDSEPassword)
	c.CDSE2FA = ParseString("EOFETCH_CDSE_2FA", c.CDSE2FA)
	c.NetrcFile = ParseString("EOFETCH_NETRC_FILE", c.NetrcFile)

	c.Listen = ParseString("EOFETCH_LISTEN", c.Listen)
	c.RateLimit = ParseInt("EOFETCH_RATE_LIMIT", c.RateLimit)
	c.ReadTimeout = ParseDuration("EOFETCH_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = ParseDuration("EOFETCH_WRITE_TIMEOUT", c.WriteTimeout)

	c.LogLevel = ParseString("EOFETCH_LOG_LEVEL", c.LogLevel)
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if _, err := orbit.ParseKind(string(c.OrbitKind)); err != nil {
		return fmt.Errorf("orbit_kind: %w", err)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be >= 1 (got %d)", c.MaxWorkers)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be >= 1 (got %d)", c.RateLimit)
	}
	return nil
}
