// Package config holds the engine configuration surface: defaults, a yaml
// file loader, and NAMESCOUT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prefixlab/namescout/internal/types"
)

// Config holds the full engine configuration
type Config struct {
	// Endpoint is the remote name-lookup URL. The prefix is appended as a
	// "prefix" query parameter. Required unless Simulate is set.
	Endpoint string

	// Simulate replaces the HTTP source with the deterministic simulation
	// source for the whole run (offline/demo mode).
	Simulate bool

	// DegradedSimulation enables the explicit degraded mode: a terminally
	// failed real query is retried once against the simulation source and
	// the result is flagged as simulated. Off by default so genuine
	// failures surface in the stats.
	DegradedSimulation bool

	// RequestTimeout bounds a single remote query (default: 10s)
	RequestTimeout time.Duration

	// BaseDelay is the base inter-request delay (default: 250ms)
	BaseDelay time.Duration

	// MaxConcurrency caps the in-flight pool; the live ceiling adapts
	// between 1 and this value (default: 4)
	MaxConcurrency int

	// MaxRetries is the per-prefix retry budget for rate-limited requests
	// (default: 3)
	MaxRetries int

	// BackoffBase and BackoffCap bound the exponential rate-limit backoff:
	// wait = min(BackoffCap, BackoffBase * 2^attempt)
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// Seeds are the initial frontier prefixes (default: every letter a-z)
	Seeds []string

	// EnableHeuristics turns pattern scoring and zero-score skipping on.
	// When false every queued prefix scores a flat 3 (default: true)
	EnableHeuristics bool

	// MaxDepth caps the prefix length below which children are derived
	// (default: 4)
	MaxDepth int

	// BranchFactor is the number of child extensions enqueued per
	// productive prefix (default: 6)
	BranchFactor int

	// ShallowThreshold is the prefix length at or below which an empty
	// result still enqueues the curated common letters (default: 2)
	ShallowThreshold int

	// PollInterval is the dispatch loop tick (default: 50ms)
	PollInterval time.Duration

	// SocketPath is the control socket for a foreground run
	// (default: /tmp/namescout.sock)
	SocketPath string
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	seeds := make([]string, 0, len(types.Alphabet))
	for _, r := range types.Alphabet {
		seeds = append(seeds, string(r))
	}
	return &Config{
		RequestTimeout:   10 * time.Second,
		BaseDelay:        250 * time.Millisecond,
		MaxConcurrency:   4,
		MaxRetries:       3,
		BackoffBase:      500 * time.Millisecond,
		BackoffCap:       8 * time.Second,
		Seeds:            seeds,
		EnableHeuristics: true,
		MaxDepth:         4,
		BranchFactor:     6,
		ShallowThreshold: 2,
		PollInterval:     50 * time.Millisecond,
		SocketPath:       "/tmp/namescout.sock",
	}
}

// fileConfig is the yaml representation. Durations are plain milliseconds so
// config files stay trivially editable; pointer fields distinguish "absent"
// from zero.
type fileConfig struct {
	Endpoint           *string  `yaml:"endpoint"`
	Simulate           *bool    `yaml:"simulate"`
	DegradedSimulation *bool    `yaml:"degraded_simulation"`
	RequestTimeoutMS   *int     `yaml:"request_timeout_ms"`
	BaseDelayMS        *int     `yaml:"base_delay_ms"`
	MaxConcurrency     *int     `yaml:"max_concurrency"`
	MaxRetries         *int     `yaml:"max_retries"`
	BackoffBaseMS      *int     `yaml:"backoff_base_ms"`
	BackoffCapMS       *int     `yaml:"backoff_cap_ms"`
	Seeds              []string `yaml:"seeds"`
	EnableHeuristics   *bool    `yaml:"enable_heuristics"`
	MaxDepth           *int     `yaml:"max_depth"`
	BranchFactor       *int     `yaml:"branch_factor"`
	ShallowThreshold   *int     `yaml:"shallow_threshold"`
	PollIntervalMS     *int     `yaml:"poll_interval_ms"`
	SocketPath         *string  `yaml:"socket_path"`
}

// Load reads a yaml config file and applies it over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays settings from a yaml file onto c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Endpoint != nil {
		c.Endpoint = *fc.Endpoint
	}
	if fc.Simulate != nil {
		c.Simulate = *fc.Simulate
	}
	if fc.DegradedSimulation != nil {
		c.DegradedSimulation = *fc.DegradedSimulation
	}
	if fc.RequestTimeoutMS != nil {
		c.RequestTimeout = time.Duration(*fc.RequestTimeoutMS) * time.Millisecond
	}
	if fc.BaseDelayMS != nil {
		c.BaseDelay = time.Duration(*fc.BaseDelayMS) * time.Millisecond
	}
	if fc.MaxConcurrency != nil {
		c.MaxConcurrency = *fc.MaxConcurrency
	}
	if fc.MaxRetries != nil {
		c.MaxRetries = *fc.MaxRetries
	}
	if fc.BackoffBaseMS != nil {
		c.BackoffBase = time.Duration(*fc.BackoffBaseMS) * time.Millisecond
	}
	if fc.BackoffCapMS != nil {
		c.BackoffCap = time.Duration(*fc.BackoffCapMS) * time.Millisecond
	}
	if len(fc.Seeds) > 0 {
		c.Seeds = fc.Seeds
	}
	if fc.EnableHeuristics != nil {
		c.EnableHeuristics = *fc.EnableHeuristics
	}
	if fc.MaxDepth != nil {
		c.MaxDepth = *fc.MaxDepth
	}
	if fc.BranchFactor != nil {
		c.BranchFactor = *fc.BranchFactor
	}
	if fc.ShallowThreshold != nil {
		c.ShallowThreshold = *fc.ShallowThreshold
	}
	if fc.PollIntervalMS != nil {
		c.PollInterval = time.Duration(*fc.PollIntervalMS) * time.Millisecond
	}
	if fc.SocketPath != nil {
		c.SocketPath = *fc.SocketPath
	}

	return nil
}

// ApplyEnv overlays NAMESCOUT_* environment variables onto c.
// Invalid values are ignored in favor of the existing setting.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NAMESCOUT_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("NAMESCOUT_SIMULATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Simulate = b
		}
	}
	if v := os.Getenv("NAMESCOUT_DEGRADED_SIMULATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DegradedSimulation = b
		}
	}
	if v := os.Getenv("NAMESCOUT_BASE_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.BaseDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("NAMESCOUT_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrency = n
		}
	}
	if v := os.Getenv("NAMESCOUT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("NAMESCOUT_SEEDS"); v != "" {
		seeds := []string{}
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				seeds = append(seeds, s)
			}
		}
		if len(seeds) > 0 {
			c.Seeds = seeds
		}
	}
	if v := os.Getenv("NAMESCOUT_HEURISTICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnableHeuristics = b
		}
	}
	if v := os.Getenv("NAMESCOUT_SOCKET"); v != "" {
		c.SocketPath = v
	}
}

// Validate checks the configuration for usable values
func (c *Config) Validate() error {
	if c.Endpoint == "" && !c.Simulate {
		return fmt.Errorf("endpoint is required unless simulate is enabled")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %v)", c.RequestTimeout)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("base_delay cannot be negative (got %v)", c.BaseDelay)
	}
	if c.MaxConcurrency < 1 || c.MaxConcurrency > 64 {
		return fmt.Errorf("max_concurrency must be between 1 and 64 (got %d)", c.MaxConcurrency)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10 (got %d)", c.MaxRetries)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base must be positive (got %v)", c.BackoffBase)
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("backoff_cap (%v) must be >= backoff_base (%v)", c.BackoffCap, c.BackoffBase)
	}
	if len(c.Seeds) == 0 {
		return fmt.Errorf("at least one seed prefix is required")
	}
	for _, s := range c.Seeds {
		if !types.ValidPrefix(s) {
			return fmt.Errorf("invalid seed prefix %q (must be lowercase a-z)", s)
		}
	}
	if c.MaxDepth < 1 || c.MaxDepth > 10 {
		return fmt.Errorf("max_depth must be between 1 and 10 (got %d)", c.MaxDepth)
	}
	if c.BranchFactor < 1 || c.BranchFactor > len(types.Alphabet) {
		return fmt.Errorf("branch_factor must be between 1 and %d (got %d)", len(types.Alphabet), c.BranchFactor)
	}
	if c.ShallowThreshold < 0 {
		return fmt.Errorf("shallow_threshold cannot be negative (got %d)", c.ShallowThreshold)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive (got %v)", c.PollInterval)
	}
	return nil
}
