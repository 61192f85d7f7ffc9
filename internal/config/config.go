// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the dispatch core.
// It handles loading and parsing YAML configuration files, runtime partial
// updates, and structured access to dispatcher tunables such as retry
// limits, timeouts, the confidence threshold, and cache sizing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the process-wide runtime tunables. All duration fields
// are expressed in seconds so the same shape serves the YAML file, the
// partial-update API, and the Python-era callers that expect
// `timeout_seconds`-style keys.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether logs go to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"-"`

	// MaxRetries is the number of retries after the first primary attempt.
	// A query makes at most MaxRetries+1 primary attempts.
	MaxRetries int `yaml:"max-retries" json:"max_retries"`

	// TimeoutSeconds bounds each primary tool attempt.
	TimeoutSeconds float64 `yaml:"timeout-seconds" json:"timeout_seconds"`

	// FallbackTimeoutSeconds bounds the single fallback execution. The
	// fallback path is more general-purpose and slower, so it gets its own
	// budget.
	FallbackTimeoutSeconds float64 `yaml:"fallback-timeout-seconds" json:"fallback_timeout_seconds"`

	// ConfidenceThreshold is the minimum top-candidate confidence required
	// to attempt primary execution instead of going straight to fallback.
	ConfidenceThreshold float64 `yaml:"confidence-threshold" json:"confidence_threshold"`

	// CacheSize caps the number of entries in the execution cache.
	CacheSize int `yaml:"cache-size" json:"cache_size"`

	// CacheTTLSeconds is the ttl for cached classification results. Short,
	// since query text rarely repeats verbatim across sessions.
	CacheTTLSeconds float64 `yaml:"cache-ttl" json:"cache_ttl"`

	// ContextTTLSeconds is the ttl for cached execution contexts. Longer,
	// since contexts are expensive to build and stable.
	ContextTTLSeconds float64 `yaml:"context-ttl" json:"context_ttl"`

	// EnableFallback controls whether the fallback path runs when the
	// primary tool fails or no tool scores above the threshold.
	EnableFallback bool `yaml:"enable-fallback" json:"enable_fallback"`

	// ForceFallback unconditionally routes every query to the fallback
	// path, bypassing primary execution entirely.
	ForceFallback bool `yaml:"force-fallback" json:"force_fallback"`

	// BackoffBaseSeconds is the base delay for exponential retry backoff;
	// the delay before retry n is base * 2^(n-1).
	BackoffBaseSeconds float64 `yaml:"backoff-base" json:"backoff_base"`

	// MaxBackoffSeconds caps the backoff delay.
	MaxBackoffSeconds float64 `yaml:"max-backoff" json:"max_backoff"`

	// MinQueryLength and MaxQueryLength bound accepted query text.
	MinQueryLength int `yaml:"min-query-length" json:"min_query_length"`
	MaxQueryLength int `yaml:"max-query-length" json:"max_query_length"`

	// MinResponseLength is the minimum trimmed response length treated as
	// meaningful output; anything shorter counts as a failed attempt.
	MinResponseLength int `yaml:"min-response-length" json:"min_response_length"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Host:                   "127.0.0.1",
		Port:                   8317,
		MaxRetries:             3,
		TimeoutSeconds:         30,
		FallbackTimeoutSeconds: 45,
		ConfidenceThreshold:    0.7,
		CacheSize:              128,
		CacheTTLSeconds:        60,
		ContextTTLSeconds:      300,
		EnableFallback:         true,
		BackoffBaseSeconds:     1,
		MaxBackoffSeconds:      30,
		MinQueryLength:         1,
		MaxQueryLength:         1000,
		MinResponseLength:      10,
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: timeout_seconds must be > 0, got %v", c.TimeoutSeconds)
	}
	if c.FallbackTimeoutSeconds <= 0 {
		return fmt.Errorf("config: fallback_timeout_seconds must be > 0, got %v", c.FallbackTimeoutSeconds)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be > 0, got %d", c.CacheSize)
	}
	if c.CacheTTLSeconds <= 0 || c.ContextTTLSeconds <= 0 {
		return fmt.Errorf("config: cache ttls must be > 0")
	}
	if c.BackoffBaseSeconds < 0 || c.MaxBackoffSeconds < c.BackoffBaseSeconds {
		return fmt.Errorf("config: backoff bounds invalid (base %v, max %v)", c.BackoffBaseSeconds, c.MaxBackoffSeconds)
	}
	if c.MinQueryLength < 1 || c.MaxQueryLength < c.MinQueryLength {
		return fmt.Errorf("config: query length bounds invalid (min %d, max %d)", c.MinQueryLength, c.MaxQueryLength)
	}
	if c.MinResponseLength < 0 {
		return fmt.Errorf("config: min_response_length must be >= 0, got %d", c.MinResponseLength)
	}
	return nil
}

// Timeout returns the per-attempt primary execution bound.
func (c Config) Timeout() time.Duration { return secondsToDuration(c.TimeoutSeconds) }

// FallbackTimeout returns the fallback execution bound.
func (c Config) FallbackTimeout() time.Duration { return secondsToDuration(c.FallbackTimeoutSeconds) }

// CacheTTL returns the classification cache ttl.
func (c Config) CacheTTL() time.Duration { return secondsToDuration(c.CacheTTLSeconds) }

// ContextTTL returns the execution-context cache ttl.
func (c Config) ContextTTL() time.Duration { return secondsToDuration(c.ContextTTLSeconds) }

// BackoffBase returns the base retry delay.
func (c Config) BackoffBase() time.Duration { return secondsToDuration(c.BackoffBaseSeconds) }

// MaxBackoff returns the backoff delay cap.
func (c Config) MaxBackoff() time.Duration { return secondsToDuration(c.MaxBackoffSeconds) }

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
