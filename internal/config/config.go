// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package config loads and validates service configuration from
// defaults, an optional YAML file, and environment variables, with
// environment variables taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/affinitylabs/affinity/internal/scoring"
	"github.com/affinitylabs/affinity/internal/store"
)

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" json:"server"`
	Logging LoggingConfig `koanf:"logging" json:"logging"`
	Store   StoreConfig   `koanf:"store" json:"store"`
	Models  ModelsConfig  `koanf:"models" json:"models"`
	Scoring ScoringConfig `koanf:"scoring" json:"scoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	// Default: "0.0.0.0".
	Host string `koanf:"host" json:"host"`

	// Port is the listen port.
	// Default: 8200.
	Port int `koanf:"port" json:"port"`

	// Timeout is the request read/write timeout.
	// Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	// Default: ["*"].
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`

	// RateLimitReqs is the allowed requests per window per IP.
	// Default: 100.
	RateLimitReqs int `koanf:"rate_limit_reqs" json:"rate_limit_reqs"`

	// RateLimitWindow is the rate limiting window.
	// Default: 1m.
	RateLimitWindow time.Duration `koanf:"rate_limit_window" json:"rate_limit_window"`

	// RateLimitDisabled turns off rate limiting entirely.
	// Default: false.
	RateLimitDisabled bool `koanf:"rate_limit_disabled" json:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	// Default: "info".
	Level string `koanf:"level" json:"level"`

	// Format is the output format ("json" or "console").
	// Default: "json".
	Format string `koanf:"format" json:"format"`

	// Caller includes the caller file and line in log entries.
	// Default: false.
	Caller bool `koanf:"caller" json:"caller"`
}

// StoreConfig holds interaction store settings.
type StoreConfig struct {
	// Backend selects the store implementation ("memory" or "redis").
	// Default: "memory".
	Backend string `koanf:"backend" json:"backend"`

	// Addr is the Redis server address, used when Backend is "redis".
	// Default: "localhost:6379".
	Addr string `koanf:"addr" json:"addr"`

	// Password is the Redis password, empty for no auth.
	Password string `koanf:"password" json:"-"`

	// DB is the Redis database number.
	// Default: 0.
	DB int `koanf:"db" json:"db"`

	// Timeout is the per-call deadline for store reads.
	// Default: 2s.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// MaxFailures is the consecutive failure count that opens the
	// circuit breaker.
	// Default: 5.
	MaxFailures uint32 `koanf:"max_failures" json:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout"`
}

// RedisConfig converts the store settings to a Redis client config.
func (c StoreConfig) RedisConfig() store.RedisConfig {
	return store.RedisConfig{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

// ResilientConfig converts the store settings to timeout and breaker
// settings.
func (c StoreConfig) ResilientConfig() store.ResilientConfig {
	return store.ResilientConfig{
		Timeout:     c.Timeout,
		MaxFailures: c.MaxFailures,
		OpenTimeout: c.OpenTimeout,
	}
}

// ModelsConfig holds model artifact settings.
type ModelsConfig struct {
	// Dir is the directory holding model artifacts and the manifest.
	// Default: "/data/models".
	Dir string `koanf:"dir" json:"dir"`

	// KeepVersions is how many artifact file versions to retain when
	// pruning.
	// Default: 3.
	KeepVersions int `koanf:"keep_versions" json:"keep_versions"`
}

// ScoringConfig holds recommendation engine settings. It mirrors the
// engine configuration in a flat shape suitable for environment
// variable overrides.
type ScoringConfig struct {
	// ContentWeight is the hybrid blend weight for the content path.
	// Default: 0.5.
	ContentWeight float64 `koanf:"content_weight" json:"content_weight"`

	// CollaborativeWeight is the hybrid blend weight for the
	// collaborative path.
	// Default: 0.5.
	CollaborativeWeight float64 `koanf:"collaborative_weight" json:"collaborative_weight"`

	// DecayRate is the recency decay constant per day.
	// Default: 0.05.
	DecayRate float64 `koanf:"decay_rate" json:"decay_rate"`

	// ColdStartDampening scales the collaborative weight on cold start.
	// Default: 0.5.
	ColdStartDampening float64 `koanf:"cold_start_dampening" json:"cold_start_dampening"`

	// DedupPurchased removes purchased items from recommendations.
	// Default: true.
	DedupPurchased bool `koanf:"dedup_purchased" json:"dedup_purchased"`

	// MaxCandidates caps the candidate set size.
	// Default: 1000.
	MaxCandidates int `koanf:"max_candidates" json:"max_candidates"`

	// DefaultK is the default recommendation list length.
	// Default: 20.
	DefaultK int `koanf:"default_k" json:"default_k"`

	// MaxK caps the recommendation list length.
	// Default: 100.
	MaxK int `koanf:"max_k" json:"max_k"`

	// CacheEnabled turns the recommendation cache on.
	// Default: true.
	CacheEnabled bool `koanf:"cache_enabled" json:"cache_enabled"`

	// CacheTTL is the cache entry time-to-live.
	// Default: 5m.
	CacheTTL time.Duration `koanf:"cache_ttl" json:"cache_ttl"`

	// CacheMaxEntries caps the cache size.
	// Default: 10000.
	CacheMaxEntries int `koanf:"cache_max_entries" json:"cache_max_entries"`

	// BustWeightThreshold is the interaction weight that invalidates a
	// user's cached recommendations.
	// Default: 0.9.
	BustWeightThreshold float64 `koanf:"bust_weight_threshold" json:"bust_weight_threshold"`
}

// EngineConfig converts the flat settings into the engine configuration.
func (c ScoringConfig) EngineConfig(storeTimeout time.Duration) *scoring.Config {
	return &scoring.Config{
		Weights: scoring.BlendWeights{
			Content:       c.ContentWeight,
			Collaborative: c.CollaborativeWeight,
		},
		Content: scoring.ContentConfig{
			DecayRate: c.DecayRate,
		},
		Blender: scoring.BlenderConfig{
			ColdStartDampening: c.ColdStartDampening,
			DedupPurchased:     c.DedupPurchased,
		},
		Limits: scoring.LimitsConfig{
			MaxCandidates: c.MaxCandidates,
			DefaultK:      c.DefaultK,
			MaxK:          c.MaxK,
			StoreTimeout:  storeTimeout,
		},
		Cache: scoring.CacheConfig{
			Enabled:             c.CacheEnabled,
			TTL:                 c.CacheTTL,
			MaxEntries:          c.CacheMaxEntries,
			BustWeightThreshold: c.BustWeightThreshold,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("server.rate_limit_reqs must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("server.rate_limit_window must be positive, got %v", c.Server.RateLimitWindow)
		}
	}

	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("store.backend must be \"memory\" or \"redis\", got %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.Addr == "" {
		return fmt.Errorf("store.addr is required for the redis backend")
	}

	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}

	// The engine validates the scoring section in depth.
	if err := c.Scoring.EngineConfig(c.Store.Timeout).Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	return nil
}
