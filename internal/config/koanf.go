// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with production defaults. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8200,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Backend:     "memory",
			Addr:        "localhost:6379",
			DB:          0,
			Timeout:     2 * time.Second,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Models: ModelsConfig{
			Dir:          "/data/models",
			KeepVersions: 3,
		},
		Scoring: ScoringConfig{
			ContentWeight:       0.5,
			CollaborativeWeight: 0.5,
			DecayRate:           0.05,
			ColdStartDampening:  0.5,
			DedupPurchased:      true,
			MaxCandidates:       1000,
			DefaultK:            20,
			MaxK:                100,
			CacheEnabled:        true,
			CacheTTL:            5 * time.Minute,
			CacheMaxEntries:     10000,
			BustWeightThreshold: 0.9,
		},
	}
}

// Load loads configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as env var strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice from the YAML file.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to config paths.
// Unknown variables are ignored so unrelated environment noise never
// lands in the configuration.
var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_reqs":     "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"rate_limit_disabled": "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"store_backend":      "store.backend",
	"redis_addr":         "store.addr",
	"redis_password":     "store.password",
	"redis_db":           "store.db",
	"store_timeout":      "store.timeout",
	"store_max_failures": "store.max_failures",
	"store_open_timeout": "store.open_timeout",

	"models_dir":           "models.dir",
	"models_keep_versions": "models.keep_versions",

	"content_weight":        "scoring.content_weight",
	"collaborative_weight":  "scoring.collaborative_weight",
	"decay_rate":            "scoring.decay_rate",
	"cold_start_dampening":  "scoring.cold_start_dampening",
	"dedup_purchased":       "scoring.dedup_purchased",
	"max_candidates":        "scoring.max_candidates",
	"default_k":             "scoring.default_k",
	"max_k":                 "scoring.max_k",
	"cache_enabled":         "scoring.cache_enabled",
	"cache_ttl":             "scoring.cache_ttl",
	"cache_max_entries":     "scoring.cache_max_entries",
	"bust_weight_threshold": "scoring.bust_weight_threshold",
}

// envTransformFunc maps environment variable names to koanf paths.
// Examples:
//   - HTTP_PORT -> server.port
//   - REDIS_ADDR -> store.addr
//   - CACHE_TTL -> scoring.cache_ttl
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
