// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"fmt"
	"time"
)

// Config contains all configuration for the scoring engine.
type Config struct {
	// Weights defines the relative contribution of each recommender in
	// hybrid mode. Weights are normalized at runtime, so they don't need
	// to sum to 1.0.
	Weights BlendWeights `json:"weights"`

	// Content contains parameters for the content-based recommender.
	Content ContentConfig `json:"content"`

	// Blender contains parameters for hybrid blending.
	Blender BlenderConfig `json:"blender"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Cache contains recommendation cache parameters.
	Cache CacheConfig `json:"cache"`
}

// BlendWeights defines the relative contribution of each recommender.
type BlendWeights struct {
	// Content is the weight for the content-based recommender.
	Content float64 `json:"content"`

	// Collaborative is the weight for the collaborative recommender.
	Collaborative float64 `json:"collaborative"`
}

// Normalize returns a copy with weights normalized to sum to 1.0.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w BlendWeights) Normalize() BlendWeights {
	sum := w.Content + w.Collaborative
	if sum == 0 {
		return BlendWeights{Content: 0.5, Collaborative: 0.5}
	}

	return BlendWeights{
		Content:       w.Content / sum,
		Collaborative: w.Collaborative / sum,
	}
}

// ContentConfig contains parameters for the content-based recommender.
type ContentConfig struct {
	// DecayRate is the exponential recency decay constant per day.
	// An interaction aged d days contributes weight * exp(-DecayRate * d).
	// Default: 0.05 (half-life of roughly two weeks).
	DecayRate float64 `json:"decay_rate"`
}

// BlenderConfig contains parameters for hybrid blending.
type BlenderConfig struct {
	// ColdStartDampening scales the collaborative weight when the
	// collaborative path served the popularity fallback. The remaining
	// weights are renormalized to sum to 1.0.
	// Default: 0.5.
	ColdStartDampening float64 `json:"cold_start_dampening"`

	// DedupPurchased removes items the user already purchased from the
	// final ranking.
	// Default: true.
	DedupPurchased bool `json:"dedup_purchased"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxCandidates is the maximum number of candidate items to score.
	// Default: 1000.
	MaxCandidates int `json:"max_candidates"`

	// DefaultK is the default number of recommendations to return.
	// Default: 20.
	DefaultK int `json:"default_k"`

	// MaxK is the maximum allowed K value.
	// Default: 100.
	MaxK int `json:"max_k"`

	// StoreTimeout is the per-call deadline for interaction store reads.
	// Default: 2s.
	StoreTimeout time.Duration `json:"store_timeout"`
}

// CacheConfig contains recommendation cache parameters.
type CacheConfig struct {
	// Enabled controls whether caching is active.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached entries.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`

	// BustWeightThreshold is the minimum interaction weight that
	// invalidates a user's cached recommendations. A purchase (1.0)
	// always busts; a view (0.25) never does.
	// Default: 0.9.
	BustWeightThreshold float64 `json:"bust_weight_threshold"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: BlendWeights{
			Content:       0.5,
			Collaborative: 0.5,
		},
		Content: ContentConfig{
			DecayRate: 0.05,
		},
		Blender: BlenderConfig{
			ColdStartDampening: 0.5,
			DedupPurchased:     true,
		},
		Limits: LimitsConfig{
			MaxCandidates: 1000,
			DefaultK:      20,
			MaxK:          100,
			StoreTimeout:  2 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:             true,
			TTL:                 5 * time.Minute,
			MaxEntries:          10000,
			BustWeightThreshold: 0.9,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Weights.Content < 0 || c.Weights.Collaborative < 0 {
		return fmt.Errorf("weights must be non-negative, got content=%f collaborative=%f",
			c.Weights.Content, c.Weights.Collaborative)
	}

	if c.Content.DecayRate < 0 {
		return fmt.Errorf("content.decay_rate must be non-negative, got %f", c.Content.DecayRate)
	}

	if c.Blender.ColdStartDampening < 0 || c.Blender.ColdStartDampening > 1 {
		return fmt.Errorf("blender.cold_start_dampening must be in [0, 1], got %f", c.Blender.ColdStartDampening)
	}

	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be positive, got %d", c.Limits.MaxCandidates)
	}
	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("limits.default_k must be positive, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("limits.max_k must be >= limits.default_k, got %d < %d", c.Limits.MaxK, c.Limits.DefaultK)
	}
	if c.Limits.StoreTimeout <= 0 {
		return fmt.Errorf("limits.store_timeout must be positive, got %v", c.Limits.StoreTimeout)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.BustWeightThreshold < 0 || c.Cache.BustWeightThreshold > 1 {
		return fmt.Errorf("cache.bust_weight_threshold must be in [0, 1], got %f", c.Cache.BustWeightThreshold)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	return &Config{
		Weights: c.Weights,
		Content: c.Content,
		Blender: c.Blender,
		Limits:  c.Limits,
		Cache:   c.Cache,
	}
}
