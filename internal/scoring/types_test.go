// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"testing"
)

func TestInteractionTypeWeight(t *testing.T) {
	tests := []struct {
		name string
		typ  InteractionType
		want float64
	}{
		{"purchase", InteractionPurchase, 1.0},
		{"like", InteractionLike, 0.6},
		{"view", InteractionView, 0.25},
		{"dismiss", InteractionDismiss, -0.5},
		{"unknown", InteractionType(99), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Weight(); got != tt.want {
				t.Errorf("Weight() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestParseInteractionType(t *testing.T) {
	tests := []struct {
		input  string
		want   InteractionType
		wantOK bool
	}{
		{"view", InteractionView, true},
		{"like", InteractionLike, true},
		{"purchase", InteractionPurchase, true},
		{"dismiss", InteractionDismiss, true},
		{"click", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInteractionType(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseInteractionType(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseInteractionType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEffectiveWeight(t *testing.T) {
	explicit := Interaction{Type: InteractionView, Weight: 0.8}
	if got := explicit.EffectiveWeight(); got != 0.8 {
		t.Errorf("explicit weight: got %f, want 0.8", got)
	}

	derived := Interaction{Type: InteractionLike}
	if got := derived.EffectiveWeight(); got != 0.6 {
		t.Errorf("derived weight: got %f, want 0.6", got)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input  string
		want   Strategy
		wantOK bool
	}{
		{"hybrid", StrategyHybrid, true},
		{"content", StrategyContent, true},
		{"collaborative", StrategyCollaborative, true},
		{"", StrategyHybrid, true},
		{"magic", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStrategy(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseStrategy(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBlendWeightsNormalize(t *testing.T) {
	tests := []struct {
		name    string
		weights BlendWeights
		want    BlendWeights
	}{
		{
			name:    "already normalized",
			weights: BlendWeights{Content: 0.5, Collaborative: 0.5},
			want:    BlendWeights{Content: 0.5, Collaborative: 0.5},
		},
		{
			name:    "scaled weights",
			weights: BlendWeights{Content: 2.0, Collaborative: 6.0},
			want:    BlendWeights{Content: 0.25, Collaborative: 0.75},
		},
		{
			name:    "zero weights get equal split",
			weights: BlendWeights{},
			want:    BlendWeights{Content: 0.5, Collaborative: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.weights.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"negative weight", func(c *Config) { c.Weights.Content = -1 }, true},
		{"negative decay rate", func(c *Config) { c.Content.DecayRate = -0.1 }, true},
		{"dampening above one", func(c *Config) { c.Blender.ColdStartDampening = 1.5 }, true},
		{"zero default k", func(c *Config) { c.Limits.DefaultK = 0 }, true},
		{"max k below default", func(c *Config) { c.Limits.MaxK = 5 }, true},
		{"zero store timeout", func(c *Config) { c.Limits.StoreTimeout = 0 }, true},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"bust threshold above one", func(c *Config) { c.Cache.BustWeightThreshold = 1.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
