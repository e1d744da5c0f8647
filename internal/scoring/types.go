// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package scoring implements the recommendation core: content-based and
// collaborative recommenders, the hybrid blender, and the serving engine.
package scoring

import (
	"time"
)

// InteractionType classifies user-item interaction events.
type InteractionType int

const (
	// InteractionView indicates the user viewed an item.
	InteractionView InteractionType = iota
	// InteractionLike indicates the user liked an item.
	InteractionLike
	// InteractionPurchase indicates the user purchased an item.
	InteractionPurchase
	// InteractionDismiss indicates the user dismissed an item.
	InteractionDismiss
)

// String returns a human-readable name for the interaction type.
func (t InteractionType) String() string {
	switch t {
	case InteractionView:
		return "view"
	case InteractionLike:
		return "like"
	case InteractionPurchase:
		return "purchase"
	case InteractionDismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

// Weight returns the preference weight for this interaction type.
// Positive values indicate affinity, negative values aversion.
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionPurchase:
		return 1.0
	case InteractionLike:
		return 0.6
	case InteractionView:
		return 0.25
	case InteractionDismiss:
		return -0.5
	default:
		return 0.0
	}
}

// ParseInteractionType converts a string to an InteractionType.
// Returns false if the string is not a known type.
func ParseInteractionType(s string) (InteractionType, bool) {
	switch s {
	case "view":
		return InteractionView, true
	case "like":
		return InteractionLike, true
	case "purchase":
		return InteractionPurchase, true
	case "dismiss":
		return InteractionDismiss, true
	default:
		return 0, false
	}
}

// Interaction represents a single user-item interaction event.
// Events are append-only; the service consumes them read-only.
type Interaction struct {
	// UserID is the internal user identifier.
	UserID int64 `json:"user_id"`

	// ItemID is the catalog item identifier.
	ItemID int64 `json:"item_id"`

	// Type classifies the interaction.
	Type InteractionType `json:"type"`

	// Weight is the preference weight. If zero it is derived from Type.
	Weight float64 `json:"weight"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`
}

// EffectiveWeight returns the interaction weight, deriving it from the
// type when no explicit weight was recorded.
func (i Interaction) EffectiveWeight() float64 {
	if i.Weight != 0 {
		return i.Weight
	}
	return i.Type.Weight()
}

// ItemFeatures holds the dense feature vector for a catalog item.
type ItemFeatures struct {
	// ItemID is the catalog item identifier.
	ItemID int64 `json:"item_id"`

	// Vector is the dense feature representation.
	Vector []float64 `json:"vector"`

	// Tags are optional descriptive labels.
	Tags []string `json:"tags,omitempty"`
}

// ScoredItem pairs an item with its recommendation score.
type ScoredItem struct {
	// ItemID is the catalog item identifier.
	ItemID int64 `json:"item_id"`

	// Score is the recommendation score. Within a ranked list scores are
	// strictly descending; ties are broken by ascending item ID.
	Score float64 `json:"score"`
}

// Strategy selects which recommender path serves a request.
type Strategy int

const (
	// StrategyHybrid blends content-based and collaborative scores.
	StrategyHybrid Strategy = iota
	// StrategyContent uses only the content-based recommender.
	StrategyContent
	// StrategyCollaborative uses only the collaborative recommender.
	StrategyCollaborative
)

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyHybrid:
		return "hybrid"
	case StrategyContent:
		return "content"
	case StrategyCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a wire name to a Strategy.
// Returns false for unknown names.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "hybrid", "":
		return StrategyHybrid, true
	case "content":
		return StrategyContent, true
	case "collaborative":
		return StrategyCollaborative, true
	default:
		return 0, false
	}
}

// Request represents a recommendation request.
type Request struct {
	// UserID is the user to generate recommendations for.
	UserID int64 `json:"user_id"`

	// K is the number of recommendations to return.
	// Defaults to Config.Limits.DefaultK if zero.
	K int `json:"k,omitempty"`

	// Strategy selects the recommender path. Defaults to hybrid.
	Strategy Strategy `json:"strategy,omitempty"`

	// Context carries optional request context used for cache keying.
	Context map[string]string `json:"context,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response represents a recommendation response.
type Response struct {
	// Items is the ordered list of recommended items.
	Items []ScoredItem `json:"items"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// UserID is the user the recommendations are for.
	UserID int64 `json:"user_id"`

	// Strategy is the recommender path used.
	Strategy string `json:"strategy"`

	// ColdStart indicates the collaborative path fell back to popularity.
	ColdStart bool `json:"cold_start"`

	// CacheHit indicates whether the result was served from cache.
	CacheHit bool `json:"cache_hit"`

	// SnapshotVersion is the model snapshot version used.
	SnapshotVersion string `json:"snapshot_version"`

	// LatencyMS is the total scoring latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}
