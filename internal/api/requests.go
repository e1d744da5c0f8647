// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import "time"

// recommendRequest is the wire shape of POST /recommend.
type recommendRequest struct {
	// UserID is the user to generate recommendations for.
	UserID int64 `json:"user_id" validate:"required,gt=0"`

	// TopK is the number of recommendations to return. Zero means the
	// configured default.
	TopK int `json:"top_k" validate:"gte=0"`

	// Algorithm selects the recommender path. Empty means hybrid.
	Algorithm string `json:"algorithm" validate:"omitempty,oneof=hybrid content collaborative"`

	// Context carries optional request context used for cache keying.
	Context map[string]string `json:"context"`
}

// churnRequest is the wire shape of POST /churn-predict.
type churnRequest struct {
	// UserID is the user to score.
	UserID int64 `json:"user_id" validate:"required,gt=0"`

	// Features maps feature name to value. All features named by the
	// model manifest must be present.
	Features map[string]float64 `json:"features" validate:"required"`
}

// interactionRequest is the wire shape of POST /interactions.
// The service does not persist interactions; the event only drives
// cache maintenance.
type interactionRequest struct {
	// UserID is the user the interaction belongs to.
	UserID int64 `json:"user_id" validate:"required,gt=0"`

	// ItemID is the item interacted with.
	ItemID int64 `json:"item_id" validate:"required,gt=0"`

	// Type is the interaction type name (view, like, purchase, dismiss).
	Type string `json:"type" validate:"required"`
}

// recommendResponse is the wire shape of a successful recommendation.
type recommendResponse struct {
	// UserID is the user the recommendations are for.
	UserID int64 `json:"user_id"`

	// Algorithm is the recommender path that produced the list.
	Algorithm string `json:"algorithm"`

	// Recommendations is the ranked list of item IDs.
	Recommendations []int64 `json:"recommendations"`

	// RankedItems pairs each recommended item with its score.
	RankedItems []scoredItem `json:"ranked_items"`

	// ColdStart indicates the collaborative path fell back to
	// popularity ranking.
	ColdStart bool `json:"cold_start"`

	// CacheHit indicates the list was served from cache.
	CacheHit bool `json:"cache_hit"`

	// SnapshotVersion is the model snapshot the list was computed
	// against.
	SnapshotVersion string `json:"snapshot_version"`

	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// GeneratedAt is when the list was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// scoredItem is the wire shape of one ranked entry.
type scoredItem struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// interactionResponse acknowledges an interaction notification.
type interactionResponse struct {
	// Accepted is always true for a processed notification.
	Accepted bool `json:"accepted"`

	// CacheBusted indicates the user's cached recommendations were
	// invalidated by this interaction.
	CacheBusted bool `json:"cache_busted"`
}
