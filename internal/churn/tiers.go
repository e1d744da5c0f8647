// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package churn

// RiskTier labels a churn probability band. Tiers are descriptive
// metadata attached to predictions; callers decide what to do with them.
type RiskTier string

const (
	// TierLow covers probabilities in [0, 0.3).
	TierLow RiskTier = "low"
	// TierMedium covers probabilities in [0.3, 0.7).
	TierMedium RiskTier = "medium"
	// TierHigh covers probabilities in [0.7, 1.0].
	TierHigh RiskTier = "high"
)

// Tier boundaries. Each tier covers [Min, Max), except the top tier
// which includes its upper bound.
const (
	mediumLowerBound = 0.3
	highLowerBound   = 0.7
)

// TierBoundary describes one risk tier band.
type TierBoundary struct {
	// Tier is the band label.
	Tier RiskTier `json:"tier"`

	// Min is the inclusive lower probability bound.
	Min float64 `json:"min"`

	// Max is the upper probability bound, exclusive except for the top
	// tier.
	Max float64 `json:"max"`
}

// TierBoundaries returns the risk tier table in ascending order.
func TierBoundaries() []TierBoundary {
	return []TierBoundary{
		{Tier: TierLow, Min: 0, Max: mediumLowerBound},
		{Tier: TierMedium, Min: mediumLowerBound, Max: highLowerBound},
		{Tier: TierHigh, Min: highLowerBound, Max: 1.0},
	}
}

// TierFor maps a churn probability to its risk tier.
func TierFor(probability float64) RiskTier {
	switch {
	case probability < mediumLowerBound:
		return TierLow
	case probability < highLowerBound:
		return TierMedium
	default:
		return TierHigh
	}
}
