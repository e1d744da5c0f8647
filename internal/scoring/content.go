// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"context"
	"math"
	"time"
)

// ContentRecommender scores candidates by cosine similarity between the
// user's affinity vector and each item's feature vector.
//
// The affinity vector is the weighted sum of the feature vectors of items
// the user interacted with, where each interaction contributes
//
//	weight * exp(-decayRate * ageDays)
//
// so recent interactions dominate and dismissals subtract. Users with no
// usable history are served through the mean-vector fallback policy.
type ContentRecommender struct {
	decayRate float64
	fallback  MeanVectorPolicy
}

// NewContentRecommender creates a content-based recommender.
func NewContentRecommender(cfg ContentConfig) *ContentRecommender {
	if cfg.DecayRate <= 0 {
		cfg.DecayRate = 0.05
	}

	return &ContentRecommender{
		decayRate: cfg.DecayRate,
	}
}

// BuildAffinityVector computes the recency-decayed affinity vector for a
// user from their interactions. Interactions referencing items without
// feature vectors are skipped. Returns nil if nothing usable remains.
//
//nolint:gocritic // rangeValCopy: Interaction passed by value in range, acceptable for clarity
func (c *ContentRecommender) BuildAffinityVector(interactions []Interaction, features map[int64]ItemFeatures, now time.Time) []float64 {
	var affinity []float64

	for _, inter := range interactions {
		feat, ok := features[inter.ItemID]
		if !ok || len(feat.Vector) == 0 {
			continue
		}

		if affinity == nil {
			affinity = make([]float64, len(feat.Vector))
		}
		if len(feat.Vector) != len(affinity) {
			continue
		}

		ageDays := now.Sub(inter.Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		w := inter.EffectiveWeight() * math.Exp(-c.decayRate*ageDays)

		for i, v := range feat.Vector {
			affinity[i] += w * v
		}
	}

	return affinity
}

// Score returns content-based scores for the candidate items.
// Scores are min-max normalized to [0, 1].
//
// Returns InsufficientDataError when the candidate set is empty.
func (c *ContentRecommender) Score(ctx context.Context, interactions []Interaction, features map[int64]ItemFeatures, candidates []int64, now time.Time) (map[int64]float64, error) {
	if len(candidates) == 0 {
		return nil, &InsufficientDataError{Reason: "no candidate items"}
	}

	affinity := c.BuildAffinityVector(interactions, features, now)
	if affinity == nil {
		// No usable history. Score against the candidate centroid so
		// the request still gets a deterministic ranking.
		affinity = c.fallback.Vector(features)
	}
	if affinity == nil {
		// No feature vectors at all.
		return map[int64]float64{}, nil
	}

	scores := make(map[int64]float64, len(candidates))
	for _, id := range candidates {
		if contextCancelled(ctx) {
			return nil, ctx.Err()
		}

		feat, ok := features[id]
		if !ok || len(feat.Vector) == 0 {
			continue
		}

		scores[id] = cosineSimilarity(affinity, feat.Vector)
	}

	return normalizeScores(scores), nil
}
