// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"context"

	"github.com/affinitylabs/affinity/internal/model"
)

// CollaborativeRecommender scores candidates by the dot product of the
// user's latent-factor vector and each item's factor vector, read from
// the published snapshot. Model fitting happens offline; this path is
// inference only.
//
// Users unknown to the snapshot are served from the popularity fallback
// and the result is flagged cold-start.
type CollaborativeRecommender struct {
	holder   *model.FactorHolder
	fallback PopularityPolicy
}

// NewCollaborativeRecommender creates a collaborative recommender over
// the given snapshot holder.
func NewCollaborativeRecommender(holder *model.FactorHolder) *CollaborativeRecommender {
	return &CollaborativeRecommender{holder: holder}
}

// Score returns collaborative scores for the candidate items.
// Scores are min-max normalized to [0, 1]. The second return value is
// true when the popularity fallback served the request.
//
// Returns InsufficientDataError when the candidate set is empty and
// ModelNotLoadedError when no snapshot is published.
func (r *CollaborativeRecommender) Score(ctx context.Context, userID int64, candidates []int64) (map[int64]float64, bool, error) {
	if len(candidates) == 0 {
		return nil, false, &InsufficientDataError{Reason: "no candidate items"}
	}

	snapshot := r.holder.Load()
	if snapshot == nil {
		return nil, false, &model.ModelNotLoadedError{Model: model.ArtifactFactors}
	}

	userVec, ok := snapshot.Users[userID]
	if !ok || len(userVec) == 0 {
		return r.fallback.Scores(snapshot, candidates), true, nil
	}

	scores := make(map[int64]float64, len(candidates))
	for _, itemID := range candidates {
		if contextCancelled(ctx) {
			return nil, false, ctx.Err()
		}

		itemVec, ok := snapshot.Items[itemID]
		if !ok || len(itemVec) != len(userVec) {
			continue
		}

		var dot float64
		for f := range userVec {
			dot += userVec[f] * itemVec[f]
		}
		scores[itemID] = dot
	}

	if len(scores) == 0 {
		// The user is known but none of the candidates are. Popularity
		// is the only signal left.
		return r.fallback.Scores(snapshot, candidates), true, nil
	}

	return normalizeScores(scores), false, nil
}

// SnapshotVersion returns the published snapshot version, or empty when
// no snapshot is loaded.
func (r *CollaborativeRecommender) SnapshotVersion() string {
	if snapshot := r.holder.Load(); snapshot != nil {
		return snapshot.Version
	}
	return ""
}
