// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"github.com/affinitylabs/affinity/internal/model"
)

// MeanVectorPolicy supplies a proxy affinity vector for users with no
// interaction history: the element-wise mean of all candidate feature
// vectors. Scoring against it degrades gracefully to a centroid ranking
// instead of failing the request.
type MeanVectorPolicy struct{}

// Vector computes the mean feature vector over the given items.
// Returns nil when no item has a non-empty vector.
func (MeanVectorPolicy) Vector(features map[int64]ItemFeatures) []float64 {
	var mean []float64
	count := 0

	for _, f := range features {
		if len(f.Vector) == 0 {
			continue
		}
		if mean == nil {
			mean = make([]float64, len(f.Vector))
		}
		if len(f.Vector) != len(mean) {
			continue
		}
		for i, v := range f.Vector {
			mean[i] += v
		}
		count++
	}

	if count == 0 {
		return nil
	}

	for i := range mean {
		mean[i] /= float64(count)
	}
	return mean
}

// PopularityPolicy ranks candidates by the global popularity table from
// the factor snapshot. It serves users unknown to the latent-factor
// model; results produced through it are flagged cold-start so the
// blender can dampen their contribution.
type PopularityPolicy struct{}

// Scores returns normalized popularity scores for the candidates.
// Candidates absent from the popularity table are skipped.
func (PopularityPolicy) Scores(snapshot *model.FactorSnapshot, candidates []int64) map[int64]float64 {
	if snapshot == nil || len(snapshot.Popularity) == 0 {
		return map[int64]float64{}
	}

	scores := make(map[int64]float64, len(candidates))
	for _, id := range candidates {
		if pop, ok := snapshot.Popularity[id]; ok {
			scores[id] = pop
		}
	}

	return normalizeScores(scores)
}
