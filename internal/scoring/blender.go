// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"sort"
)

// Blender combines content-based and collaborative score lists into a
// single ranking.
//
// Each input list is min-max normalized independently before weighting,
// so neither recommender dominates through raw score scale. When the
// collaborative list came from the cold-start fallback its weight is
// dampened and the weights are renormalized to sum to 1.0.
type Blender struct {
	weights        BlendWeights
	dampening      float64
	dedupPurchased bool
}

// NewBlender creates a blender with the given configuration.
func NewBlender(weights BlendWeights, cfg BlenderConfig) *Blender {
	if cfg.ColdStartDampening <= 0 || cfg.ColdStartDampening > 1 {
		cfg.ColdStartDampening = 0.5
	}

	return &Blender{
		weights:        weights.Normalize(),
		dampening:      cfg.ColdStartDampening,
		dedupPurchased: cfg.DedupPurchased,
	}
}

// Blend merges the two score lists into a ranked, truncated result.
// Items missing from one list contribute zero from that list. Both lists
// empty yields an empty (valid) result.
//
// purchased lists items to drop from the final ranking when dedup is
// enabled; coldStart dampens the collaborative contribution.
func (b *Blender) Blend(content, collaborative map[int64]float64, coldStart bool, purchased map[int64]struct{}, k int) []ScoredItem {
	wContent := b.weights.Content
	wCollab := b.weights.Collaborative

	if coldStart {
		wCollab *= b.dampening
		if sum := wContent + wCollab; sum > 0 {
			wContent /= sum
			wCollab /= sum
		}
	}

	content = normalizeScores(copyScores(content))
	collaborative = normalizeScores(copyScores(collaborative))

	combined := make(map[int64]float64, len(content)+len(collaborative))
	for id, score := range content {
		combined[id] += wContent * score
	}
	for id, score := range collaborative {
		combined[id] += wCollab * score
	}

	if b.dedupPurchased {
		for id := range purchased {
			delete(combined, id)
		}
	}

	return rankScores(combined, k)
}

// rankScores converts a score map into a ranked, truncated slice.
// Ordering is strictly descending by score with ties broken by
// ascending item ID, so equal inputs always produce equal output.
func rankScores(scores map[int64]float64, k int) []ScoredItem {
	items := make([]ScoredItem, 0, len(scores))
	for id, score := range scores {
		items = append(items, ScoredItem{ItemID: id, Score: score})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})

	if k > 0 && len(items) > k {
		items = items[:k]
	}

	return items
}

// copyScores returns a shallow copy so normalization never mutates the
// caller's map.
func copyScores(scores map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(scores))
	for id, score := range scores {
		out[id] = score
	}
	return out
}
