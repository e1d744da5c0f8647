// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package model manages versioned model snapshots produced by the offline
// training pipeline. Snapshots are immutable once published; the serving
// path always reads a consistent snapshot through an atomic pointer that
// is swapped only at startup or on an explicit reload.
package model

import (
	"sync/atomic"
	"time"
)

// FactorSnapshot holds the latent-factor model used by the collaborative
// recommender, plus the popularity table used for cold-start fallback.
// A snapshot is never mutated after it is published.
type FactorSnapshot struct {
	// Version is the snapshot version label from the artifact manifest.
	Version string

	// TrainedAt is when the offline pipeline produced this snapshot.
	TrainedAt time.Time

	// Users maps user ID to latent factor vector.
	Users map[int64][]float64

	// Items maps item ID to latent factor vector.
	Items map[int64][]float64

	// Popularity maps item ID to a global popularity score.
	Popularity map[int64]float64
}

// Calibration holds Platt scaling parameters applied to the raw
// logistic output of the churn model.
type Calibration struct {
	// Slope is the calibration slope. Zero means uncalibrated (slope 1).
	Slope float64

	// Intercept is the calibration intercept.
	Intercept float64
}

// ChurnModel holds the logistic churn classifier.
// A model is never mutated after it is published.
type ChurnModel struct {
	// Version is the model version label from the artifact manifest.
	Version string

	// TrainedAt is when the offline pipeline produced this model.
	TrainedAt time.Time

	// RequiredFeatures lists feature names that must be present in every
	// prediction request.
	RequiredFeatures []string

	// Bias is the intercept term.
	Bias float64

	// Coefficients maps feature name to logistic coefficient.
	Coefficients map[string]float64

	// Calibration holds the Platt scaling parameters.
	Calibration Calibration
}

// FactorHolder provides lock-free access to the current FactorSnapshot.
type FactorHolder struct {
	p atomic.Pointer[FactorSnapshot]
}

// Load returns the current snapshot, or nil if none is published.
func (h *FactorHolder) Load() *FactorSnapshot {
	return h.p.Load()
}

// Swap publishes a new snapshot and returns the previous one.
func (h *FactorHolder) Swap(s *FactorSnapshot) *FactorSnapshot {
	return h.p.Swap(s)
}

// ChurnHolder provides lock-free access to the current ChurnModel.
type ChurnHolder struct {
	p atomic.Pointer[ChurnModel]
}

// Load returns the current model, or nil if none is published.
func (h *ChurnHolder) Load() *ChurnModel {
	return h.p.Load()
}

// Swap publishes a new model and returns the previous one.
func (h *ChurnHolder) Swap(m *ChurnModel) *ChurnModel {
	return h.p.Swap(m)
}
