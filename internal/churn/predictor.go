// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package churn scores users for churn risk with a calibrated logistic
// model loaded from offline-trained artifacts.
package churn

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/affinitylabs/affinity/internal/model"
)

// MissingFeatureError indicates a required model feature was absent
// from the request payload.
type MissingFeatureError struct {
	// Feature is the name of the missing feature.
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing required feature: %s", e.Feature)
}

// Prediction is the result of a churn risk evaluation.
type Prediction struct {
	// UserID is the evaluated user.
	UserID int64 `json:"user_id"`

	// Probability is the calibrated churn probability in [0, 1].
	Probability float64 `json:"churn_probability"`

	// RiskTier is the probability band the prediction falls in.
	RiskTier RiskTier `json:"risk_tier"`

	// ModelVersion is the snapshot version of the scoring model.
	ModelVersion string `json:"model_version"`

	// PredictedAt is when the prediction was made.
	PredictedAt time.Time `json:"predicted_at"`
}

// Predictor evaluates churn risk against the published churn model.
// It is safe for concurrent use; model swaps are picked up atomically.
type Predictor struct {
	holder *model.ChurnHolder
	logger zerolog.Logger
}

// NewPredictor creates a churn predictor reading from holder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPredictor(holder *model.ChurnHolder, logger zerolog.Logger) *Predictor {
	return &Predictor{
		holder: holder,
		logger: logger.With().Str("component", "churn").Logger(),
	}
}

// Predict evaluates churn risk for a user from the supplied feature
// values. Every feature the model manifest requires must be present;
// extra features are ignored. Feature validation runs before any
// scoring, so a request never produces a partial result.
func (p *Predictor) Predict(ctx context.Context, userID int64, features map[string]float64) (*Prediction, error) {
	m := p.holder.Load()
	if m == nil {
		return nil, &model.ModelNotLoadedError{Model: model.ArtifactChurn}
	}

	sample, err := extractFeatures(m.RequiredFeatures, features)
	if err != nil {
		return nil, err
	}

	logit := m.Bias
	for i, name := range m.RequiredFeatures {
		logit += m.Coefficients[name] * sample[i]
	}

	probability := calibrate(logit, m.Calibration)

	p.logger.Debug().
		Int64("user_id", userID).
		Float64("probability", probability).
		Str("model_version", m.Version).
		Msg("churn prediction")

	return &Prediction{
		UserID:       userID,
		Probability:  probability,
		RiskTier:     TierFor(probability),
		ModelVersion: m.Version,
		PredictedAt:  time.Now(),
	}, nil
}

// ModelVersion returns the published churn model version, or empty if
// no model is loaded.
func (p *Predictor) ModelVersion() string {
	if m := p.holder.Load(); m != nil {
		return m.Version
	}
	return ""
}

// RequiredFeatures returns the feature names the published model
// requires, or nil if no model is loaded.
func (p *Predictor) RequiredFeatures() []string {
	if m := p.holder.Load(); m != nil {
		return m.RequiredFeatures
	}
	return nil
}

// extractFeatures pulls required features in declaration order.
// The first missing feature fails the whole request.
func extractFeatures(required []string, features map[string]float64) ([]float64, error) {
	sample := make([]float64, len(required))
	for i, name := range required {
		value, ok := features[name]
		if !ok {
			return nil, &MissingFeatureError{Feature: name}
		}
		sample[i] = value
	}
	return sample, nil
}

// calibrate applies Platt scaling on the raw logit and squashes it to a
// probability. The identity calibration (slope 1, intercept 0) leaves
// the plain logistic output unchanged.
func calibrate(logit float64, c model.Calibration) float64 {
	slope := c.Slope
	if slope == 0 {
		slope = 1
	}
	return sigmoid(slope*logit + c.Intercept)
}

// sigmoid is the standard logistic function.
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
