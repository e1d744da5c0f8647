// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/affinitylabs/affinity/internal/churn"
	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/metrics"
	"github.com/affinitylabs/affinity/internal/middleware"
	"github.com/affinitylabs/affinity/internal/model"
	"github.com/affinitylabs/affinity/internal/scoring"
)

// maxRequestBody caps request body size for JSON endpoints.
const maxRequestBody = 1 << 20 // 1 MiB

// Stable error codes returned in the "error" field of error responses.
const (
	errInvalidRequest          = "invalid_request"
	errInvalidUserID           = "invalid_user_id"
	errInvalidAlgorithm        = "invalid_algorithm"
	errInvalidInteractionType  = "invalid_interaction_type"
	errMissingFeature          = "missing_feature"
	errModelNotLoaded          = "model_not_loaded"
	errDependencyTimeout       = "dependency_timeout"
	errInternal                = "internal_error"
	errMethodNotAllowed        = "method_not_allowed"
	errNotFound                = "not_found"
	errRequestEntityTooLarge   = "request_too_large"
	errServiceNotReady         = "not_ready"
	errModelReloadFailed       = "model_reload_failed"
	errInsufficientInteraction = "insufficient_data"
)

// errorResponse is the wire shape of an error reply.
// Feature is set only for missing_feature errors.
type errorResponse struct {
	Error   string `json:"error"`
	Feature string `json:"feature,omitempty"`
}

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Failed to write response")
	}
}

// respondError writes an error reply with a stable error code.
func respondError(w http.ResponseWriter, r *http.Request, status int, code string) {
	respondJSON(w, r, status, errorResponse{Error: code})
}

// respondScoringError maps a recommendation-path error to an HTTP reply.
func respondScoringError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var notLoaded *model.ModelNotLoadedError
	switch {
	case scoring.IsValidation(err):
		metrics.RecordRecommendationError("validation")
		respondError(w, r, http.StatusBadRequest, errInvalidUserID)

	case scoring.IsTimeout(err):
		metrics.RecordRecommendationError("dependency_timeout")
		metrics.RecordStoreTimeout()
		logging.Warn().
			Err(err).
			Str("request_id", requestID).
			Msg("Interaction store unavailable")
		respondError(w, r, http.StatusServiceUnavailable, errDependencyTimeout)

	case errors.As(err, &notLoaded):
		metrics.RecordRecommendationError("model_not_loaded")
		logging.Error().
			Err(err).
			Str("request_id", requestID).
			Str("model", notLoaded.Model).
			Msg("Model snapshot not loaded")
		respondError(w, r, http.StatusServiceUnavailable, errModelNotLoaded)

	case scoring.IsInsufficientData(err):
		metrics.RecordRecommendationError("insufficient_data")
		respondError(w, r, http.StatusUnprocessableEntity, errInsufficientInteraction)

	default:
		metrics.RecordRecommendationError("internal")
		logging.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Recommendation failed")
		respondError(w, r, http.StatusInternalServerError, errInternal)
	}
}

// respondChurnError maps a churn-prediction error to an HTTP reply.
func respondChurnError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var missing *churn.MissingFeatureError
	var notLoaded *model.ModelNotLoadedError
	switch {
	case errors.As(err, &missing):
		metrics.RecordMissingFeature(missing.Feature)
		respondJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error:   errMissingFeature,
			Feature: missing.Feature,
		})

	case errors.As(err, &notLoaded):
		logging.Error().
			Err(err).
			Str("request_id", requestID).
			Str("model", notLoaded.Model).
			Msg("Churn model not loaded")
		respondError(w, r, http.StatusServiceUnavailable, errModelNotLoaded)

	default:
		logging.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Churn prediction failed")
		respondError(w, r, http.StatusInternalServerError, errInternal)
	}
}

// decodeJSON decodes the request body into v, enforcing the body size
// cap and rejecting unknown top-level shapes early.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, errRequestEntityTooLarge)
			return err
		}
		respondError(w, r, http.StatusBadRequest, errInvalidRequest)
		return err
	}

	return nil
}
