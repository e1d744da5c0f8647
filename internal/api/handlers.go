// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package api exposes the HTTP surface of the scoring service: the
// recommendation and churn endpoints, interaction notifications, and
// the operational endpoints for health, model status, and reload.
package api

import (
	"net/http"
	"time"

	"github.com/affinitylabs/affinity/internal/churn"
	"github.com/affinitylabs/affinity/internal/config"
	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/metrics"
	"github.com/affinitylabs/affinity/internal/middleware"
	"github.com/affinitylabs/affinity/internal/model"
	"github.com/affinitylabs/affinity/internal/scoring"
	"github.com/affinitylabs/affinity/internal/validation"
)

// Handler serves all HTTP endpoints.
type Handler struct {
	engine    *scoring.Engine
	predictor *churn.Predictor
	loader    *model.Loader
	cfg       *config.Config
	startTime time.Time
}

// NewHandler creates a Handler over the serving engine, churn
// predictor, and model loader.
func NewHandler(engine *scoring.Engine, predictor *churn.Predictor, loader *model.Loader, cfg *config.Config) *Handler {
	return &Handler{
		engine:    engine,
		predictor: predictor,
		loader:    loader,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// HandleRecommend serves POST /recommend.
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		first := verr.First()
		code := errInvalidRequest
		switch first.Field() {
		case "UserID":
			code = errInvalidUserID
		case "Algorithm":
			code = errInvalidAlgorithm
		}
		metrics.RecordRecommendationError("validation")
		respondError(w, r, http.StatusBadRequest, code)
		return
	}

	strategy, ok := scoring.ParseStrategy(req.Algorithm)
	if !ok {
		metrics.RecordRecommendationError("validation")
		respondError(w, r, http.StatusBadRequest, errInvalidAlgorithm)
		return
	}

	start := time.Now()
	resp, err := h.engine.Recommend(r.Context(), scoring.Request{
		UserID:    req.UserID,
		K:         req.TopK,
		Strategy:  strategy,
		Context:   req.Context,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		respondScoringError(w, r, err)
		return
	}

	if resp.Metadata.CacheHit {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss("empty")
	}
	metrics.RecordRecommendation(resp.Metadata.Strategy, resp.Metadata.ColdStart, time.Since(start))
	metrics.SetCacheEntries(h.engine.CacheLen())

	respondJSON(w, r, http.StatusOK, buildRecommendResponse(resp))
}

// buildRecommendResponse maps an engine response to the wire shape.
func buildRecommendResponse(resp *scoring.Response) recommendResponse {
	ids := make([]int64, len(resp.Items))
	ranked := make([]scoredItem, len(resp.Items))
	for i, item := range resp.Items {
		ids[i] = item.ItemID
		ranked[i] = scoredItem{ItemID: item.ItemID, Score: item.Score}
	}

	return recommendResponse{
		UserID:          resp.Metadata.UserID,
		Algorithm:       resp.Metadata.Strategy,
		Recommendations: ids,
		RankedItems:     ranked,
		ColdStart:       resp.Metadata.ColdStart,
		CacheHit:        resp.Metadata.CacheHit,
		SnapshotVersion: resp.Metadata.SnapshotVersion,
		RequestID:       resp.Metadata.RequestID,
		GeneratedAt:     resp.Metadata.Timestamp,
	}
}

// churnResponse is the wire shape of a successful churn prediction.
// The tier boundary table is informational; the service does not
// threshold on the caller's behalf.
type churnResponse struct {
	UserID         int64                `json:"user_id"`
	ChurnRisk      float64              `json:"churn_risk"`
	RiskTier       churn.RiskTier       `json:"risk_tier"`
	ModelVersion   string               `json:"model_version"`
	PredictedAt    time.Time            `json:"predicted_at"`
	TierBoundaries []churn.TierBoundary `json:"tier_boundaries"`
}

// HandleChurnPredict serves POST /churn-predict.
func (h *Handler) HandleChurnPredict(w http.ResponseWriter, r *http.Request) {
	var req churnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		code := errInvalidRequest
		if verr.First().Field() == "UserID" {
			code = errInvalidUserID
		}
		respondError(w, r, http.StatusBadRequest, code)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), req.UserID, req.Features)
	if err != nil {
		respondChurnError(w, r, err)
		return
	}

	metrics.RecordChurnPrediction(string(pred.RiskTier))

	respondJSON(w, r, http.StatusOK, churnResponse{
		UserID:         pred.UserID,
		ChurnRisk:      pred.Probability,
		RiskTier:       pred.RiskTier,
		ModelVersion:   pred.ModelVersion,
		PredictedAt:    pred.PredictedAt,
		TierBoundaries: churn.TierBoundaries(),
	})
}

// HandleInteraction serves POST /interactions. The event is not
// persisted; it only drives recommendation cache busting for the user.
func (h *Handler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		code := errInvalidRequest
		if verr.First().Field() == "UserID" {
			code = errInvalidUserID
		}
		respondError(w, r, http.StatusBadRequest, code)
		return
	}

	typ, ok := scoring.ParseInteractionType(req.Type)
	if !ok {
		respondError(w, r, http.StatusBadRequest, errInvalidInteractionType)
		return
	}

	busted := h.engine.RecordInteraction(req.UserID, typ)
	if busted {
		metrics.RecordCacheBust()
		metrics.SetCacheEntries(h.engine.CacheLen())
	}

	respondJSON(w, r, http.StatusAccepted, interactionResponse{
		Accepted:    true,
		CacheBusted: busted,
	})
}

// healthResponse is the wire shape of GET /healthz.
type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HandleHealth serves GET /healthz. It reports liveness only.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// HandleReady serves GET /readyz. The service is ready once both model
// artifacts are published.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	status := h.loader.Status()
	if !status.FactorsLoaded || !status.ChurnLoaded {
		respondError(w, r, http.StatusServiceUnavailable, errServiceNotReady)
		return
	}

	respondJSON(w, r, http.StatusOK, healthResponse{
		Status:        "ready",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// modelStatusResponse is the wire shape of GET /api/v1/model/status.
type modelStatusResponse struct {
	model.Status
	CacheEntries   int                  `json:"cache_entries"`
	TierBoundaries []churn.TierBoundary `json:"tier_boundaries"`
}

// HandleModelStatus serves GET /api/v1/model/status.
func (h *Handler) HandleModelStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, modelStatusResponse{
		Status:         h.loader.Status(),
		CacheEntries:   h.engine.CacheLen(),
		TierBoundaries: churn.TierBoundaries(),
	})
}

// HandleModelReload serves POST /api/v1/model/reload. A failed reload
// leaves the previously published artifacts serving.
func (h *Handler) HandleModelReload(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Load(r.Context()); err != nil {
		metrics.RecordModelLoad("", err)
		logging.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Model reload failed")
		respondError(w, r, http.StatusInternalServerError, errModelReloadFailed)
		return
	}

	status := h.loader.Status()
	metrics.RecordModelLoad(status.SnapshotVersion, nil)
	h.engine.InvalidateCache()
	metrics.SetCacheEntries(0)

	logging.Info().
		Str("snapshot_version", status.SnapshotVersion).
		Msg("Model reloaded")

	respondJSON(w, r, http.StatusOK, h.loader.Status())
}
