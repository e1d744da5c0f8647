// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/affinitylabs/affinity/internal/model"
)

// DataProvider defines the read interface to the interaction store.
// Implementations own their timeouts and surface DependencyTimeoutError
// when a read misses its deadline.
type DataProvider interface {
	// GetInteractions returns a user's interaction events.
	GetInteractions(ctx context.Context, userID int64) ([]Interaction, error)

	// GetCandidates returns candidate item IDs for recommendations.
	GetCandidates(ctx context.Context, userID int64, limit int) ([]int64, error)

	// GetItemFeatures returns feature vectors for the given item IDs.
	// Items without features are omitted from the result.
	GetItemFeatures(ctx context.Context, itemIDs []int64) (map[int64]ItemFeatures, error)
}

// Engine coordinates the recommenders, blender, and cache to serve
// recommendation requests. It is safe for concurrent use.
type Engine struct {
	config   *Config
	logger   zerolog.Logger
	provider DataProvider

	content *ContentRecommender
	collab  *CollaborativeRecommender
	blender *Blender
	cache   *Cache
}

// NewEngine creates a scoring engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, holder *model.FactorHolder, provider DataProvider, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config:   cfg,
		logger:   logger.With().Str("component", "scoring").Logger(),
		provider: provider,
		content:  NewContentRecommender(cfg.Content),
		collab:   NewCollaborativeRecommender(holder),
		blender:  NewBlender(cfg.Weights, cfg.Blender),
		cache:    NewCache(cfg.Cache),
	}, nil
}

// Recommend generates recommendations for a user.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	req, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Int64("user_id", req.UserID).
		Str("strategy", req.Strategy.String()).
		Logger()
	logger.Debug().Msg("processing recommendation request")

	snapshotVersion := e.collab.SnapshotVersion()

	cacheKey := e.cache.Key(req.UserID, req.Strategy, req.Context)
	if resp, state := e.cache.Get(cacheKey, snapshotVersion); state == StatePopulated {
		resp.Metadata.CacheHit = true
		resp.Metadata.RequestID = req.RequestID
		resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
		logger.Debug().Msg("cache hit")
		return resp, nil
	}

	resp, err := e.score(ctx, req, snapshotVersion, start)
	if err != nil {
		return nil, err
	}

	e.cache.Put(cacheKey, req.UserID, resp, snapshotVersion)

	logger.Debug().
		Int("returned", len(resp.Items)).
		Bool("cold_start", resp.Metadata.ColdStart).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")

	return resp, nil
}

// prepareRequest validates the request and applies defaults.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if req.UserID <= 0 {
		return req, NewValidationError("user_id", "must be a positive integer")
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.K == 0 {
		req.K = e.config.Limits.DefaultK
	}
	if req.K > e.config.Limits.MaxK {
		req.K = e.config.Limits.MaxK
	}

	return req, nil
}

// score runs the selected strategy and builds the response.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) score(ctx context.Context, req Request, snapshotVersion string, start time.Time) (*Response, error) {
	interactions, candidates, err := e.loadUserData(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	switch req.Strategy {
	case StrategyContent:
		return e.scoreContent(ctx, req, interactions, candidates, snapshotVersion, start)
	case StrategyCollaborative:
		return e.scoreCollaborative(ctx, req, candidates, snapshotVersion, start)
	default:
		return e.scoreHybrid(ctx, req, interactions, candidates, snapshotVersion, start)
	}
}

// loadUserData fetches the user's interactions and candidate items.
func (e *Engine) loadUserData(ctx context.Context, userID int64) ([]Interaction, []int64, error) {
	interactions, err := e.provider.GetInteractions(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get interactions: %w", err)
	}

	candidates, err := e.provider.GetCandidates(ctx, userID, e.config.Limits.MaxCandidates)
	if err != nil {
		return nil, nil, fmt.Errorf("get candidates: %w", err)
	}

	return interactions, candidates, nil
}

// loadFeatures fetches feature vectors for the candidates plus every
// item in the user's history, which the affinity vector needs.
//
//nolint:gocritic // rangeValCopy: Interaction passed by value in range, acceptable for clarity
func (e *Engine) loadFeatures(ctx context.Context, interactions []Interaction, candidates []int64) (map[int64]ItemFeatures, error) {
	seen := make(map[int64]struct{}, len(candidates)+len(interactions))
	ids := make([]int64, 0, len(candidates)+len(interactions))

	for _, id := range candidates {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, inter := range interactions {
		if _, ok := seen[inter.ItemID]; !ok {
			seen[inter.ItemID] = struct{}{}
			ids = append(ids, inter.ItemID)
		}
	}

	features, err := e.provider.GetItemFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get item features: %w", err)
	}
	return features, nil
}

// scoreHybrid fans out both recommenders concurrently and blends.
// An empty candidate set yields an empty, valid response.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) scoreHybrid(ctx context.Context, req Request, interactions []Interaction, candidates []int64, snapshotVersion string, start time.Time) (*Response, error) {
	if len(candidates) == 0 {
		return e.buildResponse(req, nil, false, snapshotVersion, start), nil
	}

	features, err := e.loadFeatures(ctx, interactions, candidates)
	if err != nil {
		return nil, err
	}

	var (
		contentScores map[int64]float64
		collabScores  map[int64]float64
		coldStart     bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contentScores, err = e.content.Score(gctx, interactions, features, candidates, time.Now())
		return err
	})
	g.Go(func() error {
		var err error
		collabScores, coldStart, err = e.collab.Score(gctx, req.UserID, candidates)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := e.blender.Blend(contentScores, collabScores, coldStart, purchasedSet(interactions), req.K)
	return e.buildResponse(req, items, coldStart, snapshotVersion, start), nil
}

// scoreContent serves content-only requests.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) scoreContent(ctx context.Context, req Request, interactions []Interaction, candidates []int64, snapshotVersion string, start time.Time) (*Response, error) {
	features, err := e.loadFeatures(ctx, interactions, candidates)
	if err != nil {
		return nil, err
	}

	scores, err := e.content.Score(ctx, interactions, features, candidates, time.Now())
	if err != nil {
		return nil, err
	}

	items := rankScores(scores, req.K)
	return e.buildResponse(req, items, false, snapshotVersion, start), nil
}

// scoreCollaborative serves collaborative-only requests.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) scoreCollaborative(ctx context.Context, req Request, candidates []int64, snapshotVersion string, start time.Time) (*Response, error) {
	scores, coldStart, err := e.collab.Score(ctx, req.UserID, candidates)
	if err != nil {
		return nil, err
	}

	items := rankScores(scores, req.K)
	return e.buildResponse(req, items, coldStart, snapshotVersion, start), nil
}

// buildResponse constructs the final response.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) buildResponse(req Request, items []ScoredItem, coldStart bool, snapshotVersion string, start time.Time) *Response {
	if items == nil {
		items = []ScoredItem{}
	}

	return &Response{
		Items: items,
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			UserID:          req.UserID,
			Strategy:        req.Strategy.String(),
			ColdStart:       coldStart,
			CacheHit:        false,
			SnapshotVersion: snapshotVersion,
			LatencyMS:       time.Since(start).Milliseconds(),
			Timestamp:       time.Now(),
		},
	}
}

// RecordInteraction applies cache busting for a newly observed
// interaction. Returns true if cached entries were invalidated.
func (e *Engine) RecordInteraction(userID int64, t InteractionType) bool {
	busted := e.cache.RecordInteraction(userID, t.Weight())
	if busted {
		e.logger.Debug().
			Int64("user_id", userID).
			Str("type", t.String()).
			Msg("cache invalidated by interaction")
	}
	return busted
}

// InvalidateCache removes all cached recommendations, typically after a
// model snapshot reload.
func (e *Engine) InvalidateCache() {
	e.cache.InvalidateAll()
}

// CacheLen returns the number of cached responses.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// purchasedSet collects the item IDs the user has purchased.
//
//nolint:gocritic // rangeValCopy: Interaction passed by value in range, acceptable for clarity
func purchasedSet(interactions []Interaction) map[int64]struct{} {
	purchased := make(map[int64]struct{})
	for _, inter := range interactions {
		if inter.Type == InteractionPurchase {
			purchased[inter.ItemID] = struct{}{}
		}
	}
	return purchased
}
