// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/scoring"
)

// breakerName labels the interaction store breaker in logs.
const breakerName = "interaction-store"

// ResilientConfig holds timeout and circuit breaker settings for store
// reads.
type ResilientConfig struct {
	// Timeout is the per-call deadline for store reads.
	// Default: 2s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// MaxFailures is the consecutive failure count that opens the
	// breaker.
	// Default: 5.
	MaxFailures uint32 `json:"max_failures" koanf:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	OpenTimeout time.Duration `json:"open_timeout" koanf:"open_timeout"`
}

// DefaultResilientConfig returns production defaults.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:     2 * time.Second,
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// ResilientProvider wraps a store adapter with per-call timeouts and a
// circuit breaker. Deadline misses and breaker rejections surface as
// DependencyTimeoutError so the serving layer can answer 503 without
// inspecting transport details.
type ResilientProvider struct {
	inner scoring.DataProvider
	cb    *gobreaker.CircuitBreaker[interface{}]
	cfg   ResilientConfig
}

// NewResilientProvider wraps inner with timeout and breaker protection.
func NewResilientProvider(inner scoring.DataProvider, cfg ResilientConfig) *ResilientProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    breakerName,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store circuit breaker state change")
		},
	})

	return &ResilientProvider{
		inner: inner,
		cb:    cb,
		cfg:   cfg,
	}
}

// execute runs a store read under the breaker with a call deadline.
func (p *ResilientProvider) execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		return fn(callCtx)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return result, nil
}

// mapStoreError converts timeouts and breaker rejections into the
// dependency timeout error the serving layer answers 503 with.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return &scoring.DependencyTimeoutError{Dependency: breakerName, Err: err}
	default:
		return err
	}
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("store: unexpected result type %T", result)
	}
	return typed, nil
}

// GetInteractions returns a user's interaction events with timeout and
// breaker protection.
func (p *ResilientProvider) GetInteractions(ctx context.Context, userID int64) ([]scoring.Interaction, error) {
	return castResult[[]scoring.Interaction](p.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return p.inner.GetInteractions(ctx, userID)
	}))
}

// GetCandidates returns candidate item IDs with timeout and breaker
// protection.
func (p *ResilientProvider) GetCandidates(ctx context.Context, userID int64, limit int) ([]int64, error) {
	return castResult[[]int64](p.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return p.inner.GetCandidates(ctx, userID, limit)
	}))
}

// GetItemFeatures returns item feature vectors with timeout and breaker
// protection.
func (p *ResilientProvider) GetItemFeatures(ctx context.Context, itemIDs []int64) (map[int64]scoring.ItemFeatures, error) {
	return castResult[map[int64]scoring.ItemFeatures](p.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return p.inner.GetItemFeatures(ctx, itemIDs)
	}))
}

// State returns the current breaker state.
func (p *ResilientProvider) State() gobreaker.State {
	return p.cb.State()
}

var _ scoring.DataProvider = (*ResilientProvider)(nil)
