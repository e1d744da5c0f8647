// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/affinitylabs/affinity/internal/scoring"
)

// slowProvider blocks until its context expires.
type slowProvider struct{}

func (slowProvider) GetInteractions(ctx context.Context, _ int64) ([]scoring.Interaction, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) GetCandidates(ctx context.Context, _ int64, _ int) ([]int64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) GetItemFeatures(ctx context.Context, _ []int64) (map[int64]scoring.ItemFeatures, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingProvider fails every call immediately.
type failingProvider struct{}

func (failingProvider) GetInteractions(context.Context, int64) ([]scoring.Interaction, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) GetCandidates(context.Context, int64, int) ([]int64, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) GetItemFeatures(context.Context, []int64) (map[int64]scoring.ItemFeatures, error) {
	return nil, errors.New("connection refused")
}

func TestResilientPassthrough(t *testing.T) {
	inner := seededMemoryStore()
	p := NewResilientProvider(inner, DefaultResilientConfig())
	ctx := context.Background()

	events, err := p.GetInteractions(ctx, 1)
	if err != nil {
		t.Fatalf("GetInteractions() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("GetInteractions() = %d events, want 1", len(events))
	}

	ids, err := p.GetCandidates(ctx, 1, 0)
	if err != nil {
		t.Fatalf("GetCandidates() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("GetCandidates() = %d ids, want 3", len(ids))
	}

	features, err := p.GetItemFeatures(ctx, []int64{100})
	if err != nil {
		t.Fatalf("GetItemFeatures() error = %v", err)
	}
	if len(features) != 1 {
		t.Errorf("GetItemFeatures() = %d entries, want 1", len(features))
	}
}

func TestResilientTimeout(t *testing.T) {
	cfg := DefaultResilientConfig()
	cfg.Timeout = 10 * time.Millisecond
	p := NewResilientProvider(slowProvider{}, cfg)

	_, err := p.GetInteractions(context.Background(), 1)
	if !scoring.IsTimeout(err) {
		t.Errorf("GetInteractions() error = %v, want DependencyTimeoutError", err)
	}

	var timeoutErr *scoring.DependencyTimeoutError
	if errors.As(err, &timeoutErr) && timeoutErr.Dependency != breakerName {
		t.Errorf("Dependency = %q, want %q", timeoutErr.Dependency, breakerName)
	}
}

func TestResilientBreakerOpens(t *testing.T) {
	cfg := DefaultResilientConfig()
	cfg.MaxFailures = 3
	p := NewResilientProvider(failingProvider{}, cfg)
	ctx := context.Background()

	// Plain failures pass through until the breaker trips.
	for i := 0; i < 3; i++ {
		if _, err := p.GetCandidates(ctx, 1, 0); err == nil {
			t.Fatalf("call %d succeeded, want error", i)
		}
	}

	if p.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", p.State())
	}

	// Rejected calls surface as dependency timeouts.
	_, err := p.GetCandidates(ctx, 1, 0)
	if !scoring.IsTimeout(err) {
		t.Errorf("open breaker error = %v, want DependencyTimeoutError", err)
	}
}

func TestResilientPlainErrorNotTimeout(t *testing.T) {
	p := NewResilientProvider(failingProvider{}, DefaultResilientConfig())

	_, err := p.GetInteractions(context.Background(), 1)
	if err == nil {
		t.Fatal("GetInteractions() succeeded, want error")
	}
	if scoring.IsTimeout(err) {
		t.Error("plain failure mapped to dependency timeout")
	}
}
