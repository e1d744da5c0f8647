// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/affinitylabs/affinity/internal/model"
)

// fakeProvider is an in-memory DataProvider for engine tests.
type fakeProvider struct {
	interactions []Interaction
	candidates   []int64
	features     map[int64]ItemFeatures

	interactionsErr error
	candidatesErr   error
	featuresErr     error
}

func (f *fakeProvider) GetInteractions(_ context.Context, _ int64) ([]Interaction, error) {
	if f.interactionsErr != nil {
		return nil, f.interactionsErr
	}
	return f.interactions, nil
}

func (f *fakeProvider) GetCandidates(_ context.Context, _ int64, _ int) ([]int64, error) {
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	return f.candidates, nil
}

func (f *fakeProvider) GetItemFeatures(_ context.Context, _ []int64) (map[int64]ItemFeatures, error) {
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	return f.features, nil
}

func testProvider() *fakeProvider {
	return &fakeProvider{
		interactions: []Interaction{
			{UserID: 1, ItemID: 100, Type: InteractionLike, Timestamp: time.Now().Add(-time.Hour)},
		},
		candidates: []int64{100, 101, 102},
		features:   testFeatures(),
	}
}

func newTestEngine(t *testing.T, provider DataProvider, snapshot *model.FactorSnapshot) *Engine {
	t.Helper()

	e, err := NewEngine(DefaultConfig(), testHolder(snapshot), provider, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestEngineRejectsInvalidUserID(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())

	for _, userID := range []int64{0, -5} {
		_, err := e.Recommend(context.Background(), Request{UserID: userID})
		if !IsValidation(err) {
			t.Errorf("Recommend(user_id=%d) error = %v, want validation error", userID, err)
		}
	}
}

func TestEngineHybrid(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())

	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if len(resp.Items) == 0 {
		t.Fatal("Recommend() returned no items")
	}
	for i := 1; i < len(resp.Items); i++ {
		if resp.Items[i].Score > resp.Items[i-1].Score {
			t.Errorf("items not sorted by descending score at index %d", i)
		}
	}

	md := resp.Metadata
	if md.Strategy != "hybrid" {
		t.Errorf("Strategy = %q, want %q", md.Strategy, "hybrid")
	}
	if md.ColdStart {
		t.Error("known user flagged cold start")
	}
	if md.CacheHit {
		t.Error("first request flagged as cache hit")
	}
	if md.SnapshotVersion != "2026-08-01" {
		t.Errorf("SnapshotVersion = %q, want %q", md.SnapshotVersion, "2026-08-01")
	}
	if md.RequestID == "" {
		t.Error("RequestID not assigned")
	}
	if md.UserID != 1 {
		t.Errorf("UserID = %d, want 1", md.UserID)
	}
}

func TestEngineCacheHit(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())
	req := Request{UserID: 1}

	first, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("first Recommend() error = %v", err)
	}
	second, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("second Recommend() error = %v", err)
	}

	if !second.Metadata.CacheHit {
		t.Error("second request not served from cache")
	}
	if second.Metadata.RequestID == first.Metadata.RequestID {
		t.Error("cached response reused the original request ID")
	}
	if len(second.Items) != len(first.Items) {
		t.Errorf("cached items = %d, want %d", len(second.Items), len(first.Items))
	}
	if e.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1", e.CacheLen())
	}
}

func TestEngineHybridNoCandidates(t *testing.T) {
	provider := testProvider()
	provider.candidates = nil
	e := newTestEngine(t, provider, testSnapshot())

	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("items = %d, want empty response", len(resp.Items))
	}
}

func TestEngineColdStartUser(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{
		candidates: []int64{100, 101, 102},
		features:   testFeatures(),
	}, testSnapshot())

	// User 99 has no latent factors and no interactions.
	resp, err := e.Recommend(context.Background(), Request{UserID: 99})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !resp.Metadata.ColdStart {
		t.Error("unknown user not flagged cold start")
	}
	if len(resp.Items) == 0 {
		t.Error("cold start returned no items, want popularity ranking")
	}
}

func TestEngineStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		want     string
	}{
		{"content only", StrategyContent, "content"},
		{"collaborative only", StrategyCollaborative, "collaborative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testProvider(), testSnapshot())

			resp, err := e.Recommend(context.Background(), Request{UserID: 1, Strategy: tt.strategy})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if resp.Metadata.Strategy != tt.want {
				t.Errorf("Strategy = %q, want %q", resp.Metadata.Strategy, tt.want)
			}
			if len(resp.Items) == 0 {
				t.Error("no items returned")
			}
		})
	}
}

func TestEngineCollaborativeWithoutSnapshot(t *testing.T) {
	e := newTestEngine(t, testProvider(), nil)

	_, err := e.Recommend(context.Background(), Request{UserID: 1, Strategy: StrategyCollaborative})

	var notLoaded *model.ModelNotLoadedError
	if !errors.As(err, &notLoaded) {
		t.Fatalf("Recommend() error = %v, want ModelNotLoadedError", err)
	}
}

func TestEngineDependencyTimeout(t *testing.T) {
	provider := testProvider()
	provider.interactionsErr = &DependencyTimeoutError{Dependency: "interaction_store", Err: context.DeadlineExceeded}
	e := newTestEngine(t, provider, testSnapshot())

	_, err := e.Recommend(context.Background(), Request{UserID: 1})
	if !IsTimeout(err) {
		t.Errorf("Recommend() error = %v, want dependency timeout", err)
	}
}

func TestEngineRespectsK(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())

	resp, err := e.Recommend(context.Background(), Request{UserID: 1, K: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("items = %d, want 1", len(resp.Items))
	}
}

func TestEngineDedupPurchased(t *testing.T) {
	provider := testProvider()
	provider.interactions = append(provider.interactions, Interaction{
		UserID:    1,
		ItemID:    101,
		Type:      InteractionPurchase,
		Timestamp: time.Now().Add(-time.Hour),
	})
	e := newTestEngine(t, provider, testSnapshot())

	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, item := range resp.Items {
		if item.ItemID == 101 {
			t.Error("purchased item 101 present in recommendations")
		}
	}
}

func TestEngineRecordInteraction(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())

	if _, err := e.Recommend(context.Background(), Request{UserID: 1}); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if e.CacheLen() != 1 {
		t.Fatalf("CacheLen() = %d, want 1", e.CacheLen())
	}

	if busted := e.RecordInteraction(1, InteractionView); busted {
		t.Error("view busted the cache")
	}
	if busted := e.RecordInteraction(1, InteractionPurchase); !busted {
		t.Error("purchase did not bust the cache")
	}
	if e.CacheLen() != 0 {
		t.Errorf("CacheLen() after bust = %d, want 0", e.CacheLen())
	}
}

func TestEngineInvalidateCache(t *testing.T) {
	e := newTestEngine(t, testProvider(), testSnapshot())

	if _, err := e.Recommend(context.Background(), Request{UserID: 1}); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	e.InvalidateCache()
	if e.CacheLen() != 0 {
		t.Errorf("CacheLen() = %d, want 0", e.CacheLen())
	}
}
