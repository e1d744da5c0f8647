// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/affinitylabs/affinity/internal/churn"
	"github.com/affinitylabs/affinity/internal/config"
	"github.com/affinitylabs/affinity/internal/model"
	"github.com/affinitylabs/affinity/internal/scoring"
	"github.com/affinitylabs/affinity/internal/store"
)

const testSnapshotVersion = "2026-08-15"

// publishTestArtifacts writes a manifest and both model artifacts into
// dir so a Loader can publish them.
func publishTestArtifacts(t *testing.T, dir string, version int) {
	t.Helper()

	manifest := model.Manifest{
		Version:          testSnapshotVersion,
		RequiredFeatures: []string{"days_since_last_login", "purchases_last_30d"},
		TrainedAt:        time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ManifestFilename), data, 0o600))

	st, err := model.NewStore(dir)
	require.NoError(t, err)

	factors := model.FactorSnapshot{
		Version: testSnapshotVersion,
		Users: map[int64][]float64{
			1: {1.0, 0.0},
			2: {0.0, 1.0},
		},
		Items: map[int64][]float64{
			100: {0.9, 0.1},
			101: {0.1, 0.9},
			102: {0.5, 0.5},
		},
		Popularity: map[int64]float64{100: 50, 101: 30, 102: 10},
	}
	require.NoError(t, st.Save(context.Background(), model.ArtifactFactors, version, factors, model.ArtifactMetadata{}))

	churnModel := model.ChurnModel{
		Version:          testSnapshotVersion,
		RequiredFeatures: []string{"days_since_last_login", "purchases_last_30d"},
		Bias:             -1.0,
		Coefficients: map[string]float64{
			"days_since_last_login": 0.1,
			"purchases_last_30d":    -0.5,
		},
	}
	require.NoError(t, st.Save(context.Background(), model.ArtifactChurn, version, churnModel, model.ArtifactMetadata{}))
}

// seededStore returns a memory store with a small catalog and one
// interaction history for user 1.
func seededStore() *store.MemoryStore {
	mem := store.NewMemoryStore()
	mem.SetItemFeatures(scoring.ItemFeatures{ItemID: 100, Vector: []float64{1, 0, 0}})
	mem.SetItemFeatures(scoring.ItemFeatures{ItemID: 101, Vector: []float64{0, 1, 0}})
	mem.SetItemFeatures(scoring.ItemFeatures{ItemID: 102, Vector: []float64{0, 0, 1}})
	mem.AddInteraction(scoring.Interaction{
		UserID:    1,
		ItemID:    100,
		Type:      scoring.InteractionLike,
		Timestamp: time.Now().Add(-time.Hour),
	})
	return mem
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	loader  *model.Loader
	dir     string
}

// newTestEnv builds the full serving stack over a memory store and
// freshly published artifacts.
func newTestEnv(t *testing.T, provider scoring.DataProvider) *testEnv {
	t.Helper()

	dir := t.TempDir()
	publishTestArtifacts(t, dir, 1)

	loader, err := model.NewLoader(dir)
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	engine, err := scoring.NewEngine(scoring.DefaultConfig(), &loader.Factors, provider, zerolog.Nop())
	require.NoError(t, err)

	predictor := churn.NewPredictor(&loader.Churn, zerolog.Nop())

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
	}

	handler := NewHandler(engine, predictor, loader, cfg)
	return &testEnv{
		handler: handler,
		router:  NewRouter(handler, cfg.Server),
		loader:  loader,
		dir:     dir,
	}
}

// doJSON performs a request with a JSON body and decodes the JSON reply
// into out when out is non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path string, body, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
			"body: %s", rec.Body.String())
	}
	return rec
}

// timeoutProvider simulates an interaction store that misses its
// deadline on every read.
type timeoutProvider struct{}

func (timeoutProvider) GetInteractions(_ context.Context, _ int64) ([]scoring.Interaction, error) {
	return nil, &scoring.DependencyTimeoutError{Dependency: "interaction-store"}
}

func (timeoutProvider) GetCandidates(_ context.Context, _ int64, _ int) ([]int64, error) {
	return nil, &scoring.DependencyTimeoutError{Dependency: "interaction-store"}
}

func (timeoutProvider) GetItemFeatures(_ context.Context, _ []int64) (map[int64]scoring.ItemFeatures, error) {
	return nil, &scoring.DependencyTimeoutError{Dependency: "interaction-store"}
}
