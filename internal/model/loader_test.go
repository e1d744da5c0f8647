// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testChurnModel() *ChurnModel {
	return &ChurnModel{
		Version:          "2026-08-01",
		RequiredFeatures: []string{"days_since_last_login", "purchase_count_30d"},
		Bias:             -1.2,
		Coefficients: map[string]float64{
			"days_since_last_login": 0.08,
			"purchase_count_30d":    -0.35,
		},
		Calibration: Calibration{Slope: 1.0, Intercept: 0.0},
	}
}

func writeManifest(t *testing.T, dir, version string, features []string) {
	t.Helper()

	manifest := `{"version": "` + version + `", "trained_at": "2026-08-01T12:00:00Z", "required_features": [`
	for i, f := range features {
		if i > 0 {
			manifest += ", "
		}
		manifest += `"` + f + `"`
	}
	manifest += `]}`

	if err := os.WriteFile(filepath.Join(dir, ManifestFilename), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func publishArtifacts(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Save(ctx, ArtifactFactors, 1, testFactorSnapshot(), ArtifactMetadata{}); err != nil {
		t.Fatalf("Save(factors) error = %v", err)
	}
	if err := store.Save(ctx, ArtifactChurn, 1, testChurnModel(), ArtifactMetadata{}); err != nil {
		t.Fatalf("Save(churn) error = %v", err)
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2026-08-15", []string{"days_since_last_login"})

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if m.Version != "2026-08-15" {
		t.Errorf("Version = %q, want %q", m.Version, "2026-08-15")
	}
	if len(m.RequiredFeatures) != 1 || m.RequiredFeatures[0] != "days_since_last_login" {
		t.Errorf("RequiredFeatures = %v, want [days_since_last_login]", m.RequiredFeatures)
	}
	if m.TrainedAt.IsZero() {
		t.Error("TrainedAt not parsed")
	}
}

func TestReadManifestErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadManifest(t.TempDir()); err == nil {
			t.Error("ReadManifest() on empty dir succeeded, want error")
		}
	})

	t.Run("empty version", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "", nil)
		if _, err := ReadManifest(dir); err == nil {
			t.Error("ReadManifest() with empty version succeeded, want error")
		}
	})
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	publishArtifacts(t, dir)
	writeManifest(t, dir, "2026-08-15", []string{"days_since_last_login", "purchase_count_30d"})

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	factors := loader.Factors.Load()
	if factors == nil {
		t.Fatal("factor snapshot not published")
	}
	// The manifest overrides the version baked into the artifact.
	if factors.Version != "2026-08-15" {
		t.Errorf("factors.Version = %q, want %q", factors.Version, "2026-08-15")
	}

	churn := loader.Churn.Load()
	if churn == nil {
		t.Fatal("churn model not published")
	}
	if churn.Version != "2026-08-15" {
		t.Errorf("churn.Version = %q, want %q", churn.Version, "2026-08-15")
	}
	if len(churn.RequiredFeatures) != 2 {
		t.Errorf("RequiredFeatures = %v, want 2 names", churn.RequiredFeatures)
	}
}

func TestLoaderMissingManifest(t *testing.T) {
	dir := t.TempDir()
	publishArtifacts(t, dir)

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	err = loader.Load(context.Background())
	var notLoaded *ModelNotLoadedError
	if !errors.As(err, &notLoaded) {
		t.Fatalf("Load() error = %v, want ModelNotLoadedError", err)
	}
	if notLoaded.Model != "manifest" {
		t.Errorf("Model = %q, want %q", notLoaded.Model, "manifest")
	}
}

func TestLoaderMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "2026-08-15", nil)

	// Only the churn artifact is published.
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Save(context.Background(), ArtifactChurn, 1, testChurnModel(), ArtifactMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	err = loader.Load(context.Background())
	var notLoaded *ModelNotLoadedError
	if !errors.As(err, &notLoaded) {
		t.Fatalf("Load() error = %v, want ModelNotLoadedError", err)
	}
	if notLoaded.Model != ArtifactFactors {
		t.Errorf("Model = %q, want %q", notLoaded.Model, ArtifactFactors)
	}

	// A failed load must not publish anything.
	if loader.Churn.Load() != nil {
		t.Error("churn model published despite failed load")
	}
}

func TestLoaderStatus(t *testing.T) {
	dir := t.TempDir()
	publishArtifacts(t, dir)
	writeManifest(t, dir, "2026-08-15", []string{"days_since_last_login"})

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	before := loader.Status()
	if before.FactorsLoaded || before.ChurnLoaded {
		t.Error("fresh loader reports models loaded")
	}

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	after := loader.Status()
	if !after.FactorsLoaded || !after.ChurnLoaded {
		t.Error("Status() does not report models loaded")
	}
	if after.SnapshotVersion != "2026-08-15" {
		t.Errorf("SnapshotVersion = %q, want %q", after.SnapshotVersion, "2026-08-15")
	}
	if after.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
	if time.Since(after.LoadedAt) > time.Minute {
		t.Errorf("LoadedAt = %v, want recent", after.LoadedAt)
	}
}
