// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/affinitylabs/affinity/internal/logging"
)

// Artifact names within the store.
const (
	ArtifactFactors = "factors"
	ArtifactChurn   = "churn"
)

// ManifestFilename is the manifest file expected beside the artifacts.
const ManifestFilename = "manifest.json"

// ModelNotLoadedError indicates a required model artifact is absent.
// It is fatal at startup; it must never surface during serving.
type ModelNotLoadedError struct {
	// Model names the missing artifact ("factors" or "churn").
	Model string

	// Err is the underlying error, if any.
	Err error
}

func (e *ModelNotLoadedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s not loaded: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s not loaded", e.Model)
}

func (e *ModelNotLoadedError) Unwrap() error {
	return e.Err
}

// Manifest describes a published artifact set.
type Manifest struct {
	// Version labels the artifact set.
	Version string `json:"version"`

	// RequiredFeatures lists feature names the churn model requires.
	RequiredFeatures []string `json:"required_features"`

	// TrainedAt is when the offline pipeline produced the set.
	TrainedAt time.Time `json:"trained_at"`
}

// ReadManifest reads and parses the manifest file in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename)) //nolint:gosec // dir comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if m.Version == "" {
		return nil, fmt.Errorf("manifest has empty version")
	}

	return &m, nil
}

// Status reports the currently published snapshot versions.
type Status struct {
	// SnapshotVersion is the published artifact set version.
	SnapshotVersion string `json:"snapshot_version"`

	// TrainedAt is when the published set was trained.
	TrainedAt time.Time `json:"trained_at"`

	// FactorsLoaded indicates a factor snapshot is published.
	FactorsLoaded bool `json:"factors_loaded"`

	// ChurnLoaded indicates a churn model is published.
	ChurnLoaded bool `json:"churn_loaded"`

	// RequiredFeatures lists the churn model's required features.
	RequiredFeatures []string `json:"required_features"`

	// LoadedAt is when the set was last loaded into memory.
	LoadedAt time.Time `json:"loaded_at"`
}

// Loader loads artifact sets from a store directory and publishes them
// to the holders read by the serving path.
type Loader struct {
	store *Store
	dir   string

	// Factors holds the published latent-factor snapshot.
	Factors FactorHolder

	// Churn holds the published churn model.
	Churn ChurnHolder

	// loadedAt is unix nanos of the last successful load.
	loadedAt atomic.Int64
}

// NewLoader creates a loader over the given artifact directory.
func NewLoader(dir string) (*Loader, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}

	return &Loader{
		store: store,
		dir:   dir,
	}, nil
}

// Load reads the manifest and both artifacts and publishes them.
// Both artifacts load fully before either holder is swapped, so a failed
// load never leaves the service on a mixed artifact set.
func (l *Loader) Load(ctx context.Context) error {
	manifest, err := ReadManifest(l.dir)
	if err != nil {
		return &ModelNotLoadedError{Model: "manifest", Err: err}
	}

	var factors FactorSnapshot
	factorsMeta, err := l.store.Load(ctx, ArtifactFactors, 0, &factors)
	if err != nil {
		return &ModelNotLoadedError{Model: ArtifactFactors, Err: err}
	}

	var churn ChurnModel
	churnMeta, err := l.store.Load(ctx, ArtifactChurn, 0, &churn)
	if err != nil {
		return &ModelNotLoadedError{Model: ArtifactChurn, Err: err}
	}

	// The manifest is authoritative for version and required features.
	factors.Version = manifest.Version
	factors.TrainedAt = manifest.TrainedAt
	churn.Version = manifest.Version
	churn.TrainedAt = manifest.TrainedAt
	if len(manifest.RequiredFeatures) > 0 {
		churn.RequiredFeatures = manifest.RequiredFeatures
	}

	l.Factors.Swap(&factors)
	l.Churn.Swap(&churn)
	l.loadedAt.Store(time.Now().UnixNano())

	logging.Ctx(ctx).Info().
		Str("version", manifest.Version).
		Int("factors_file_version", factorsMeta.FileVersion).
		Int("churn_file_version", churnMeta.FileVersion).
		Int("users", len(factors.Users)).
		Int("items", len(factors.Items)).
		Int("required_features", len(churn.RequiredFeatures)).
		Msg("model snapshots loaded")

	return nil
}

// Status returns the current load state.
func (l *Loader) Status() Status {
	st := Status{}

	if factors := l.Factors.Load(); factors != nil {
		st.FactorsLoaded = true
		st.SnapshotVersion = factors.Version
		st.TrainedAt = factors.TrainedAt
	}
	if churn := l.Churn.Load(); churn != nil {
		st.ChurnLoaded = true
		st.RequiredFeatures = churn.RequiredFeatures
		if st.SnapshotVersion == "" {
			st.SnapshotVersion = churn.Version
		}
	}
	if ns := l.loadedAt.Load(); ns != 0 {
		st.LoadedAt = time.Unix(0, ns)
	}

	return st
}

// Store exposes the underlying artifact store for admin operations.
func (l *Loader) Store() *Store {
	return l.store
}
