// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package model

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ArtifactMetadata describes a stored model artifact.
type ArtifactMetadata struct {
	// Name is the artifact name ("factors" or "churn").
	Name string `json:"name"`

	// FileVersion is the monotonically increasing on-disk version.
	FileVersion int `json:"file_version"`

	// Version is the snapshot version label.
	Version string `json:"version"`

	// TrainedAt is when the offline pipeline produced the artifact.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the artifact was written to this store.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 checksum of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size in bytes.
	SizeBytes int64 `json:"size_bytes"`
}

// storedFile is the on-disk format for artifact files.
type storedFile struct {
	Metadata       ArtifactMetadata
	CompressedData []byte
}

// Store manages model artifact persistence.
// Artifacts are gob-encoded, gzip-compressed, and checksummed.
// Filenames follow the pattern {name}_v{version}.gob.gz.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// Latest file version per artifact name.
	versions map[string]int
}

// NewStore creates an artifact store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	if err := s.scanArtifacts(); err != nil {
		return nil, fmt.Errorf("scan existing artifacts: %w", err)
	}

	return s, nil
}

// scanArtifacts scans the store directory for existing artifact files.
func (s *Store) scanArtifacts() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name, ok := strings.CutSuffix(entry.Name(), ".gob.gz")
		if !ok {
			continue
		}

		artName, version := parseArtifactFilename(name)
		if artName == "" {
			continue
		}

		if current, ok := s.versions[artName]; !ok || version > current {
			s.versions[artName] = version
		}
	}

	return nil
}

// parseArtifactFilename extracts artifact name and version from a stem
// like "factors_v3".
func parseArtifactFilename(name string) (artName string, version int) {
	idx := strings.LastIndex(name, "_v")
	if idx < 1 {
		return "", 0
	}

	if _, err := fmt.Sscanf(name[idx+2:], "%d", &version); err != nil {
		return "", 0
	}

	return name[:idx], version
}

// Save stores an artifact under the given name and file version.
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ArtifactMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	rawData := buf.Bytes()
	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.FileVersion = version
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()

	f, err := os.Create(s.artifactPath(name, version)) //nolint:gosec // path is constructed from trusted name parameter
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after write surfaces via Encode

	sf := storedFile{
		Metadata:       meta,
		CompressedData: compressed.Bytes(),
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return fmt.Errorf("write artifact file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}

	return nil
}

// Load loads an artifact by name and file version into target.
// If version is 0, the latest version is loaded.
// The checksum of the payload is verified before decoding.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ArtifactMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("no artifact found for %s", name)
		}
	}

	f, err := os.Open(s.artifactPath(name, version)) //nolint:gosec // path is constructed from trusted name parameter
	if err != nil {
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read artifact file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch for %s v%d: expected %s, got %s",
			name, version, sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	return &sf.Metadata, nil
}

// LatestVersion returns the latest file version for an artifact name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListArtifacts returns metadata for the latest version of every artifact.
func (s *Store) ListArtifacts(ctx context.Context) ([]ArtifactMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var artifacts []ArtifactMetadata

	for name, version := range s.versions {
		f, err := os.Open(s.artifactPath(name, version)) //nolint:gosec // path is constructed from tracked names
		if err != nil {
			continue
		}

		var sf storedFile
		err = gob.NewDecoder(f).Decode(&sf)
		_ = f.Close() //nolint:errcheck // error on close after read is not actionable
		if err != nil {
			continue
		}

		artifacts = append(artifacts, sf.Metadata)
	}

	return artifacts, nil
}

// Prune removes old artifact versions, keeping the latest keepVersions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		stem, ok := strings.CutSuffix(entry.Name(), ".gob.gz")
		if !ok {
			continue
		}

		artName, v := parseArtifactFilename(stem)
		if artName != name {
			continue
		}
		versions = append(versions, v)
	}

	// Sort descending so the newest versions are kept.
	for i := 0; i < len(versions)-1; i++ {
		for j := i + 1; j < len(versions); j++ {
			if versions[j] > versions[i] {
				versions[i], versions[j] = versions[j], versions[i]
			}
		}
	}

	for i := keepVersions; i < len(versions); i++ {
		_ = os.Remove(s.artifactPath(name, versions[i])) //nolint:errcheck // best-effort cleanup of old versions
	}

	return nil
}

// artifactPath returns the file path for an artifact version.
func (s *Store) artifactPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(FactorSnapshot{})
	gob.Register(ChurnModel{})
	gob.Register(ArtifactMetadata{})
	gob.Register(storedFile{})
}
