// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package store provides read-only adapters over the interaction store.
// The serving path never writes user data; interactions arrive through
// an upstream ingestion pipeline outside this service.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/affinitylabs/affinity/internal/scoring"
)

// MemoryStore is an in-memory interaction store. It backs tests and
// single-node deployments without external infrastructure.
type MemoryStore struct {
	mu           sync.RWMutex
	interactions map[int64][]scoring.Interaction
	features     map[int64]scoring.ItemFeatures
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		interactions: make(map[int64][]scoring.Interaction),
		features:     make(map[int64]scoring.ItemFeatures),
	}
}

// AddInteraction records an interaction event.
//
//nolint:gocritic // hugeParam: Interaction passed by value for immutability
func (m *MemoryStore) AddInteraction(inter scoring.Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[inter.UserID] = append(m.interactions[inter.UserID], inter)
}

// SetItemFeatures registers an item and its feature vector. Registered
// items form the candidate pool.
//
//nolint:gocritic // hugeParam: ItemFeatures passed by value for immutability
func (m *MemoryStore) SetItemFeatures(f scoring.ItemFeatures) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[f.ItemID] = f
}

// GetInteractions returns a user's interaction events.
func (m *MemoryStore) GetInteractions(ctx context.Context, userID int64) ([]scoring.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.interactions[userID]
	out := make([]scoring.Interaction, len(events))
	copy(out, events)
	return out, nil
}

// GetCandidates returns candidate item IDs in ascending ID order, which
// keeps candidate selection deterministic.
func (m *MemoryStore) GetCandidates(ctx context.Context, userID int64, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.features))
	for id := range m.features {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetItemFeatures returns feature vectors for the given item IDs.
// Unknown items are omitted.
func (m *MemoryStore) GetItemFeatures(ctx context.Context, itemIDs []int64) (map[int64]scoring.ItemFeatures, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]scoring.ItemFeatures, len(itemIDs))
	for _, id := range itemIDs {
		if f, ok := m.features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

var _ scoring.DataProvider = (*MemoryStore)(nil)
