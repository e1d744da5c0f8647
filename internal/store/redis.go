// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/affinitylabs/affinity/internal/scoring"
)

// Redis key layout. The ingestion pipeline owns the writes; this
// adapter only reads.
//
//	affinity:interactions:{user_id}  list of JSON interaction events
//	affinity:candidates              sorted set of item IDs by popularity
//	affinity:features:{item_id}      JSON feature vector
const (
	interactionsKeyFmt = "affinity:interactions:%d"
	candidatesKey      = "affinity:candidates"
	featuresKeyFmt     = "affinity:features:%d"
)

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	// Addr is the Redis server address.
	// Default: "localhost:6379".
	Addr string `json:"addr" koanf:"addr"`

	// Password is the Redis password, empty for no auth.
	Password string `json:"-" koanf:"password"`

	// DB is the Redis database number.
	// Default: 0.
	DB int `json:"db" koanf:"db"`
}

// RedisStore reads interactions, candidates, and item features from
// Redis. It implements the read-only store contract; all writes happen
// upstream.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

// GetInteractions returns a user's interaction events.
func (r *RedisStore) GetInteractions(ctx context.Context, userID int64) ([]scoring.Interaction, error) {
	key := fmt.Sprintf(interactionsKeyFmt, userID)

	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read interactions for user %d: %w", userID, err)
	}

	interactions := make([]scoring.Interaction, 0, len(raw))
	for _, entry := range raw {
		var inter scoring.Interaction
		if err := json.Unmarshal([]byte(entry), &inter); err != nil {
			// A malformed event must not take down scoring for the user.
			continue
		}
		interactions = append(interactions, inter)
	}
	return interactions, nil
}

// GetCandidates returns the top candidate item IDs by popularity.
func (r *RedisStore) GetCandidates(ctx context.Context, userID int64, limit int) ([]int64, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	members, err := r.client.ZRevRange(ctx, candidatesKey, 0, stop).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		var id int64
		if _, err := fmt.Sscanf(member, "%d", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetItemFeatures returns feature vectors for the given item IDs.
// Items without stored features are omitted.
func (r *RedisStore) GetItemFeatures(ctx context.Context, itemIDs []int64) (map[int64]scoring.ItemFeatures, error) {
	if len(itemIDs) == 0 {
		return make(map[int64]scoring.ItemFeatures), nil
	}

	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = fmt.Sprintf(featuresKeyFmt, id)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read item features: %w", err)
	}

	features := make(map[int64]scoring.ItemFeatures, len(itemIDs))
	for i, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue
		}

		var f scoring.ItemFeatures
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			continue
		}
		if f.ItemID == 0 {
			f.ItemID = itemIDs[i]
		}
		features[f.ItemID] = f
	}
	return features, nil
}

// Ping checks connectivity to Redis.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ scoring.DataProvider = (*RedisStore)(nil)
