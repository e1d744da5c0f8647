// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package main is the entry point for the Affinity scoring service.
//
// Affinity serves per-user recommendation lists and churn-risk scores
// over a JSON HTTP API. It reads interaction events from a pluggable
// store (in-memory or Redis), scores candidates with a content-based
// recommender and a latent-factor collaborative recommender, blends
// the two, and caches ranked lists per user.
//
// # Startup Order
//
//  1. Configuration: layered load via Koanf v2 (defaults, config file,
//     environment variables)
//  2. Logging: zerolog, JSON or console format
//  3. Models: load the manifest and both artifacts from the model
//     directory; startup aborts if either cannot be published
//  4. Interaction store: memory or Redis backend, wrapped with a
//     per-call timeout and a circuit breaker
//  5. HTTP server: Chi router with CORS, rate limiting, and Prometheus
//     metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (CONFIG_PATH or
// ./config.yaml), built-in defaults.
//
// Common variables:
//   - HTTP_PORT: listen port (default 8200)
//   - MODELS_DIR: model artifact directory (default /data/models)
//   - STORE_BACKEND: "memory" or "redis" (default memory)
//   - REDIS_ADDR: Redis address when STORE_BACKEND=redis
//   - LOG_LEVEL, LOG_FORMAT: logging controls
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting new connections and waits up to 10 seconds for in-flight
// requests to complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/affinitylabs/affinity/internal/api"
	"github.com/affinitylabs/affinity/internal/churn"
	"github.com/affinitylabs/affinity/internal/config"
	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/metrics"
	"github.com/affinitylabs/affinity/internal/model"
	"github.com/affinitylabs/affinity/internal/scoring"
	"github.com/affinitylabs/affinity/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("models_dir", cfg.Models.Dir).
		Str("store_backend", cfg.Store.Backend).
		Msg("Starting Affinity")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loader := mustLoadModels(ctx, cfg)
	provider := buildProvider(ctx, cfg)

	engine, err := scoring.NewEngine(
		cfg.Scoring.EngineConfig(cfg.Store.Timeout),
		&loader.Factors,
		provider,
		logging.WithComponent("scoring"),
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create scoring engine")
	}

	predictor := churn.NewPredictor(&loader.Churn, logging.WithComponent("churn"))

	handler := api.NewHandler(engine, predictor, loader, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown incomplete")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// mustLoadModels loads the manifest and both artifacts and publishes
// them. A service without published models cannot score anything, so a
// failed initial load aborts startup.
func mustLoadModels(ctx context.Context, cfg *config.Config) *model.Loader {
	loader, err := model.NewLoader(cfg.Models.Dir)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Models.Dir).Msg("Failed to open model store")
	}

	if err := loader.Load(ctx); err != nil {
		metrics.RecordModelLoad("", err)
		var notLoaded *model.ModelNotLoadedError
		if errors.As(err, &notLoaded) {
			logging.Fatal().
				Err(err).
				Str("model", notLoaded.Model).
				Str("dir", cfg.Models.Dir).
				Msg("Model artifacts missing or unreadable")
		}
		logging.Fatal().Err(err).Msg("Failed to load models")
	}

	status := loader.Status()
	metrics.RecordModelLoad(status.SnapshotVersion, nil)
	logging.Info().
		Str("snapshot_version", status.SnapshotVersion).
		Strs("required_features", status.RequiredFeatures).
		Msg("Models loaded")

	pruneArtifacts(ctx, loader, cfg.Models.KeepVersions)

	return loader
}

// pruneArtifacts removes superseded artifact versions beyond the
// configured retention. Pruning failures are logged and ignored.
func pruneArtifacts(ctx context.Context, loader *model.Loader, keep int) {
	if keep <= 0 {
		return
	}
	for _, name := range []string{model.ArtifactFactors, model.ArtifactChurn} {
		if err := loader.Store().Prune(ctx, name, keep); err != nil {
			logging.Warn().Err(err).Str("artifact", name).Msg("Failed to prune old artifacts")
		}
	}
}

// buildProvider selects the interaction store backend and wraps it with
// the timeout and circuit breaker layer.
func buildProvider(ctx context.Context, cfg *config.Config) scoring.DataProvider {
	var (
		inner scoring.DataProvider
		err   error
	)

	switch cfg.Store.Backend {
	case "redis":
		inner, err = store.NewRedisStore(ctx, cfg.Store.RedisConfig())
		if err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.Store.Addr).Msg("Failed to connect to Redis")
		}
		logging.Info().Str("addr", cfg.Store.Addr).Msg("Connected to Redis interaction store")
	default:
		inner = store.NewMemoryStore()
		logging.Info().Msg("Using in-memory interaction store")
	}

	return store.NewResilientProvider(inner, cfg.Store.ResilientConfig())
}
