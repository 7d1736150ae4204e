package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ltmtri/vnspend/internal/calibrate"
	"github.com/ltmtri/vnspend/internal/cascade"
	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/config"
	"github.com/ltmtri/vnspend/internal/discovery"
	"github.com/ltmtri/vnspend/internal/external"
	"github.com/ltmtri/vnspend/internal/feedback"
	"github.com/ltmtri/vnspend/internal/monitor"
	"github.com/ltmtri/vnspend/internal/normalize"
	"github.com/ltmtri/vnspend/internal/storage"
)

// initStorage opens the SQLite store and applies pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	cfg := config.LoadClassifier()

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, common.NewUserError("could not open the local database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("could not migrate the local database", err)
	}

	return store, nil
}

// buildRegistry combines the built-in catalog with categories created from
// approved suggestions.
func buildRegistry(ctx context.Context, normalizer *normalize.Normalizer, store *storage.SQLiteStorage) (*classify.Registry, error) {
	entries := classify.DefaultEntries()

	created, err := store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, cat := range created {
		entries = append(entries, classify.Entry{Category: cat, Weight: 1.0})
	}

	return classify.NewRegistry(normalizer, entries), nil
}

// buildOrchestrator assembles the full cascade from configuration. External
// layers are only attached when their endpoints are configured; their absence
// is a normal runtime condition.
func buildOrchestrator(ctx context.Context, store *storage.SQLiteStorage) (*cascade.Orchestrator, func(), error) {
	cfg := config.LoadClassifier()
	normalizer := normalize.New()

	registry, err := buildRegistry(ctx, normalizer, store)
	if err != nil {
		return nil, nil, err
	}

	layers := []cascade.Layer{
		classify.NewKeyword(registry, normalizer, nil),
		classify.NewFuzzy(registry, normalizer, cfg.FuzzyThreshold, nil),
	}

	var closers []func()
	if cfg.FastURL != "" {
		client, err := external.NewFastClient(cfg.FastURL, nil)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		layers = append(layers, cascade.NewExternalFastLayer(client, registry, normalizer, cfg.ExternalTimeout))
	}
	if cfg.AnthropicAPIKey != "" {
		client, err := external.NewLLMClient(external.LLMConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.LLMModel,
			RateLimit: cfg.LLMRequestsPerMinute,
			CacheTTL:  cfg.LLMCacheTTL,
		}, registry.Categories(), nil)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		layers = append(layers, cascade.NewExternalLLMLayer(client, registry, normalizer, cfg.ExternalTimeout))
	}

	recorder := monitor.NewRecorder(monitor.NewMetrics(prometheus.DefaultRegisterer), nil)

	learner := feedback.NewLearner(normalizer, store, recorder, nil)
	if err := learner.Replay(ctx); err != nil {
		return nil, nil, err
	}

	discoverer, err := discovery.NewDiscoverer(normalizer, store, nil, registry.Categories(), nil)
	if err != nil {
		return nil, nil, err
	}

	orchestrator, err := cascade.New(cascade.Config{
		Layers:     layers,
		Calibrator: calibrate.New(cfg.Temperature, nil),
		Registry:   registry,
		Learner:    learner,
		Discoverer: discoverer,
		Recorder:   recorder,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}
	return orchestrator, cleanup, nil
}
