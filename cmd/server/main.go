// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package main is the entry point for the Scene Plus Engine server.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings via Koanf v2 (defaults, config.yaml,
//     SCENEPLUS_ environment variables)
//  2. Event store: DuckDB database for offer event history and analytics
//  3. Deduplication: BadgerDB TTL store for event idempotency keys
//  4. Model store: versioned on-disk persistence of the segmentation model,
//     with the latest version restored on boot
//  5. Engines: segmentation (k-means) and offer generation
//  6. Supervisor tree: event appender and HTTP server under suture
//
// Graceful shutdown on SIGINT/SIGTERM drains buffered events and waits for
// in-flight requests.
//
// Example usage:
//
//	export SCENEPLUS_SERVER_PORT=8420
//	export SCENEPLUS_EVENTS_DATABASE_PATH=/data/events.duckdb
//	export SCENEPLUS_SEGMENTATION_MODEL_DIR=/data/models
//	./scene-plus-engine
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/NandaKumar8776/scene-plus-engine/internal/api"
	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
	"github.com/NandaKumar8776/scene-plus-engine/internal/events"
	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/modelstore"
	"github.com/NandaKumar8776/scene-plus-engine/internal/offers"
	"github.com/NandaKumar8776/scene-plus-engine/internal/segmentation"
	"github.com/NandaKumar8776/scene-plus-engine/internal/supervisor"
	"github.com/NandaKumar8776/scene-plus-engine/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Events.DatabasePath).
		Str("model_dir", cfg.Segmentation.ModelDir).
		Int("clusters", cfg.Segmentation.Clusters).
		Msg("Configuration loaded")

	// Event store (DuckDB).
	eventStore, err := events.OpenStore(cfg.Events.DatabasePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := eventStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	// Deduplication store. Badger when a path is configured, memory otherwise.
	var deduper events.Deduper
	if cfg.Events.DedupPath != "" {
		badgerDB, err := badger.Open(badger.DefaultOptions(cfg.Events.DedupPath).WithLogger(nil))
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Events.DedupPath).Msg("Failed to open dedup store")
		}
		defer func() {
			if err := badgerDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing dedup store")
			}
		}()
		deduper = events.NewBadgerDeduper(badgerDB, "")
	} else {
		logging.Warn().Msg("No dedup path configured, event deduplication is in-memory only")
		deduper = events.NewMemoryDeduper()
	}
	defer func() {
		if err := deduper.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing deduper")
		}
	}()

	// Event fan-out bus and persistence pipeline.
	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	appender, err := events.NewAppender(eventStore, events.AppenderConfig{
		BatchSize:     cfg.Events.BatchSize,
		FlushInterval: cfg.Events.FlushInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event appender")
	}
	recorder := events.NewRecorder(deduper, appender, bus, cfg.Events.DedupTTL)

	// Model store, restoring the latest trained model if one exists.
	modelStore, err := modelstore.NewStore(cfg.Segmentation.ModelDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open model store")
	}

	segEngine := segmentation.NewEngine(cfg.Segmentation)
	if version, ok := modelStore.LatestVersion(segmentation.ModelName); ok {
		var state segmentation.State
		if _, err := modelStore.Load(segmentation.ModelName, version, &state); err != nil {
			logging.Error().Err(err).Int("version", version).Msg("Failed to load persisted model")
		} else if err := segEngine.Restore(&state); err != nil {
			logging.Error().Err(err).Int("version", version).Msg("Failed to restore persisted model")
		} else {
			logging.Info().
				Int("version", version).
				Time("trained_at", state.TrainedAt).
				Msg("Restored segmentation model")
		}
	} else {
		logging.Info().Msg("No persisted segmentation model, starting untrained")
	}

	offerEngine := offers.NewEngine(cfg.Offers)

	// HTTP surface.
	handler := api.NewHandler(cfg, segEngine, offerEngine, recorder, eventStore, modelStore)
	router := api.NewRouter(cfg, handler)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Debug tap on the event bus. Keeps a subscriber attached so published
	// events are observable without the persistence path.
	go tapEventBus(ctx, bus)

	// Supervisor tree: event persistence and the API listener.
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	tree.AddEventService(services.NewAppenderService(appender, 10*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Engine stopped gracefully")
}

// tapEventBus logs every offer event published on the bus at debug level.
func tapEventBus(ctx context.Context, bus *events.Bus) {
	messages, err := bus.Subscribe(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to subscribe to event bus")
		return
	}
	for msg := range messages {
		event, err := events.DecodeEvent(msg)
		if err != nil {
			logging.Warn().Err(err).Msg("Undecodable event on bus")
			msg.Ack()
			continue
		}
		logging.Debug().
			Str("event_id", event.EventID).
			Str("event_type", string(event.EventType)).
			Str("offer_type", string(event.OfferType)).
			Str("customer_id", event.CustomerID).
			Msg("Offer event published")
		msg.Ack()
	}
}
