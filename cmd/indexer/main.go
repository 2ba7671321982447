package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evently/cdc-pipeline/internal/api"
	"github.com/evently/cdc-pipeline/internal/cdc"
	"github.com/evently/cdc-pipeline/internal/config"
	"github.com/evently/cdc-pipeline/internal/indexer"
	"github.com/evently/cdc-pipeline/internal/metrics"
	"github.com/evently/cdc-pipeline/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateIndexer(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := stream.NewSupervisor(stream.Config{
		Brokers: cfg.Brokers,
		Topic:   cfg.EventTopic,
		GroupID: cfg.IndexerGroupID,
	}, logger)

	if err := supervisor.Connect(ctx); err != nil {
		logger.Error("failed to connect to change log", "error", err)
		os.Exit(1)
	}
	defer supervisor.Close()

	m := metrics.NewSet("indexer")

	opsServer := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      api.NewRouter(supervisor.Ready, m.Registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", "port", cfg.OpsPort)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
		}
	}()

	converter := cdc.NewConverter(cfg.Location, logger)
	sink := indexer.NewWeaviateClient(cfg.WeaviateURL, cfg.WeaviateClass, logger)

	consumer := indexer.New(supervisor, sink, converter, m, logger)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer terminated", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", "error", err)
	}

	logger.Info("indexer stopped")
}
