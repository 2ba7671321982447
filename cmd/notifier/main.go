package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evently/cdc-pipeline/internal/api"
	"github.com/evently/cdc-pipeline/internal/config"
	"github.com/evently/cdc-pipeline/internal/gate"
	"github.com/evently/cdc-pipeline/internal/metrics"
	"github.com/evently/cdc-pipeline/internal/notifier"
	"github.com/evently/cdc-pipeline/internal/store"
	"github.com/evently/cdc-pipeline/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateNotifier(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	logger.Info("connected to PostgreSQL")

	// The send claim is optional: without Redis the flag check remains
	// the only duplicate-send defense.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = gate.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis, send claim enabled")
	}
	claims := gate.NewSendClaim(redisClient, logger)

	mailer := notifier.NewSMTPMailer(
		cfg.SMTPHost, cfg.SMTPPort,
		cfg.SMTPUser, cfg.SMTPPassword,
		cfg.FromEmail, cfg.FromName,
		logger,
	)

	supervisor := stream.NewSupervisor(stream.Config{
		Brokers: cfg.Brokers,
		Topic:   cfg.RegistrationTopic,
		GroupID: cfg.NotifierGroupID,
	}, logger)

	if err := supervisor.Connect(ctx); err != nil {
		logger.Error("failed to connect to change log", "error", err)
		os.Exit(1)
	}
	defer supervisor.Close()

	m := metrics.NewSet("notifier")

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

	consumer := notifier.New(supervisor, pg, mailer, claims, m, logger)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer terminated", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", "error", err)
	}

	logger.Info("notifier stopped")
}
