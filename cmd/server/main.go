package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turntable-server/turntable/internal/config"
	"github.com/turntable-server/turntable/internal/handler"
	"github.com/turntable-server/turntable/internal/kafka"
	"github.com/turntable-server/turntable/internal/postgres"
	"github.com/turntable-server/turntable/internal/presence"
	"github.com/turntable-server/turntable/internal/service"
	"github.com/turntable-server/turntable/internal/websocket"
	"github.com/turntable-server/turntable/internal/worker"
)

const version = "1.4.2"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Authoritative store
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Presence cache owned by the realtime server
	logger.Info("connecting to presence cache", "addr", cfg.Redis.Addr)
	presenceClient, err := presence.New(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to presence cache", "error", err)
		os.Exit(1)
	}
	defer presenceClient.Close()

	// Event feed for the realtime server
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Latest-activity sink: Kafka when enabled, in-process batching
	// writer otherwise.
	var activity handler.ActivitySink
	var producer *kafka.Producer
	activityWriter := worker.NewActivityWriter(repo, &cfg.Activity, logger)
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, falling back to direct writes", "error", err)
		}
	}
	if producer != nil {
		activity = producer
		logger.Info("activity events routed through Kafka", "topic", cfg.Kafka.Topic)
	} else {
		activityWriter.Start(ctx)
		activity = activityWriter
	}

	leaderboard := service.NewLeaderboard(
		repo,
		repo,
		repo,
		cfg.Leaderboard.ScoreLimit,
		logger,
	)

	httpHandler := handler.NewHandler(
		leaderboard,
		repo,
		presenceClient,
		activity,
		hub,
		hub,
		version,
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	hub.Stop()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	} else {
		activityWriter.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
