package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/taf-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/taf-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/taf-data-etl/internal/adapter/redis"
	"github.com/couchcryptid/taf-data-etl/internal/config"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
	"github.com/couchcryptid/taf-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Latest-forecast store (feature-flagged via REDIS_ENABLED / REDIS_ADDR).
	var (
		store       pipeline.ForecastStore
		lookup      httpadapter.ForecastReader
		redisClient interface{ Close() error }
	)
	if cfg.RedisEnabled {
		client := redis.NewClient(cfg)
		redisClient = client
		s := redis.NewStore(client, cfg.RedisTimeout, cfg.RedisTTL)
		if err := s.Ping(ctx); err != nil {
			logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		store, lookup = s, s
		metrics.StoreEnabled.Set(1)
		logger.Info("forecast store enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "max_ttl", cfg.RedisTTL)
	} else {
		logger.Info("forecast store disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	loader := pipeline.NewFanoutLoader(writer, store, logger, metrics)
	transformer := pipeline.NewTransformer(cfg.ParseWorkers, cfg.ParseCacheSize, logger, metrics)

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, lookup, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
