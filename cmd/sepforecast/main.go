package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	chadapter "github.com/couchcryptid/sep-forecast-service/internal/adapter/clickhouse"
	httpadapter "github.com/couchcryptid/sep-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sep-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/sep-forecast-service/internal/config"
	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/model"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
	"github.com/couchcryptid/sep-forecast-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	table, err := model.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("failed to load model", "error", err, "path", cfg.ModelPath)
		os.Exit(1)
	}
	metrics.ModelInfo.WithLabelValues(table.Version).Set(1)
	logger.Info("model loaded", "version", table.Version, "path", cfg.ModelPath)

	var forecaster domain.Forecaster = domain.NewProbabilityEngine(table)
	if cfg.ForecastCacheSize > 0 {
		forecaster = pipeline.NewCachedForecaster(forecaster, cfg.ForecastCacheSize, metrics)
		logger.Info("forecast cache enabled", "max_entries", cfg.ForecastCacheSize)
	}
	characterizer := domain.NewCharacteristicsEngine(table)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	var loader pipeline.BatchLoader = writer
	var archive *chadapter.Archive
	if cfg.ArchiveEnabled() {
		archive, err = chadapter.Dial(ctx, cfg, metrics, logger)
		if err != nil {
			logger.Error("failed to connect archive", "error", err)
			os.Exit(1)
		}
		if err := archive.EnsureTable(ctx); err != nil {
			logger.Error("failed to prepare archive table", "error", err)
			os.Exit(1)
		}
		loader = pipeline.NewTeeLoader(writer, logger, archive)
		logger.Info("clickhouse archive enabled", "addr", cfg.ClickHouseAddr, "table", cfg.ClickHouseTable)
	}

	transformer := pipeline.NewTransformer(forecaster, characterizer, cfg.ForecastWorkers, logger)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	engines := httpadapter.Engines{Forecaster: forecaster, Characterizer: characterizer, Workers: cfg.ForecastWorkers}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, engines, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start forecast pipeline.
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
	if archive != nil {
		if err := archive.Close(); err != nil {
			logger.Error("clickhouse close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
