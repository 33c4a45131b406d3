package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/nikhaldi/mobility-growth/internal/adapter/http"
	kafkaadapter "github.com/nikhaldi/mobility-growth/internal/adapter/kafka"
	"github.com/nikhaldi/mobility-growth/internal/adapter/plot"
	"github.com/nikhaldi/mobility-growth/internal/adapter/source"
	"github.com/nikhaldi/mobility-growth/internal/config"
	"github.com/nikhaldi/mobility-growth/internal/observability"
	"github.com/nikhaldi/mobility-growth/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	svc := pipeline.NewService(cfg.DefaultParams, publisher, logger, metrics)
	renderer := plot.NewRenderer(logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, renderer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server. Health and metrics come up immediately; /readyz
	// turns ready once the datasets below are loaded.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	client := source.NewClient(cfg.CaseDataURL, cfg.MobilityDataURL, cfg.FetchTimeout, logger)

	cases, err := client.FetchCases(ctx)
	if err != nil {
		logger.Error("failed to fetch case data", "error", err)
		os.Exit(1)
	}
	mobility, err := client.FetchMobility(ctx)
	if err != nil {
		logger.Error("failed to fetch mobility data", "error", err)
		os.Exit(1)
	}
	svc.SetDatasets(cases, mobility)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
