package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-windspeed-predictor/internal/adapter/kafka"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/config"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/model"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/pipeline"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/predict"
)

// readiness is ready when every checker is.
type readiness []interface {
	CheckReadiness(ctx context.Context) error
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	artifact, err := model.Load(cfg.ModelPath, cfg.ModelInfoPath)
	if err != nil {
		logger.Error("failed to load model artifact", "error", err, "model_path", cfg.ModelPath)
		os.Exit(1)
	}
	summary := artifact.Summary()
	logger.Info("model artifact loaded",
		"model_type", summary.ModelType,
		"model_name", summary.ModelName,
		"kernel", summary.Kernel,
		"support_vectors", summary.SupportVectors,
		"trees", summary.Trees,
	)

	svc := predict.New(artifact, logger, metrics, predict.WithWorkers(cfg.BatchWorkers))

	var predictor httpadapter.Predictor = svc
	var streamPredictor predict.Predictor = svc
	if cfg.PredictionCacheSize > 0 {
		cached, err := predict.NewCachedPredictor(svc, cfg.PredictionCacheSize, cfg.BatchWorkers, metrics)
		if err != nil {
			logger.Error("failed to create prediction cache", "error", err)
			os.Exit(1)
		}
		predictor, streamPredictor = cached, cached
		logger.Info("prediction cache enabled", "cache_size", cfg.PredictionCacheSize)
	}

	ready := readiness{svc}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(streamPredictor), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, predictor, summary, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
