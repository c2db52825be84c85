package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/cap-alert-pipeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cap-alert-pipeline/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/cap-alert-pipeline/internal/adapter/redis"
	"github.com/couchcryptid/cap-alert-pipeline/internal/config"
	"github.com/couchcryptid/cap-alert-pipeline/internal/dispatch"
	"github.com/couchcryptid/cap-alert-pipeline/internal/observability"
	"github.com/couchcryptid/cap-alert-pipeline/internal/pipeline"
	"github.com/couchcryptid/cap-alert-pipeline/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database is optional: without it the service still ingests and
	// disseminates, skipping persistence and the query API.
	var db *store.DB
	if cfg.HasStore() {
		db, err = store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			logger.Error("schema init failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")
	} else {
		logger.Warn("no DATABASE_URL, persistence and query API disabled")
	}

	// Interface fields must stay typed-nil-free: assign the concrete
	// value only inside the availability branch.
	var alertStore pipeline.AlertStore
	var sensorStore pipeline.SensorStore
	var alertQuerier httpadapter.AlertQuerier
	var sensorQuerier httpadapter.SensorQuerier
	if db != nil {
		alertStore = db
		sensorStore = db
		alertQuerier = db
		sensorQuerier = db
	}

	var publisher pipeline.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.HasBroker() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		logger.Warn("no KAFKA_BROKERS, dissemination disabled")
	}

	p := pipeline.New(alertStore, publisher, cfg.AlertTopicPrefix, logger, metrics)

	if cfg.HasBroker() {
		reader := kafkaadapter.NewReader(cfg.KafkaBrokers, cfg.AlertSourceTopic, cfg.AlertGroupID, logger)
		defer reader.Close()
		go func() {
			if err := p.Run(ctx, reader); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()

		if db != nil && len(cfg.SensorTopics) > 0 {
			recorder := pipeline.NewSensorRecorder(sensorStore, logger, metrics)
			listener := kafkaadapter.NewListener(cfg.KafkaBrokers, cfg.SensorTopics, cfg.SensorGroupID, recorder, logger)
			defer listener.Close()
			go func() {
				if err := listener.Run(ctx); err != nil {
					logger.Error("sensor listener error", "error", err)
				}
			}()
		}
	}

	// Dispatch needs both stored alerts and a broker to notify on.
	if db != nil && kafkaPublisher != nil {
		var marker dispatch.NotificationMarker
		if cfg.HasRedis() {
			m := redisadapter.NewMarker(cfg.RedisAddr, cfg.RedisPassword, cfg.DispatchTTL, logger)
			defer m.Close()
			if err := m.Ping(ctx); err != nil {
				logger.Warn("redis unreachable, dispatch dedup disabled", "error", err)
			} else {
				marker = m
			}
		}
		d := dispatch.New(db, db, kafkaPublisher, marker, cfg.DispatchInterval, logger, metrics)
		go func() {
			if err := d.Run(ctx); err != nil {
				logger.Error("dispatcher error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, alertQuerier, sensorQuerier, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
