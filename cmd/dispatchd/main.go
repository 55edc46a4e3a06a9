package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/aerial-dispatch-service/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/aerial-dispatch-service/internal/adapter/kafka"
	"github.com/couchcryptid/aerial-dispatch-service/internal/adapter/sqlitestore"
	"github.com/couchcryptid/aerial-dispatch-service/internal/config"
	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/observability"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	tables, err := refdata.Load(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load reference data", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	store := refdata.NewStore(tables)
	metrics.ReferenceCases.Set(float64(tables.Cases.Len()))
	metrics.LandingZones.Set(float64(len(tables.Zones)))
	logger.Info("reference data loaded",
		"cases", tables.Cases.Len(),
		"zones", len(tables.Zones),
		"target", tables.Target.Name,
	)

	// Audit sinks (feature-flagged via KAFKA_AUDIT_ENABLED / KAFKA_BROKERS
	// and AUDIT_SQLITE_PATH).
	var auditors []pipeline.Auditor

	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		auditors = append(auditors, kafkaWriter)
		logger.Info("kafka audit enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAuditTopic)
	} else {
		logger.Info("kafka audit disabled")
	}

	var auditStore *sqlitestore.Store
	if cfg.SQLitePath != "" {
		auditStore, err = sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open audit store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		auditors = append(auditors, auditStore)
		logger.Info("sqlite audit enabled", "path", cfg.SQLitePath)
	}

	thresholds := domain.Thresholds{
		MaxWeatherRiskPct:  cfg.MaxWeatherRiskPct,
		MinAirAdvantageMin: cfg.MinAirAdvantageMin,
	}
	decider := pipeline.New(store, auditors, logger, metrics, cfg.MatchThreshold, thresholds)

	srv := httpapi.NewServer(cfg.HTTPAddr, decider, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Watch the data directory for dataset updates.
	if cfg.DataWatch {
		watcher := refdata.NewWatcher(cfg.DataDir, store, logger, func(t *refdata.Tables, err error) {
			if err != nil {
				metrics.RefdataReloads.WithLabelValues("error").Inc()
				return
			}
			metrics.RefdataReloads.WithLabelValues("success").Inc()
			metrics.ReferenceCases.Set(float64(t.Cases.Len()))
			metrics.LandingZones.Set(float64(len(t.Zones)))
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Error("failed to start data watcher", "error", err)
			os.Exit(1)
		}
		logger.Info("data watcher started", "dir", cfg.DataDir)
	}

	// Start HTTP server.
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
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if auditStore != nil {
		if err := auditStore.Close(); err != nil {
			logger.Error("audit store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
