package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/mapbox"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/memstore"
	redisadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/redis"
	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/workflow"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	var checks readinessChecks

	// Draft store.
	var repo workflow.DraftRepository
	var redisStore *redisadapter.Store
	switch cfg.DraftStore {
	case config.DraftStoreRedis:
		redisStore, err = redisadapter.NewStore(cfg.RedisURL, cfg.DraftKey, cfg.DraftTimestampKey)
		if err != nil {
			logger.Error("failed to create redis draft store", "error", err)
			os.Exit(1)
		}
		repo = redisStore
		checks = append(checks, redisStore)
		logger.Info("draft store: redis", "draft_key", cfg.DraftKey)
	default:
		repo = memstore.New(cfg.DraftKey, cfg.DraftTimestampKey)
		logger.Info("draft store: memory")
	}

	// Report ingestion.
	var submitter workflow.Submitter
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, clock, logger)
		submitter = publisher
		logger.Info("kafka report publishing enabled", "topic", cfg.KafkaReportTopic, "brokers", cfg.KafkaBrokers)
	} else {
		submitter = workflow.NewSimulatedSubmitter(clock, cfg.SubmitDelay)
		logger.Info("simulated report submission", "delay", cfg.SubmitDelay)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	form := workflow.NewForm(repo, submitter, geocoder, clock, cfg.SaveDelay, logger, metrics)
	checks = append(checks, form)
	autosaver := workflow.NewAutoSaver(form, cfg.AutosaveInterval, clock, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, form, checks, cfg.AllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	form.LoadDraft(ctx)
	autosaver.Start(ctx)

	// Start HTTP server.
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
	autosaver.Stop()

	// Keep whatever was typed since the last tick.
	if _, err := form.AutoSave(shutdownCtx); err != nil {
		logger.Error("final draft save failed", "error", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readinessChecks is ready when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (c readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
