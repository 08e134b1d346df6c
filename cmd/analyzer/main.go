// Command analyzer starts the symptom analysis service.
//
// It consumes mention events from Kafka into an in-memory cohort, restores
// the last persisted cohort snapshot from PostgreSQL at startup, and serves
// the analysis API:
//
//	GET  /api/v1/rules     co-occurrence rules (thresholds via query params)
//	GET  /api/v1/symptoms  evidence-tier assessments per tag
//	GET  /api/v1/stats     cohort summary
//	GET  /api/v1/cache/stats
//	POST /api/v1/cache/invalidate
//
// Mined rule sets are cached in Redis keyed by thresholds and cohort version.
//
// Usage:
//
//	go run ./cmd/analyzer [-config configs/development.yaml]
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

	"github.com/evidencelab/symptom-signal-platform/internal/analyzer"
	"github.com/evidencelab/symptom-signal-platform/internal/analyzer/cache"
	"github.com/evidencelab/symptom-signal-platform/internal/analyzer/store"
	"github.com/evidencelab/symptom-signal-platform/internal/validation"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/health"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
	"github.com/evidencelab/symptom-signal-platform/pkg/logger"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"github.com/evidencelab/symptom-signal-platform/pkg/middleware"
	"github.com/evidencelab/symptom-signal-platform/pkg/postgres"
	pkgredis "github.com/evidencelab/symptom-signal-platform/pkg/redis"
)

const snapshotInterval = 5 * time.Minute

// main restores the cohort, starts the mention-event consumer and periodic
// snapshotting, and serves the HTTP API until SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	// The cache is optional: the analyzer degrades to mining per request.
	var ruleCache *cache.RuleCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, rule caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		ruleCache = cache.New(redisClient, cfg.Redis)
		slog.Info("rule cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	aggregator := analyzer.NewAggregator(nil)
	cohortStore := store.NewStore(db)
	if state, err := cohortStore.LatestSnapshot(ctx); err != nil {
		slog.Error("failed to load cohort snapshot", "error", err)
	} else if state != nil {
		aggregator.Restore(*state)
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SymptomMentions, analyzer.HandleEvent(aggregator))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	slog.Info("mention consumer started", "topic", cfg.Kafka.Topics.SymptomMentions)

	cohortStore.StartPeriodicSave(ctx, aggregator, snapshotInterval)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	scorer := validation.NewScorer(cfg.Validation)
	handler := analyzer.NewHandler(aggregator, ruleCache, scorer, cfg.Mining, m)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/rules", handler.Rules)
	mux.HandleFunc("GET /api/v1/symptoms", handler.Symptoms)
	mux.HandleFunc("GET /api/v1/stats", handler.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", handler.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", handler.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analyzer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analyzer service stopped")
}
