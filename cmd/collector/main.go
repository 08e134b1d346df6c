// Command collector starts the document collection service.
//
// It polls configured subreddits and PubMed queries on independent intervals,
// deduplicates documents against PostgreSQL, and publishes new ones to a
// Kafka topic for downstream symptom extraction. Health endpoints are served
// at GET /health/live and GET /health/ready.
//
// Usage:
//
//	go run ./cmd/collector [-config configs/development.yaml]
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

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/collector/publisher"
	"github.com/evidencelab/symptom-signal-platform/internal/collector/pubmed"
	"github.com/evidencelab/symptom-signal-platform/internal/collector/reddit"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/health"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
	"github.com/evidencelab/symptom-signal-platform/pkg/logger"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"github.com/evidencelab/symptom-signal-platform/pkg/postgres"
)

// main loads configuration, connects to PostgreSQL, creates the Kafka
// producer, wires the source clients into the poller, and runs until
// SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting collector service", "subreddits", cfg.Reddit.Subreddits, "queries", cfg.PubMed.Queries)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PostsRaw)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.PostsRaw)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	sink := publisher.New(db, producer)
	poller := collector.NewPoller(
		reddit.NewClient(cfg.Reddit),
		pubmed.NewClient(cfg.PubMed),
		sink,
		cfg.Reddit,
		cfg.PubMed,
		m,
	)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	poller.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("collector service stopped")
}
