// Command extractor starts the symptom extraction service.
//
// It consumes raw documents from Kafka, extracts symptom phrases with an LLM,
// normalizes them to canonical tags, and publishes mention events to a second
// Kafka topic in batches. Health endpoints are served at GET /health/live and
// GET /health/ready.
//
// Usage:
//
//	go run ./cmd/extractor [-config configs/development.yaml]
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

	"github.com/evidencelab/symptom-signal-platform/internal/extractor"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor/llm"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor/normalize"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/health"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
	"github.com/evidencelab/symptom-signal-platform/pkg/logger"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
)

const (
	mentionBatchSize     = 50
	mentionFlushInterval = 5 * time.Second
)

// main wires the extraction pipeline: Kafka consumer for raw posts, the LLM
// client, the tag normalizer, and the batched mention producer. Graceful
// shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting extractor service", "model", cfg.LLM.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		slog.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SymptomMentions)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.SymptomMentions)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	batcher := extractor.NewMentionBatcher(producer, mentionBatchSize, mentionFlushInterval)
	batcher.Start(ctx)

	pipeline := extractor.NewPipeline(llmClient, normalize.New(nil), batcher, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PostsRaw, pipeline.HandleEvent())

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

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

	slog.Info("extractor consuming", "topic", cfg.Kafka.Topics.PostsRaw)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	// Drain buffered mentions before exiting.
	batcher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("extractor service stopped")
}
