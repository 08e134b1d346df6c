package extractor

import (
	"context"
	"log/slog"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor/normalize"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"github.com/evidencelab/symptom-signal-platform/pkg/tracing"
)

// TagExtractor is the LLM boundary: given document text, return the raw
// symptom phrases mentioned in it. Implemented by the llm package.
type TagExtractor interface {
	Extract(ctx context.Context, title, body string) ([]string, error)
	Model() string
}

// Pipeline consumes raw post events, runs extraction and normalization, and
// hands mention events to the batcher.
type Pipeline struct {
	llm        TagExtractor
	normalizer *normalize.Normalizer
	batcher    *MentionBatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewPipeline wires the extraction stages together.
func NewPipeline(llm TagExtractor, normalizer *normalize.Normalizer, batcher *MentionBatcher, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		llm:        llm,
		normalizer: normalizer,
		batcher:    batcher,
		metrics:    m,
		logger:     slog.Default().With("component", "extractor-pipeline"),
	}
}

// HandleEvent returns the Kafka message handler for the raw-posts topic. A
// failed extraction returns an error so the message is not committed; a
// document with no symptoms still produces a (tagless) mention event so the
// analyzer can count it toward cohort totals.
func (p *Pipeline) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[collector.PostEvent](value)
		if err != nil {
			// Malformed payloads are logged and committed; re-reading them
			// cannot succeed.
			p.logger.Error("failed to decode post event", "error", err)
			return nil
		}
		return p.process(ctx, event)
	}
}

func (p *Pipeline) process(ctx context.Context, event collector.PostEvent) error {
	ctx, span := tracing.StartSpan(ctx, "extract-document", event.PostID)
	span.SetAttr("source", string(event.Source))
	defer func() {
		span.End()
		span.Log()
	}()

	start := time.Now()
	raw, err := p.llm.Extract(ctx, event.Title, event.Body)
	latency := time.Since(start)
	p.metrics.ExtractionLatency.Observe(latency.Seconds())
	if err != nil {
		p.metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		p.logger.Error("extraction failed",
			"post_id", event.PostID,
			"source", event.Source,
			"error", err,
		)
		return err
	}

	symptoms := p.normalizer.NormalizeAll(raw)
	if len(symptoms) == 0 {
		p.metrics.ExtractionsTotal.WithLabelValues("empty").Inc()
	} else {
		p.metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
		p.metrics.MentionsTotal.WithLabelValues(string(event.Source)).Add(float64(len(symptoms)))
	}
	span.SetAttr("tags", len(symptoms))

	p.batcher.Track(MentionEvent{
		PostID:      event.PostID,
		Source:      event.Source,
		Subreddit:   event.Subreddit,
		Symptoms:    symptoms,
		Model:       p.llm.Model(),
		LatencyMs:   latency.Milliseconds(),
		ExtractedAt: time.Now().UTC(),
	})
	p.logger.Debug("document extracted",
		"post_id", event.PostID,
		"source", event.Source,
		"tags", len(symptoms),
		"latency_ms", latency.Milliseconds(),
	)
	return nil
}
