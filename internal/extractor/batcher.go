package extractor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
)

// MentionBatcher accumulates mention events and flushes them to Kafka either
// when the batch reaches a configurable size or after a time interval.
type MentionBatcher struct {
	producer      *kafka.Producer
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

// NewMentionBatcher creates a batcher that flushes when the buffer reaches
// batchSize events or after flushInterval, whichever comes first.
func NewMentionBatcher(producer *kafka.Producer, batchSize int, flushInterval time.Duration) *MentionBatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &MentionBatcher{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "mention-batcher"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop. It returns immediately; the loop
// runs until ctx is cancelled, flushing once more on the way out.
func (b *MentionBatcher) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				b.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	b.logger.Info("mention batcher started",
		"batch_size", b.batchSize,
		"flush_interval", b.flushInterval,
	)
}

// Track adds a mention event to the buffer. If the buffer reaches batchSize,
// an immediate flush is triggered off the caller's goroutine.
func (b *MentionBatcher) Track(event MentionEvent) {
	b.mu.Lock()
	b.buffer = append(b.buffer, kafka.Event{Key: event.PostID, Value: event})
	shouldFlush := len(b.buffer) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		go b.flush(context.Background())
	}
}

// Close waits for the background flush loop to finish.
func (b *MentionBatcher) Close() {
	<-b.done
}

// BufferLen returns the current number of buffered events.
func (b *MentionBatcher) BufferLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

func (b *MentionBatcher) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buffer
	b.buffer = make([]kafka.Event, 0, b.batchSize)
	b.mu.Unlock()

	if err := b.producer.PublishBatch(ctx, batch); err != nil {
		b.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		// Re-queue failed events (best-effort, may drop on repeated failure).
		b.mu.Lock()
		b.buffer = append(batch, b.buffer...)
		if len(b.buffer) > b.batchSize*3 {
			dropped := len(b.buffer) - b.batchSize*3
			b.buffer = b.buffer[:b.batchSize*3]
			b.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		b.mu.Unlock()
		return
	}

	b.logger.Debug("batch flushed", "events", len(batch))
}
