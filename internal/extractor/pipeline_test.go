package extractor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor/normalize"
	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
)

type fakeExtractor struct {
	tags []string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) ([]string, error) {
	return f.tags, f.err
}

func (f *fakeExtractor) Model() string { return "fake-model" }

var testMetrics = metrics.New()

func newTestPipeline(llm TagExtractor) (*Pipeline, *MentionBatcher) {
	batcher := NewMentionBatcher(nil, 1000, time.Hour)
	return NewPipeline(llm, normalize.New(nil), batcher, testMetrics), batcher
}

func postEventPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(collector.PostEvent{
		PostID:    "post-1",
		Source:    collector.SourceReddit,
		Subreddit: "finasteride",
		Title:     "new side effects",
		Body:      "Foggy brain and trouble sleeping since month two.",
	})
	require.NoError(t, err)
	return raw
}

func TestPipelineTracksMention(t *testing.T) {
	pipeline, batcher := newTestPipeline(&fakeExtractor{tags: []string{"Foggy brain", "insomnia"}})

	err := pipeline.HandleEvent()(context.Background(), []byte("post-1"), postEventPayload(t))
	require.NoError(t, err)
	assert.Equal(t, 1, batcher.BufferLen())
}

func TestPipelineTaglessDocumentStillTracked(t *testing.T) {
	pipeline, batcher := newTestPipeline(&fakeExtractor{tags: nil})

	err := pipeline.HandleEvent()(context.Background(), []byte("post-1"), postEventPayload(t))
	require.NoError(t, err)
	assert.Equal(t, 1, batcher.BufferLen())
}

func TestPipelineExtractionFailure(t *testing.T) {
	pipeline, batcher := newTestPipeline(&fakeExtractor{err: apperrors.ErrExtractionFailed})

	err := pipeline.HandleEvent()(context.Background(), []byte("post-1"), postEventPayload(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.Equal(t, 0, batcher.BufferLen())
}

func TestPipelineMalformedPayloadCommitted(t *testing.T) {
	pipeline, batcher := newTestPipeline(&fakeExtractor{tags: []string{"fatigue"}})

	err := pipeline.HandleEvent()(context.Background(), []byte("k"), []byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, 0, batcher.BufferLen())
}
