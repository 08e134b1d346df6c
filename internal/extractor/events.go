// Package extractor turns collected documents into normalized symptom
// mentions by running an LLM extraction pass over the text.
package extractor

import (
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
)

// MentionEvent is the Kafka message payload produced after symptom tags have
// been extracted and canonicalized for one document. Symptoms maps each
// canonical tag to its mention count within the document; downstream support
// counting uses only the key set.
type MentionEvent struct {
	PostID      string           `json:"post_id"`
	Source      collector.Source `json:"source"`
	Subreddit   string           `json:"subreddit,omitempty"`
	Symptoms    map[string]int   `json:"symptoms"`
	Model       string           `json:"model"`
	LatencyMs   int64            `json:"latency_ms"`
	ExtractedAt time.Time        `json:"extracted_at"`
}
