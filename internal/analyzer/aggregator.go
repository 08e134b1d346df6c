// Package analyzer maintains the in-memory symptom cohort built from mention
// events and serves co-occurrence rules and evidence assessments over HTTP.
package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor"
	"github.com/evidencelab/symptom-signal-platform/internal/mining"
	"github.com/evidencelab/symptom-signal-platform/internal/validation"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
)

// CohortState is the serializable snapshot of everything the aggregator has
// accumulated. Posts holds patient documents keyed by post ID, Papers holds
// literature documents; both map a document to its tag mention counts.
type CohortState struct {
	Posts      map[string]map[string]int `json:"posts"`
	Papers     map[string]map[string]int `json:"papers"`
	Subreddits map[string]int64          `json:"subreddits"`
	Version    int64                     `json:"version"`
	CapturedAt time.Time                 `json:"captured_at"`
}

// CohortStats summarizes the cohort for the stats endpoint.
type CohortStats struct {
	TotalPosts        int64      `json:"total_posts"`
	TaggedPosts       int64      `json:"tagged_posts"`
	TotalPapers       int64      `json:"total_papers"`
	DistinctTags      int        `json:"distinct_tags"`
	TopTags           []TagCount `json:"top_tags"`
	TopSubreddits     []TagCount `json:"top_subreddits"`
	MentionsPerMinute float64    `json:"mentions_per_minute"`
	DatasetVersion    int64      `json:"dataset_version"`
}

// TagCount pairs a label with how many documents carry it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// Aggregator accumulates mention events into the symptom cohort. Patient
// posts become mining transactions; papers only contribute literature counts.
type Aggregator struct {
	mu         sync.RWMutex
	posts      map[string]map[string]int
	papers     map[string]map[string]int
	postTags   map[string]int64 // tag -> distinct patient posts
	paperTags  map[string]int64 // tag -> distinct papers
	subreddits map[string]int64
	mentions   atomic.Int64
	version    atomic.Int64
	startTime  time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an empty cohort aggregator. The consumer may be nil
// when the aggregator is fed directly (tests, offline mining).
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		posts:      make(map[string]map[string]int),
		papers:     make(map[string]map[string]int),
		postTags:   make(map[string]int64),
		paperTags:  make(map[string]int64),
		subreddits: make(map[string]int64),
		startTime:  time.Now(),
		consumer:   consumer,
		logger:     slog.Default().With("component", "cohort-aggregator"),
	}
}

// Start enters the mention-event consume loop until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("cohort aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns the Kafka handler that feeds mention events into agg.
// Undecodable payloads are logged and committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[extractor.MentionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode mention event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one mention event into the cohort. Events are idempotent per
// post ID, so Kafka redeliveries cannot inflate counts.
func (a *Aggregator) Record(event extractor.MentionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch event.Source {
	case collector.SourcePubMed:
		if _, seen := a.papers[event.PostID]; seen {
			return
		}
		a.papers[event.PostID] = copyTagCounts(event.Symptoms)
		for tag := range event.Symptoms {
			a.paperTags[tag]++
		}
	default:
		if _, seen := a.posts[event.PostID]; seen {
			return
		}
		a.posts[event.PostID] = copyTagCounts(event.Symptoms)
		for tag := range event.Symptoms {
			a.postTags[tag]++
		}
		if event.Subreddit != "" {
			a.subreddits[event.Subreddit]++
		}
	}

	a.mentions.Add(int64(len(event.Symptoms)))
	a.version.Add(1)
}

// Records returns the patient cohort as mining input, sorted by post ID so
// the same cohort always yields the same transaction order. Tagless posts are
// included; the miner excludes them from support counting but they still
// widen the cohort total.
func (a *Aggregator) Records() []mining.PostRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]mining.PostRecord, 0, len(a.posts))
	for id, symptoms := range a.posts {
		records = append(records, mining.PostRecord{
			PostID:   id,
			Symptoms: copyTagCounts(symptoms),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PostID < records[j].PostID })
	return records
}

// Evidence returns per-tag report and literature counts for every tag seen in
// patient posts.
func (a *Aggregator) Evidence() []validation.Evidence {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := len(a.posts)
	evidence := make([]validation.Evidence, 0, len(a.postTags))
	for tag, count := range a.postTags {
		evidence = append(evidence, validation.Evidence{
			Tag:             tag,
			ReportCount:     int(count),
			TotalReports:    total,
			LiteratureCount: int(a.paperTags[tag]),
		})
	}
	sort.Slice(evidence, func(i, j int) bool { return evidence[i].Tag < evidence[j].Tag })
	return evidence
}

// Version returns the dataset version, bumped on every new document. Cache
// keys include it so stale rule sets age out as the cohort grows.
func (a *Aggregator) Version() int64 {
	return a.version.Load()
}

// Stats summarizes the cohort.
func (a *Aggregator) Stats() CohortStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var tagged int64
	for _, symptoms := range a.posts {
		if len(symptoms) > 0 {
			tagged++
		}
	}

	stats := CohortStats{
		TotalPosts:     int64(len(a.posts)),
		TaggedPosts:    tagged,
		TotalPapers:    int64(len(a.papers)),
		DistinctTags:   len(a.postTags),
		TopTags:        topN(a.postTags, 10),
		TopSubreddits:  topN(a.subreddits, 10),
		DatasetVersion: a.version.Load(),
	}
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.MentionsPerMinute = float64(a.mentions.Load()) / elapsed
	}
	return stats
}

// State captures a snapshot for persistence.
func (a *Aggregator) State() CohortState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	state := CohortState{
		Posts:      make(map[string]map[string]int, len(a.posts)),
		Papers:     make(map[string]map[string]int, len(a.papers)),
		Subreddits: make(map[string]int64, len(a.subreddits)),
		Version:    a.version.Load(),
		CapturedAt: time.Now().UTC(),
	}
	for id, symptoms := range a.posts {
		state.Posts[id] = copyTagCounts(symptoms)
	}
	for id, symptoms := range a.papers {
		state.Papers[id] = copyTagCounts(symptoms)
	}
	for name, count := range a.subreddits {
		state.Subreddits[name] = count
	}
	return state
}

// Restore replaces the cohort with a persisted snapshot. Used at startup so a
// restarted analyzer does not begin from an empty cohort.
func (a *Aggregator) Restore(state CohortState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.posts = make(map[string]map[string]int, len(state.Posts))
	a.papers = make(map[string]map[string]int, len(state.Papers))
	a.postTags = make(map[string]int64)
	a.paperTags = make(map[string]int64)
	a.subreddits = make(map[string]int64, len(state.Subreddits))

	var mentions int64
	for id, symptoms := range state.Posts {
		a.posts[id] = copyTagCounts(symptoms)
		for tag := range symptoms {
			a.postTags[tag]++
		}
		mentions += int64(len(symptoms))
	}
	for id, symptoms := range state.Papers {
		a.papers[id] = copyTagCounts(symptoms)
		for tag := range symptoms {
			a.paperTags[tag]++
		}
		mentions += int64(len(symptoms))
	}
	for name, count := range state.Subreddits {
		a.subreddits[name] = count
	}
	a.mentions.Store(mentions)
	a.version.Store(state.Version)

	a.logger.Info("cohort restored",
		"posts", len(a.posts),
		"papers", len(a.papers),
		"version", state.Version,
	)
}

func copyTagCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for tag, count := range src {
		dst[tag] = count
	}
	return dst
}

func topN(counts map[string]int64, n int) []TagCount {
	result := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		result = append(result, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
