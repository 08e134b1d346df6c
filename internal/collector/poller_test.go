package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
)

var pollerMetrics = metrics.New()

type fakeReddit struct {
	posts map[string][]Post
	err   error
}

func (f *fakeReddit) FetchNew(_ context.Context, subreddit string) ([]Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[subreddit], nil
}

type fakePubMed struct {
	papers []Paper
	err    error
}

func (f *fakePubMed) Search(_ context.Context, _ string) ([]Paper, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.papers, nil
}

type recordingSink struct {
	mu     sync.Mutex
	posts  []Post
	papers []Paper
}

func (s *recordingSink) PublishPost(_ context.Context, post Post) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, post)
	return true, nil
}

func (s *recordingSink) PublishPaper(_ context.Context, paper Paper) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers = append(s.papers, paper)
	return true, nil
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts), len(s.papers)
}

func testPollerConfigs() (config.RedditConfig, config.PubMedConfig) {
	return config.RedditConfig{
			Subreddits:   []string{"tressless", "HairlossResearch"},
			PollInterval: time.Hour,
		}, config.PubMedConfig{
			Queries:      []string{"finasteride adverse effects"},
			PollInterval: time.Hour,
		}
}

func TestPollerRunsImmediateCycle(t *testing.T) {
	rcfg, pcfg := testPollerConfigs()
	sink := &recordingSink{}
	poller := NewPoller(
		&fakeReddit{posts: map[string][]Post{
			"tressless":        {{ExternalID: "a"}, {ExternalID: "b"}},
			"HairlossResearch": {{ExternalID: "c"}},
		}},
		&fakePubMed{papers: []Paper{{PMID: "1"}}},
		sink, rcfg, pcfg, pollerMetrics,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	poller.Run(ctx)

	posts, papers := sink.counts()
	assert.Equal(t, 3, posts)
	assert.Equal(t, 1, papers)
}

func TestPollerSourceFailureDoesNotAbortCycle(t *testing.T) {
	rcfg, pcfg := testPollerConfigs()
	sink := &recordingSink{}
	poller := NewPoller(
		&fakeReddit{err: apperrors.ErrSourceUnavailable},
		&fakePubMed{papers: []Paper{{PMID: "1"}, {PMID: "2"}}},
		sink, rcfg, pcfg, pollerMetrics,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	poller.Run(ctx)

	posts, papers := sink.counts()
	assert.Equal(t, 0, posts)
	assert.Equal(t, 2, papers)
}
