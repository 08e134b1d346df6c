package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// RedditFetcher is the subreddit-listing boundary implemented by the reddit
// client.
type RedditFetcher interface {
	FetchNew(ctx context.Context, subreddit string) ([]Post, error)
}

// PubMedSearcher is the literature-search boundary implemented by the pubmed
// client.
type PubMedSearcher interface {
	Search(ctx context.Context, query string) ([]Paper, error)
}

// Sink receives fetched documents; implemented by the publisher.
type Sink interface {
	PublishPost(ctx context.Context, post Post) (bool, error)
	PublishPaper(ctx context.Context, paper Paper) (bool, error)
}

// Poller drives periodic collection from both sources. Each source has its
// own interval; subreddits and queries within a cycle are fetched
// concurrently, and a single source failing does not abort the cycle.
type Poller struct {
	reddit  RedditFetcher
	pubmed  PubMedSearcher
	sink    Sink
	rcfg    config.RedditConfig
	pcfg    config.PubMedConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPoller wires the fetchers and sink into a Poller.
func NewPoller(reddit RedditFetcher, pubmed PubMedSearcher, sink Sink, rcfg config.RedditConfig, pcfg config.PubMedConfig, m *metrics.Metrics) *Poller {
	return &Poller{
		reddit:  reddit,
		pubmed:  pubmed,
		sink:    sink,
		rcfg:    rcfg,
		pcfg:    pcfg,
		metrics: m,
		logger:  slog.Default().With("component", "poller"),
	}
}

// Run executes an immediate collection cycle for both sources, then polls on
// each source's interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.collectReddit(ctx)
	p.collectPubMed(ctx)

	redditTicker := time.NewTicker(p.rcfg.PollInterval)
	defer redditTicker.Stop()
	pubmedTicker := time.NewTicker(p.pcfg.PollInterval)
	defer pubmedTicker.Stop()

	for {
		select {
		case <-redditTicker.C:
			p.collectReddit(ctx)
		case <-pubmedTicker.C:
			p.collectPubMed(ctx)
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return
		}
	}
}

func (p *Poller) collectReddit(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, subreddit := range p.rcfg.Subreddits {
		g.Go(func() error {
			posts, err := p.reddit.FetchNew(gctx, subreddit)
			if err != nil {
				p.metrics.FetchErrorsTotal.WithLabelValues("reddit").Inc()
				p.logger.Error("reddit fetch failed", "subreddit", subreddit, "error", err)
				return nil
			}
			fresh := 0
			for _, post := range posts {
				inserted, err := p.sink.PublishPost(gctx, post)
				if err != nil {
					p.logger.Error("failed to publish post", "external_id", post.ExternalID, "error", err)
					continue
				}
				if inserted {
					fresh++
				}
			}
			p.metrics.PostsFetchedTotal.WithLabelValues(subreddit).Add(float64(fresh))
			p.logger.Info("subreddit collected",
				"subreddit", subreddit,
				"fetched", len(posts),
				"new", fresh,
			)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) collectPubMed(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, query := range p.pcfg.Queries {
		g.Go(func() error {
			papers, err := p.pubmed.Search(gctx, query)
			if err != nil {
				p.metrics.FetchErrorsTotal.WithLabelValues("pubmed").Inc()
				p.logger.Error("pubmed search failed", "query", query, "error", err)
				return nil
			}
			fresh := 0
			for _, paper := range papers {
				inserted, err := p.sink.PublishPaper(gctx, paper)
				if err != nil {
					p.logger.Error("failed to publish paper", "pmid", paper.PMID, "error", err)
					continue
				}
				if inserted {
					fresh++
				}
			}
			p.metrics.PapersFetchedTotal.Add(float64(fresh))
			p.logger.Info("pubmed query collected",
				"query", query,
				"fetched", len(papers),
				"new", fresh,
			)
			return nil
		})
	}
	_ = g.Wait()
}
