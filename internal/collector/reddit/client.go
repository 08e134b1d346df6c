// Package reddit fetches new submissions from subreddit listing endpoints.
// Requests are retried with backoff and guarded by a circuit breaker; a
// failed fetch is always surfaced as an error, never as an empty page.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
	"github.com/evidencelab/symptom-signal-platform/pkg/resilience"
)

// Client fetches subreddit listings over the public JSON API.
type Client struct {
	cfg     config.RedditConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a Client with the configured timeout and a circuit
// breaker shared across all subreddit fetches.
func NewClient(cfg config.RedditConfig) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker("reddit", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "reddit-client"),
	}
}

// listing mirrors the subset of the Reddit listing response the collector
// needs.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Subreddit  string  `json:"subreddit"`
				Title      string  `json:"title"`
				SelfText   string  `json:"selftext"`
				Author     string  `json:"author"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchNew returns the newest submissions for a subreddit, up to the
// configured page size.
func (c *Client) FetchNew(ctx context.Context, subreddit string) ([]collector.Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new.json", c.cfg.BaseURL, url.PathEscape(subreddit))

	var posts []collector.Post
	err := c.breaker.Execute(func() error {
		fetched, err := resilience.Do(ctx, "reddit-fetch", resilience.RetryConfig{}, func() ([]collector.Post, error) {
			return c.fetchPage(ctx, endpoint)
		})
		if err != nil {
			return err
		}
		posts = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
	}
	c.logger.Debug("subreddit page fetched", "subreddit", subreddit, "posts", len(posts))
	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) ([]collector.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", c.cfg.PageSize))
	q.Set("raw_json", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.Newf(apperrors.ErrRateLimited, resp.StatusCode, "reddit rate limit on %s", endpoint)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.Newf(apperrors.ErrSourceUnavailable, resp.StatusCode, "reddit returned %d for %s", resp.StatusCode, endpoint)
	}

	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	posts := make([]collector.Post, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		d := child.Data
		posts = append(posts, collector.Post{
			ExternalID: d.ID,
			Subreddit:  d.Subreddit,
			Title:      d.Title,
			Body:       d.SelfText,
			Author:     d.Author,
			Permalink:  d.Permalink,
			CreatedAt:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}
