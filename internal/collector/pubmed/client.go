// Package pubmed wraps the NCBI E-utilities endpoints (esearch, esummary)
// used to collect paper records and literature-coverage counts. NCBI enforces
// a request-rate ceiling, so consecutive calls are spaced by a configured
// courtesy delay.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
	"github.com/evidencelab/symptom-signal-platform/pkg/resilience"
)

// Client talks to the NCBI E-utilities API.
type Client struct {
	cfg      config.PubMedConfig
	http     *http.Client
	breaker  *resilience.CircuitBreaker
	logger   *slog.Logger
	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a PubMed client.
func NewClient(cfg config.PubMedConfig) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker("pubmed", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "pubmed-client"),
	}
}

type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type summaryRecord struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	FullJournal string `json:"fulljournalname"`
	PubDate     string `json:"pubdate"`
}

// Search returns paper records matching the query, up to the configured page
// size.
func (c *Client) Search(ctx context.Context, query string) ([]collector.Paper, error) {
	var papers []collector.Paper
	err := c.breaker.Execute(func() error {
		ids, _, err := c.esearch(ctx, query, c.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			papers = []collector.Paper{}
			return nil
		}
		papers, err = c.esummary(ctx, query, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("searching pubmed for %q: %w", query, err)
	}
	c.logger.Debug("pubmed query fetched", "query", query, "papers", len(papers))
	return papers, nil
}

// Count returns the total number of papers matching a term. It distinguishes
// "zero results" (0, nil) from "the call failed" (0, err), which matters for
// literature-coverage scoring.
func (c *Client) Count(ctx context.Context, term string) (int, error) {
	_, count, err := c.esearch(ctx, term, 0)
	if err != nil {
		return 0, fmt.Errorf("counting pubmed results for %q: %w", term, err)
	}
	return count, nil
}

func (c *Client) esearch(ctx context.Context, term string, retMax int) ([]string, int, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(retMax))

	var parsed esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", params, &parsed); err != nil {
		return nil, 0, err
	}
	count, err := strconv.Atoi(parsed.ESearchResult.Count)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing esearch count %q: %w", parsed.ESearchResult.Count, err)
	}
	return parsed.ESearchResult.IDList, count, nil
}

func (c *Client) esummary(ctx context.Context, query string, ids []string) ([]collector.Paper, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("retmode", "json")
	idParam := ""
	for i, id := range ids {
		if i > 0 {
			idParam += ","
		}
		idParam += id
	}
	params.Set("id", idParam)

	var parsed esummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", params, &parsed); err != nil {
		return nil, err
	}

	// The result map keys are UIDs plus a "uids" index entry; iterate the
	// requested IDs to keep output order deterministic.
	papers := make([]collector.Paper, 0, len(ids))
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}
		var rec summaryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("skipping malformed summary record", "pmid", id, "error", err)
			continue
		}
		papers = append(papers, collector.Paper{
			PMID:    rec.UID,
			Title:   rec.Title,
			Journal: rec.FullJournal,
			PubDate: rec.PubDate,
			Query:   query,
		})
	}
	return papers, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	c.throttle()
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	return resilience.Retry(ctx, "pubmed-"+endpoint, resilience.RetryConfig{}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, endpoint, params.Encode()), nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return apperrors.Newf(apperrors.ErrRateLimited, resp.StatusCode, "ncbi rate limit on %s", endpoint)
		case resp.StatusCode != http.StatusOK:
			return apperrors.Newf(apperrors.ErrSourceUnavailable, resp.StatusCode, "ncbi returned %d for %s", resp.StatusCode, endpoint)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// throttle spaces calls by the configured courtesy delay.
func (c *Client) throttle() {
	if c.cfg.RequestDelay <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.cfg.RequestDelay - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}
