// Package integration contains tests that verify the interaction between
// multiple platform components. The analyzer tests wire the real event
// handler, aggregator, validation scorer, and HTTP middleware chain together,
// feeding events as raw Kafka payloads; only the brokers themselves are
// absent.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidencelab/symptom-signal-platform/internal/analyzer"
	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor"
	"github.com/evidencelab/symptom-signal-platform/internal/validation"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"github.com/evidencelab/symptom-signal-platform/pkg/middleware"
)

var testMetrics = metrics.New()

// newAnalyzerServer wires the analyzer HTTP stack the way cmd/analyzer does,
// minus Kafka, Redis, and PostgreSQL.
func newAnalyzerServer(t *testing.T, agg *analyzer.Aggregator) *httptest.Server {
	t.Helper()

	scorer := validation.NewScorer(config.ValidationConfig{})
	handler := analyzer.NewHandler(agg, nil, scorer, config.MiningConfig{
		MinSupport:     3,
		MinConfidence:  0.5,
		MinLift:        1.2,
		MaxItemsetSize: 5,
	}, testMetrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/rules", handler.Rules)
	mux.HandleFunc("GET /api/v1/symptoms", handler.Symptoms)
	mux.HandleFunc("GET /api/v1/stats", handler.Stats)

	var chain http.Handler = mux
	chain = middleware.Metrics(testMetrics)(chain)
	chain = middleware.RequestID(chain)

	server := httptest.NewServer(chain)
	t.Cleanup(server.Close)
	return server
}

// deliver feeds an event through the analyzer's Kafka handler as a raw JSON
// payload, the same path a broker delivery takes.
func deliver(t *testing.T, agg *analyzer.Aggregator, event extractor.MentionEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, analyzer.HandleEvent(agg)(context.Background(), []byte(event.PostID), payload))
}

func mention(id string, source collector.Source, tags ...string) extractor.MentionEvent {
	symptoms := make(map[string]int, len(tags))
	for _, tag := range tags {
		symptoms[tag]++
	}
	return extractor.MentionEvent{PostID: id, Source: source, Symptoms: symptoms}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestAnalyzerEndToEnd(t *testing.T) {
	agg := analyzer.NewAggregator(nil)
	for i := 0; i < 6; i++ {
		deliver(t, agg, mention(fmt.Sprintf("pair-%d", i), collector.SourceReddit, "acne", "hair_loss"))
	}
	for i := 0; i < 4; i++ {
		deliver(t, agg, mention(fmt.Sprintf("solo-%d", i), collector.SourceReddit, "fatigue"))
	}
	deliver(t, agg, mention("pm-1", collector.SourcePubMed, "hair_loss"))

	server := newAnalyzerServer(t, agg)

	var rules analyzer.RulesResponse
	resp := getJSON(t, server.URL+"/api/v1/rules", &rules)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, 10, rules.TotalTransactions)
	require.Len(t, rules.Rules, 2)
	assert.InDelta(t, 10.0/6.0, rules.Rules[0].Lift, 1e-9)

	var symptoms struct {
		Symptoms []validation.Assessment `json:"symptoms"`
	}
	getJSON(t, server.URL+"/api/v1/symptoms", &symptoms)
	require.Len(t, symptoms.Symptoms, 3)
	// acne: six reports, no literature coverage. It must outrank hair_loss,
	// which the one paper shifts to the emerging tier.
	assert.Equal(t, "acne", symptoms.Symptoms[0].Tag)
	assert.Equal(t, validation.TierAnecdotal, symptoms.Symptoms[0].Tier)

	var stats analyzer.CohortStats
	getJSON(t, server.URL+"/api/v1/stats", &stats)
	assert.EqualValues(t, 10, stats.TotalPosts)
	assert.EqualValues(t, 1, stats.TotalPapers)
}

func TestAnalyzerThresholdsNarrowRules(t *testing.T) {
	agg := analyzer.NewAggregator(nil)
	for i := 0; i < 6; i++ {
		deliver(t, agg, mention(fmt.Sprintf("pair-%d", i), collector.SourceReddit, "acne", "hair_loss"))
	}
	for i := 0; i < 4; i++ {
		deliver(t, agg, mention(fmt.Sprintf("solo-%d", i), collector.SourceReddit, "fatigue"))
	}
	server := newAnalyzerServer(t, agg)

	var rules analyzer.RulesResponse
	getJSON(t, server.URL+"/api/v1/rules?min_support=0.7", &rules)
	assert.Equal(t, 7, rules.MinSupportCount)
	assert.Empty(t, rules.Rules)

	resp, err := http.Get(server.URL + "/api/v1/rules?min_support=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzerRedeliveryIsIdempotent(t *testing.T) {
	agg := analyzer.NewAggregator(nil)
	event := mention("dup-1", collector.SourceReddit, "acne", "fatigue")
	deliver(t, agg, event)
	deliver(t, agg, event)

	server := newAnalyzerServer(t, agg)
	var stats analyzer.CohortStats
	getJSON(t, server.URL+"/api/v1/stats", &stats)
	assert.EqualValues(t, 1, stats.TotalPosts)
}
