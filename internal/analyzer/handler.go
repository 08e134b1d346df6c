package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/analyzer/cache"
	"github.com/evidencelab/symptom-signal-platform/internal/mining"
	"github.com/evidencelab/symptom-signal-platform/internal/validation"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	"github.com/evidencelab/symptom-signal-platform/pkg/logger"
	"github.com/evidencelab/symptom-signal-platform/pkg/metrics"
	"github.com/evidencelab/symptom-signal-platform/pkg/tracing"
)

// RulesResponse is the payload for the rules endpoint.
type RulesResponse struct {
	Rules             []mining.Rule `json:"rules"`
	TotalTransactions int           `json:"total_transactions"`
	MinSupportCount   int           `json:"min_support_count"`
	MinConfidence     float64       `json:"min_confidence"`
	MinLift           float64       `json:"min_lift"`
	DatasetVersion    int64         `json:"dataset_version"`
	CacheHit          bool          `json:"cache_hit"`
}

// Handler exposes the analyzer's HTTP API: mined rules, evidence-tier
// assessments, and cohort stats.
type Handler struct {
	aggregator *Aggregator
	cache      *cache.RuleCache
	scorer     *validation.Scorer
	defaults   config.MiningConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewHandler creates the analyzer API handler. The cache may be nil; rules
// are then mined on every request.
func NewHandler(agg *Aggregator, ruleCache *cache.RuleCache, scorer *validation.Scorer, defaults config.MiningConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		aggregator: agg,
		cache:      ruleCache,
		scorer:     scorer,
		defaults:   defaults,
		metrics:    m,
		logger:     slog.Default().With("component", "analyzer-handler"),
	}
}

// Rules serves co-occurrence rules mined from the patient cohort. Thresholds
// default from config and can be overridden per request via min_support,
// min_confidence, min_lift, and max_itemset_size query parameters; a
// min_support in (0, 1] is a fraction of the cohort, larger values are an
// absolute post count.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	th := mining.Thresholds{
		MinSupport:     h.defaults.MinSupport,
		MinConfidence:  h.defaults.MinConfidence,
		MinLift:        h.defaults.MinLift,
		MaxItemsetSize: h.defaults.MaxItemsetSize,
	}
	if err := parseThresholds(r, &th); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	version := h.aggregator.Version()
	compute := func() (*cache.RuleSet, error) {
		return h.mine(th, version)
	}

	var result *cache.RuleSet
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, th, version, compute)
		if cacheHit {
			h.metrics.RuleCacheHitsTotal.Inc()
		} else {
			h.metrics.RuleCacheMissesTotal.Inc()
		}
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("rule mining failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "rule mining failed")
		return
	}

	log.Info("rules served",
		"rules", len(result.Rules),
		"transactions", result.TotalTransactions,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	h.writeJSON(w, http.StatusOK, RulesResponse{
		Rules:             result.Rules,
		TotalTransactions: result.TotalTransactions,
		MinSupportCount:   result.MinSupportCount,
		MinConfidence:     th.MinConfidence,
		MinLift:           th.MinLift,
		DatasetVersion:    result.DatasetVersion,
		CacheHit:          cacheHit,
	})
}

// mine runs the association miner over the current cohort.
func (h *Handler) mine(th mining.Thresholds, version int64) (*cache.RuleSet, error) {
	_, span := tracing.StartSpan(context.Background(), "mine-cohort", fmt.Sprintf("cohort-v%d", version))
	defer func() {
		span.End()
		span.Log()
	}()

	start := time.Now()
	records := h.aggregator.Records()
	transactions, err := mining.TransactionsFromRecords(records)
	if err != nil {
		return nil, err
	}
	span.SetAttr("transactions", len(transactions))

	rules := mining.Mine(transactions, th)
	span.SetAttr("rules", len(rules))
	h.metrics.MiningRunsTotal.WithLabelValues("api").Inc()
	h.metrics.MiningDuration.Observe(time.Since(start).Seconds())
	h.metrics.RulesReturned.Observe(float64(len(rules)))

	return &cache.RuleSet{
		Rules:             rules,
		TotalTransactions: len(transactions),
		MinSupportCount:   mining.AbsoluteSupport(th.MinSupport, len(transactions)),
		DatasetVersion:    version,
	}, nil
}

// Symptoms serves evidence-tier assessments for every tag in the cohort,
// ordered by surprise score.
func (h *Handler) Symptoms(w http.ResponseWriter, r *http.Request) {
	assessments := h.scorer.ScoreAll(h.aggregator.Evidence())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"symptoms":        assessments,
		"dataset_version": h.aggregator.Version(),
	})
}

// Stats serves cohort summary statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// CacheStats reports rule-cache hit rates.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate drops all cached rule sets.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func parseThresholds(r *http.Request, th *mining.Thresholds) error {
	q := r.URL.Query()
	if v := q.Get("min_support"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return errBadParam("min_support must be a positive number")
		}
		th.MinSupport = parsed
	}
	if v := q.Get("min_confidence"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return errBadParam("min_confidence must be in [0, 1]")
		}
		th.MinConfidence = parsed
	}
	if v := q.Get("min_lift"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return errBadParam("min_lift must be a non-negative number")
		}
		th.MinLift = parsed
	}
	if v := q.Get("max_itemset_size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 2 {
			return errBadParam("max_itemset_size must be an integer >= 2")
		}
		th.MaxItemsetSize = parsed
	}
	return nil
}

type errBadParam string

func (e errBadParam) Error() string { return string(e) }

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
