// Package cache provides a Redis-backed cache for mined rule sets, with
// singleflight collapsing so concurrent requests for the same thresholds run
// the miner once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/evidencelab/symptom-signal-platform/internal/mining"
	"github.com/evidencelab/symptom-signal-platform/pkg/config"
	pkgredis "github.com/evidencelab/symptom-signal-platform/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "rules:"

// RuleSet is the cached mining result for one threshold combination.
type RuleSet struct {
	Rules             []mining.Rule `json:"rules"`
	TotalTransactions int           `json:"total_transactions"`
	MinSupportCount   int           `json:"min_support_count"`
	DatasetVersion    int64         `json:"dataset_version"`
}

// RuleCache caches mined rule sets in Redis, keyed by the mining thresholds
// and the cohort's dataset version. A growing cohort naturally changes the
// key, so stale entries are never served and simply expire.
type RuleCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a rule cache over the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *RuleCache {
	return &RuleCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "rule-cache"),
	}
}

// Get looks up a cached rule set. Lookup failures count as misses; the caller
// falls through to the miner.
func (c *RuleCache) Get(ctx context.Context, th mining.Thresholds, version int64) (*RuleSet, bool) {
	key := c.buildKey(th, version)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result RuleSet
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key, "rules", len(result.Rules))
	return &result, true
}

// Set stores a rule set. Failures are logged, never surfaced; the cache is an
// optimization.
func (c *RuleCache) Set(ctx context.Context, th mining.Thresholds, version int64, result *RuleSet) {
	key := c.buildKey(th, version)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached rule set or runs computeFn once per key,
// caching its result. The boolean reports whether the result came from cache.
func (c *RuleCache) GetOrCompute(
	ctx context.Context,
	th mining.Thresholds,
	version int64,
	computeFn func() (*RuleSet, error),
) (*RuleSet, bool, error) {
	if result, ok := c.Get(ctx, th, version); ok {
		return result, true, nil
	}
	key := c.buildKey(th, version)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, th, version); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, th, version, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*RuleSet), false, nil
}

// Invalidate drops every cached rule set.
func (c *RuleCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating rule cache: %w", err)
	}
	c.logger.Info("rule cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *RuleCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *RuleCache) buildKey(th mining.Thresholds, version int64) string {
	raw := fmt.Sprintf("v=%d:sup=%g:conf=%g:lift=%g:max=%d",
		version, th.MinSupport, th.MinConfidence, th.MinLift, th.MaxItemsetSize)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
