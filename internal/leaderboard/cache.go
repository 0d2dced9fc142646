package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BVG-Design/brokercompare-sub001/internal/cache"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
)

const keyPrefix = "leaderboard:"

// LeaderboardCache provides caching for leaderboard data.
// Cache failures are logged and treated as misses.
type LeaderboardCache struct {
	store   cache.Store
	ttl     time.Duration
	codec   encoding.Codec
	metrics *monitoring.Metrics
}

// NewLeaderboardCache creates a new leaderboard cache over store
func NewLeaderboardCache(store cache.Store, ttl time.Duration, metrics *monitoring.Metrics) *LeaderboardCache {
	return &LeaderboardCache{
		store:   store,
		ttl:     ttl,
		codec:   encoding.Default(),
		metrics: metrics,
	}
}

// generateCacheKey creates a cache key for leaderboard data
func (lc *LeaderboardCache) generateCacheKey(q Query) string {
	region, badge := string(q.Region), string(q.Badge)
	if region == "" {
		region = "all"
	}
	if badge == "" {
		badge = "all"
	}
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, region, badge, q.Limit)
}

// GetLeaderboard retrieves cached leaderboard data
func (lc *LeaderboardCache) GetLeaderboard(ctx context.Context, q Query) (*LeaderboardResponse, bool) {
	cacheKey := lc.generateCacheKey(q)

	data, found, err := lc.store.Get(ctx, cacheKey)
	if err != nil {
		slog.Warn("Leaderboard cache read failed", "error", err, "key", cacheKey)
		found = false
	}
	if !found {
		lc.metrics.IncrementCacheMiss()
		return nil, false
	}

	var response LeaderboardResponse
	if err := lc.codec.Unmarshal(data, &response); err != nil {
		slog.Error("Failed to unmarshal cached leaderboard data", "error", err, "key", cacheKey)
		lc.metrics.IncrementCacheMiss()
		return nil, false
	}

	lc.metrics.IncrementCacheHit()
	slog.Debug("Leaderboard cache hit", "key", cacheKey)
	return &response, true
}

// SetLeaderboard caches leaderboard data
func (lc *LeaderboardCache) SetLeaderboard(ctx context.Context, q Query, response *LeaderboardResponse) {
	cacheKey := lc.generateCacheKey(q)

	data, err := lc.codec.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal leaderboard data for cache", "error", err, "key", cacheKey)
		return
	}

	if err := lc.store.Set(ctx, cacheKey, data, lc.ttl); err != nil {
		slog.Warn("Leaderboard cache write failed", "error", err, "key", cacheKey)
		return
	}
	slog.Debug("Leaderboard cached", "key", cacheKey, "entries", len(response.Entries))
}

// InvalidateAll drops every cached leaderboard view
func (lc *LeaderboardCache) InvalidateAll(ctx context.Context) {
	if err := lc.store.DeletePrefix(ctx, keyPrefix); err != nil {
		slog.Warn("Leaderboard cache invalidation failed", "error", err)
		return
	}
	slog.Debug("Leaderboard cache invalidated")
}
