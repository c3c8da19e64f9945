package service

import (
	"context"
	"time"

	"agora/core"
	"go.uber.org/zap"
)

// RedisReadCache adapts core.RedisCache to UnreadCache and ProfileCache.
// Redis only holds derived counts; any failure degrades to a miss.
type RedisReadCache struct {
	cache      *core.RedisCache
	unreadTTL  time.Duration
	profileTTL time.Duration
	logger     *zap.SugaredLogger
}

// NewRedisReadCache creates the adapter
func NewRedisReadCache(cache *core.RedisCache, unreadTTL, profileTTL time.Duration, logger *zap.SugaredLogger) *RedisReadCache {
	return &RedisReadCache{
		cache:      cache,
		unreadTTL:  unreadTTL,
		profileTTL: profileTTL,
		logger:     logger,
	}
}

// GetUnread returns the cached unread count
func (c *RedisReadCache) GetUnread(ctx context.Context, userID string) (int64, bool) {
	var n int64
	found, err := c.cache.Get(ctx, core.GetUnreadCacheKey(userID), &n)
	if err != nil || !found {
		return 0, false
	}
	return n, true
}

// SetUnread stores an unread count
func (c *RedisReadCache) SetUnread(ctx context.Context, userID string, count int64) {
	if err := c.cache.Set(ctx, core.GetUnreadCacheKey(userID), count, c.unreadTTL); err != nil {
		c.logger.Warnw("Failed to cache unread count", "user_id", userID, "error", err)
	}
}

// InvalidateUnread drops a cached unread count
func (c *RedisReadCache) InvalidateUnread(ctx context.Context, userID string) {
	if err := c.cache.Delete(ctx, core.GetUnreadCacheKey(userID)); err != nil {
		c.logger.Warnw("Failed to invalidate unread count", "user_id", userID, "error", err)
	}
}

// GetProfileStats returns cached profile stats
func (c *RedisReadCache) GetProfileStats(ctx context.Context, userID string) (*ProfileStats, bool) {
	var stats ProfileStats
	found, err := c.cache.Get(ctx, core.GetProfileCacheKey(userID), &stats)
	if err != nil || !found {
		return nil, false
	}
	return &stats, true
}

// SetProfileStats stores profile stats for a short time
func (c *RedisReadCache) SetProfileStats(ctx context.Context, userID string, stats *ProfileStats) {
	if err := c.cache.Set(ctx, core.GetProfileCacheKey(userID), stats, c.profileTTL); err != nil {
		c.logger.Warnw("Failed to cache profile stats", "user_id", userID, "error", err)
	}
}
