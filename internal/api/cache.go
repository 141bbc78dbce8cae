package api

import (
	"context"
	"errors"
	"time"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/metrics"
	"anfr-diff/internal/retention"

	"github.com/redis/go-redis/v9"
)

// FeedCache：在 Redis 中缓存渲染后的订阅表
// 约束：客户端为 nil 时所有操作为空操作
type FeedCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewFeedCache(rc *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{rc: rc, ttl: ttl}
}

// feedKey：以解析后的周期构造键
// 为什么：路径段大小写不同的请求需命中同一键，Invalidate 才能清除
func feedKey(p retention.Period, group, format string) string {
	return "feed:" + string(p) + ":" + group + ":" + format
}

func (c *FeedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("redis_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return b, true
}

func (c *FeedCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil || c.rc == nil {
		return
	}
	if err := c.rc.Set(ctx, key, body, c.ttl).Err(); err != nil {
		logger.L().Warn("redis_set_error", "key", key, "err", err)
	}
}

// Invalidate：以 SCAN + DEL 删除某周期类型的全部缓存
func (c *FeedCache) Invalidate(ctx context.Context, period string) error {
	if c == nil || c.rc == nil {
		return nil
	}
	var keys []string
	iter := c.rc.Scan(ctx, 0, "feed:"+period+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	logger.L().Info("feed_cache_invalidated", "period", period, "keys", len(keys))
	return nil
}
