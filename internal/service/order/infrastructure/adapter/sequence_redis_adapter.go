// internal/service/order/infrastructure/adapter/sequence_redis_adapter.go
package adapter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"takeout/internal/pkg/logger"
	"takeout/internal/pkg/redis"
)

const (
	sequenceKeyPrefix = "order:seq:"
	dedupeKeyPrefix   = "order:pay:notify:"
	dedupeTTL         = 24 * time.Hour
)

// SequenceRedisAdapter 用 Redis 的按天计数器生成业务单号：
// 时间戳前缀 + 当日序号，人可读、全局唯一、趋势递增。
// Redis 不可用时退化为进程内计数器，牺牲跨实例的单调性但不阻塞下单。
type SequenceRedisAdapter struct {
	redisClient *redis.Client
	fallback    atomic.Int64
}

func NewSequenceRedisAdapter(redisClient *redis.Client) *SequenceRedisAdapter {
	return &SequenceRedisAdapter{redisClient: redisClient}
}

func (a *SequenceRedisAdapter) Next(ctx context.Context) (string, error) {
	now := time.Now()
	day := now.Format("20060102")

	if a.redisClient != nil {
		seq, err := a.redisClient.IncrWithExpire(ctx, sequenceKeyPrefix+day, 48*time.Hour)
		if err == nil {
			return fmt.Sprintf("%s%06d", now.Format("20060102150405"), seq), nil
		}
		logger.Ctx(ctx).Warn().Err(err).Msg("redis sequence unavailable, using local fallback")
	}

	seq := a.fallback.Add(1)
	return fmt.Sprintf("%s%06d", now.Format("20060102150405"), seq%1000000), nil
}

// DeduperRedisAdapter 用 SETNX 对支付成功回调去重。
// 同一单号只有第一次占位成功，重复投递直接忽略。
type DeduperRedisAdapter struct {
	redisClient *redis.Client
}

func NewDeduperRedisAdapter(redisClient *redis.Client) *DeduperRedisAdapter {
	return &DeduperRedisAdapter{redisClient: redisClient}
}

func (a *DeduperRedisAdapter) MarkProcessed(ctx context.Context, orderNumber string) (bool, error) {
	if a.redisClient == nil {
		// 没配 Redis 时不去重，条件更新仍然保证不会重复流转
		return true, nil
	}
	return a.redisClient.SetNX(ctx, dedupeKeyPrefix+orderNumber, 1, dedupeTTL)
}

// Unmark 释放占位。回调处理没落地时调用，让网关的下一次重试能重新进入。
func (a *DeduperRedisAdapter) Unmark(ctx context.Context, orderNumber string) error {
	if a.redisClient == nil {
		return nil
	}
	return a.redisClient.Del(ctx, dedupeKeyPrefix+orderNumber)
}
