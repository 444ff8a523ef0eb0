// internal/service/order/application/reaper.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"takeout/internal/pkg/logger"
	"takeout/internal/service/order/domain"
)

// SweepLock 是清理任务的互斥锁。多实例部署时保证同一时刻只有一个实例在扫，
// 拿不到锁就跳过本轮，等下一个周期。
type SweepLock interface {
	TryLock() (bool, error)
	Unlock() error
}

// TimeoutReaper 周期性清理超时未支付的订单。
// 它不直接改库，而是走和买家取消完全相同的引擎路径，
// 所以状态校验和条件更新对定时器同样生效。
type TimeoutReaper struct {
	orderRepo domain.OrderRepository
	engine    *OrderApplicationService
	threshold time.Duration // 待付款的宽限时长，超过（含恰好等于）即取消
	interval  time.Duration // 扫描周期
	lock      SweepLock     // 可为 nil，单实例部署不需要
	tracer    trace.Tracer

	now func() time.Time
}

func NewTimeoutReaper(orderRepo domain.OrderRepository, engine *OrderApplicationService, threshold, interval time.Duration, lock SweepLock, tracer trace.Tracer) *TimeoutReaper {
	return &TimeoutReaper{
		orderRepo: orderRepo,
		engine:    engine,
		threshold: threshold,
		interval:  interval,
		lock:      lock,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Run 启动定时扫描，阻塞直到 ctx 取消。
func (r *TimeoutReaper) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().
		Dur("interval", r.interval).
		Dur("threshold", r.threshold).
		Msg("timeout reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("timeout reaper shutting down")
			return nil
		}
	}
}

// Sweep 执行一轮清理。单个订单失败只记日志，不中断整批。
func (r *TimeoutReaper) Sweep(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "reaper.Sweep")
	defer span.End()
	reaperSweepsTotal.Inc()

	if r.lock != nil {
		acquired, err := r.lock.TryLock()
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("reaper failed to acquire sweep lock")
			return
		}
		if !acquired {
			// 别的实例正在扫，这一轮让给它
			return
		}
		defer r.lock.Unlock()
	}

	now := r.now()
	cutoff := now.Add(-r.threshold)
	candidates, err := r.orderRepo.FindTimedOutPending(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Msg("reaper failed to query timed-out orders")
		return
	}
	span.SetAttributes(attribute.Int("reaper.candidates", len(candidates)))

	for _, order := range candidates {
		// 边界是闭区间：下单时刻恰好等于阈值前的订单也要取消
		if now.Sub(order.OrderTime) < r.threshold {
			continue
		}
		if err := r.engine.cancel(ctx, order, domain.RoleBuyer, ReasonTimedOut); err != nil {
			// 扫描到更新之间订单已经被别人推进了，不算失败
			if errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, domain.ErrOrderStatusError) {
				logger.Ctx(ctx).Debug().Int64("order_id", order.ID).Msg("order already transitioned, skipping")
				continue
			}
			reaperFailuresTotal.Inc()
			logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).Msg("reaper failed to cancel order")
			continue
		}
		reaperCancelledTotal.Inc()
		logger.Ctx(ctx).Info().Int64("order_id", order.ID).Str("number", order.Number).Msg("timed-out order auto-cancelled")
	}
}
