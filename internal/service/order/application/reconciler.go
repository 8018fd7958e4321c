// internal/service/order/application/reconciler.go
package application

import (
	"context"
	"sync"
	"time"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/domain/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TickLock 是对账轮次的互斥手段（多副本场景下由 ZooKeeper 实现）。
// 拿不到锁说明别的副本正在扫，本轮直接跳过。
type TickLock interface {
	TryAcquire() (bool, error)
	Release() error
}

// Reconciler 周期性扫描台账中没有骑手的 created 订单并重试指派。
// 不在内存里排队：每轮都从台账重新扫，进程重启不丢任务。
type Reconciler struct {
	repo      domain.OrderRepository
	couriers  port.CourierPool
	publisher port.EventPublisher
	tracer    trace.Tracer

	interval    time.Duration
	callTimeout time.Duration
	lock        TickLock // 可为 nil：单副本部署不需要

	wg sync.WaitGroup
}

func NewReconciler(repo domain.OrderRepository, couriers port.CourierPool, publisher port.EventPublisher, tracer trace.Tracer, interval, callTimeout time.Duration, lock TickLock) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 3 * time.Second
	}
	return &Reconciler{
		repo:        repo,
		couriers:    couriers,
		publisher:   publisher,
		tracer:      tracer,
		interval:    interval,
		callTimeout: callTimeout,
		lock:        lock,
	}
}

// Start 启动后台循环，随 ctx 取消而退出。
func (r *Reconciler) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		logger.Logger().Info().Dur("interval", r.interval).Msg("reconciler started")
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Logger().Info().Msg("reconciler shutting down")
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Wait 阻塞到后台循环完全退出，用于优雅关停。
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// tick 执行一轮对账。单个订单的失败不影响同轮其余订单。
func (r *Reconciler) tick(ctx context.Context) {
	reconcilerTicksTotal.Inc()

	if r.lock != nil {
		acquired, err := r.lock.TryAcquire()
		if err != nil {
			logger.Logger().Warn().Err(err).Msg("reconciler lock unavailable, skipping tick")
			return
		}
		if !acquired {
			return // 别的副本在扫
		}
		defer func() {
			if err := r.lock.Release(); err != nil {
				logger.Logger().Warn().Err(err).Msg("failed to release reconciler lock")
			}
		}()
	}

	ctx, span := r.tracer.Start(ctx, "reconciler.Tick")
	defer span.End()

	pending, err := r.repo.FindUnassigned(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("reconciler failed to scan ledger")
		span.RecordError(err)
		return
	}
	if len(pending) == 0 {
		return
	}
	span.SetAttributes(attribute.Int("orders.pending", len(pending)))
	logger.Ctx(ctx).Info().Int("count", len(pending)).Msg("retrying courier assignment for pending orders")

	for _, order := range pending {
		if err := r.reconcileOrder(ctx, order); err != nil {
			// 留给下一轮重试
			logger.Ctx(ctx).Warn().Err(err).Str("order", order.ID).Msg("assignment retry failed")
		}
	}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.AssignCourier")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID))

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	snapshot, err := r.couriers.AssignNext(callCtx)
	cancel()
	if err != nil {
		assignmentsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return err
	}
	if snapshot == nil {
		// 没有可用骑手，这单留到下一轮
		assignmentsTotal.WithLabelValues("none").Inc()
		span.AddEvent("no courier available")
		return nil
	}

	attached, err := r.repo.AttachCourier(ctx, order.ID, *snapshot)
	if err != nil || !attached {
		// 没挂上（订单已被别处指派或完成），骑手要放回池里
		freeCtx, cancelFree := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
		if freeErr := r.couriers.Free(freeCtx, snapshot.ID); freeErr != nil {
			logger.Ctx(ctx).Error().Err(freeErr).Str("courier", snapshot.ID).Msg("failed to return courier to pool")
		}
		cancelFree()
		if err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	order.AttachCourier(*snapshot)
	assignmentsTotal.WithLabelValues("assigned").Inc()
	reconcilerAssignedTotal.Inc()
	span.SetAttributes(attribute.String("courier.id", snapshot.ID))
	logger.Ctx(ctx).Info().
		Str("order", order.ID).
		Str("courier", snapshot.ID).
		Msg("pending order assigned by reconciler")

	if r.publisher != nil {
		if pubErr := r.publisher.Publish(ctx, domain.NewOrderEvent(domain.EventOrderAssigned, order)); pubErr != nil {
			logger.Ctx(ctx).Warn().Err(pubErr).Str("order", order.ID).Msg("failed to publish order event")
		}
	}
	return nil
}
