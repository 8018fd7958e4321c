// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/domain/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// OrderService 编排订单创建与完成的跨服务流程：
// 库存预留（含失败补偿）、订单落库、骑手指派、完成时的资源归还。
type OrderService struct {
	repo        domain.OrderRepository
	catalog     port.CatalogService
	couriers    port.CourierPool
	publisher   port.EventPublisher
	tracer      trace.Tracer
	callTimeout time.Duration
}

func NewOrderService(repo domain.OrderRepository, catalog port.CatalogService, couriers port.CourierPool, publisher port.EventPublisher, tracer trace.Tracer, callTimeout time.Duration) *OrderService {
	if callTimeout <= 0 {
		callTimeout = 3 * time.Second
	}
	return &OrderService{
		repo:        repo,
		catalog:     catalog,
		couriers:    couriers,
		publisher:   publisher,
		tracer:      tracer,
		callTimeout: callTimeout,
	}
}

// CreateOrder 执行完整的下单流程。
// 预留失败时整单失败且无副作用；骑手指派失败不算失败——
// 订单留在 created 状态，由对账任务稍后重试。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()

	items := make([]domain.LineItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.LineItemRequest{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	if err := domain.ValidateRequest(req.RestaurantID, req.Address, items); err != nil {
		span.RecordError(err)
		ordersCreatedTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 预留顺序按 item id 规范化。两个并发订单以相反顺序预留同两个条目时，
	// 行锁会构成环——统一顺序直接消除这种死锁。
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })

	span.SetAttributes(
		attribute.String("order.restaurant_id", req.RestaurantID),
		attribute.Int("order.item_count", len(items)),
	)

	// 步骤 1: 菜单预检。只是快速失败的优化：目录不可达就跳过，
	// 一致性由步骤 2 的逐项预留兜底。
	if err := s.precheckStock(ctx, req.RestaurantID, items); err != nil {
		span.RecordError(err)
		ordersCreatedTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 步骤 2: 逐项预留，失败即回滚此前预留的所有条目
	reserved, err := s.reserveAll(ctx, req.RestaurantID, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reservation failed")
		ordersCreatedTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 步骤 3: 以 created 状态落库
	order := domain.NewOrder(req.RestaurantID, req.CustomerEmail, req.Address, reserved)
	if err := s.repo.Save(ctx, order); err != nil {
		// 订单没写进台账，预留的库存必须吐回去
		s.releaseItems(ctx, order.RestaurantID, order.Items)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist order")
		return nil, err
	}
	span.AddEvent("order persisted with created state")
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, order))

	// 步骤 4: 尽力而为的立即指派。失败只影响返回的状态字段，不影响成败。
	if s.tryAssign(ctx, order) {
		ordersCreatedTotal.WithLabelValues("assigned").Inc()
	} else {
		ordersCreatedTotal.WithLabelValues("pending").Inc()
	}

	return order, nil
}

// GetOrder 返回订单的持久化快照。
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()
	return s.repo.FindByID(ctx, orderID)
}

// CompleteOrder 完结订单：归还库存、释放骑手、落终态。幂等。
// 归还和释放都是尽力而为——补偿失败只记日志，不阻塞完成。
func (s *OrderService) CompleteOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CompleteOrder")
	defer span.End()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order.State == domain.StateCompleted {
		span.AddEvent("order already completed")
		return order, nil
	}

	s.releaseItems(ctx, order.RestaurantID, order.Items)

	if order.Courier != nil {
		callCtx, cancel := s.callContext(ctx)
		if err := s.couriers.Free(callCtx, order.Courier.ID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("order", order.ID).
				Str("courier", order.Courier.ID).
				Msg("failed to free courier on completion")
			span.RecordError(err)
		}
		cancel()
	}

	order.Complete()
	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist completed order")
		return nil, err
	}
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCompleted, order))
	return order, nil
}

// OrdersByCourier 返回指定月份各骑手承接的订单量。
func (s *OrderService) OrdersByCourier(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return s.repo.CountByCourier(ctx, month)
}

// OrdersByRestaurant 返回指定月份各餐厅产生的订单量。
func (s *OrderService) OrdersByRestaurant(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return s.repo.CountByRestaurant(ctx, month)
}

// precheckStock 拉一次菜单做快速校验。
// 只有明确的“缺货/不存在”才拦下请求；目录不可达一律放行。
func (s *OrderService) precheckStock(ctx context.Context, restaurantID string, items []domain.LineItemRequest) error {
	ctx, span := s.tracer.Start(ctx, "order.PrecheckStock")
	defer span.End()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	menu, err := s.catalog.GetMenu(callCtx, restaurantID)
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("menu precheck skipped, catalog unreachable")
		span.AddEvent("precheck skipped")
		return nil
	}

	stock := make(map[string]int, len(menu))
	for _, m := range menu {
		stock[m.ItemID] = m.Stock
	}
	for _, it := range items {
		avail, ok := stock[it.ItemID]
		if !ok {
			return domain.ErrItemNotFound
		}
		if avail <= 0 || avail < it.Quantity {
			return domain.ErrInsufficientStock
		}
	}
	return nil
}

// reserveAll 按给定顺序逐项预留。第一个失败即触发对已预留条目的补偿，
// 调用方看不到半预留状态。
func (s *OrderService) reserveAll(ctx context.Context, restaurantID string, items []domain.LineItemRequest) ([]domain.LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "order.ReserveStock")
	defer span.End()

	reserved := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		callCtx, cancel := s.callContext(ctx)
		res, err := s.catalog.Reserve(callCtx, restaurantID, it.ItemID, it.Quantity)
		cancel()
		if err != nil {
			reservationsTotal.WithLabelValues(reservationResult(err)).Inc()
			s.releaseItems(ctx, restaurantID, reserved)
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrItemNotFound) {
				return nil, err
			}
			logger.Ctx(ctx).Error().Err(err).Str("item", it.ItemID).Msg("stock reservation failed")
			return nil, domain.ErrReservationFailed
		}
		reservationsTotal.WithLabelValues("ok").Inc()
		reserved = append(reserved, domain.LineItem{
			ItemID:   res.ItemID,
			Name:     res.Name,
			Price:    res.Price,
			Quantity: it.Quantity,
		})
	}
	span.AddEvent("all items reserved")
	return reserved, nil
}

// releaseItems 并发归还一组预留。各条目互不相关，顺序无所谓。
// 用独立于请求的 context——请求已经超时/取消时补偿仍然要跑。
func (s *OrderService) releaseItems(ctx context.Context, restaurantID string, items []domain.LineItem) {
	if len(items) == 0 {
		return
	}
	compensationsTotal.Add(float64(len(items)))

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout*2)
	defer cancel()
	compCtx, span := s.tracer.Start(compCtx, "order.compensation.ReleaseStock")
	defer span.End()

	g, gctx := errgroup.WithContext(compCtx)
	for _, it := range items {
		it := it
		g.Go(func() error {
			if err := s.catalog.Release(gctx, restaurantID, it.ItemID, it.Quantity); err != nil {
				// 补偿失败不中断其他条目的归还，记下来靠人工或监控兜底
				logger.Ctx(ctx).Error().Err(err).
					Str("item", it.ItemID).
					Int("quantity", it.Quantity).
					Msg("stock release failed")
				span.RecordError(err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// tryAssign 尝试立即给订单指派骑手，返回是否成功。
// 任何失败（无人可派、服务不可达、超时）都吞掉，订单留在 created。
func (s *OrderService) tryAssign(ctx context.Context, order *domain.Order) bool {
	ctx, span := s.tracer.Start(ctx, "order.AssignCourier")
	defer span.End()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	snapshot, err := s.couriers.AssignNext(callCtx)
	if err != nil {
		assignmentsTotal.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Warn().Err(err).Str("order", order.ID).Msg("courier assignment unavailable, order stays pending")
		span.RecordError(err)
		return false
	}
	if snapshot == nil {
		assignmentsTotal.WithLabelValues("none").Inc()
		span.AddEvent("no courier available")
		return false
	}

	attached, err := s.repo.AttachCourier(ctx, order.ID, *snapshot)
	if err != nil || !attached {
		// 台账拒绝（并发方已指派）或落库失败：把刚占用的骑手放回池里
		if freeErr := s.freeCourier(ctx, snapshot.ID); freeErr != nil {
			logger.Ctx(ctx).Error().Err(freeErr).Str("courier", snapshot.ID).Msg("failed to return courier to pool")
		}
		if err != nil {
			assignmentsTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
		}
		return false
	}

	order.AttachCourier(*snapshot)
	assignmentsTotal.WithLabelValues("assigned").Inc()
	span.SetAttributes(attribute.String("courier.id", snapshot.ID))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderAssigned, order))
	return true
}

func (s *OrderService) freeCourier(ctx context.Context, courierID string) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()
	return s.couriers.Free(callCtx, courierID)
}

// publish 发布生命周期事件。发布失败永远不影响主流程。
func (s *OrderService) publish(ctx context.Context, event *domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("order", event.OrderID).
			Str("type", event.Type).
			Msg("failed to publish order event")
	}
}

func (s *OrderService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.callTimeout)
}

func reservationResult(err error) string {
	if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrItemNotFound) {
		return "out_of_stock"
	}
	return "failed"
}
