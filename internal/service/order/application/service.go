// internal/service/order/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"takeout/internal/pkg/logger"
	"takeout/internal/service/order/domain"
	"takeout/internal/service/order/port"
)

// 取消原因文案。对外展示，也是测试校验的契约。
const (
	ReasonUserCancelled = "user cancelled"
	ReasonTimedOut      = "order timed out, auto-cancelled"
)

// OrderApplicationService 是订单生命周期引擎：所有合法的状态流转都从这里走。
// 人发起的请求和后台超时任务共用同一套校验和同一个条件更新原语，
// 所以不存在绕开状态机的写路径。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	addresses port.AddressResolver
	gateway   port.PaymentGateway
	notifier  port.NotificationProducer
	sequence  port.NumberSequence
	deduper   port.PaymentDeduper
	tracer    trace.Tracer

	now func() time.Time
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	addresses port.AddressResolver,
	gateway port.PaymentGateway,
	notifier port.NotificationProducer,
	sequence port.NumberSequence,
	deduper port.PaymentDeduper,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		addresses: addresses,
		gateway:   gateway,
		notifier:  notifier,
		sequence:  sequence,
		deduper:   deduper,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Submit 用户下单：生成业务单号，快照地址和明细，落库为待付款。
// 不发任何看板通知（没付钱的单对商家还不存在）。
func (s *OrderApplicationService) Submit(ctx context.Context, actor domain.Actor, cmd *SubmitOrderCommand) (*SubmitOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit")
	defer span.End()

	if len(cmd.Lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	addr, err := s.addresses.Resolve(ctx, cmd.AddressID, actor.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	number, err := s.sequence.Next(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate order number")
		return nil, err
	}

	order, err := domain.NewOrder(actor.UserID, number, *addr, cmd.Lines, cmd.PayMethod, cmd.Remark, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist order")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.number", order.Number),
	)
	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Str("number", order.Number).Msg("order submitted")

	return &SubmitOrderResult{
		OrderID:   order.ID,
		Number:    order.Number,
		Amount:    order.Amount,
		OrderTime: order.OrderTime,
	}, nil
}

// Pay 请求支付：调支付网关拿预支付载荷，订单状态不变。
// 状态只在 PaySuccess（网关异步确认）时才流转。
func (s *OrderApplicationService) Pay(ctx context.Context, actor domain.Actor, orderNumber string) (*port.PrepayResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Pay")
	defer span.End()

	order, err := s.orderRepo.FindByNumberAndUser(ctx, orderNumber, actor.UserID)
	if err != nil {
		return nil, err
	}
	if order.PayStatus != domain.PayStatusUnpaid {
		return nil, domain.ErrAlreadyPaid
	}

	payload, err := s.gateway.Prepay(ctx, order.Number, order.Amount, fmt.Sprintf("user-%d", actor.UserID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return payload, nil
}

// PaySuccess 支付网关回调：待付款 -> 待接单，记支付时间，发来单提醒。
// 网关可能重复投递，先过去重再走状态机；条件更新再兜一层底。
func (s *OrderApplicationService) PaySuccess(ctx context.Context, orderNumber string, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.PaySuccess", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.number", orderNumber))

	claimed := false
	first, err := s.deduper.MarkProcessed(ctx, orderNumber)
	switch {
	case err != nil:
		// 去重器不可用时放行，让条件更新兜底
		logger.Ctx(ctx).Warn().Err(err).Msg("payment deduper unavailable, falling through to conditional update")
	case !first:
		logger.Ctx(ctx).Info().Str("number", orderNumber).Msg("duplicate paySuccess callback ignored")
		return nil
	default:
		claimed = true
	}

	if err := s.confirmPayment(ctx, orderNumber, userID); err != nil {
		span.RecordError(err)
		// 流转没落地就把占位让出来，否则网关的重试会被当成重复回调吞掉，
		// 订单将永远停在待付款直到被超时任务错杀
		if claimed {
			if uerr := s.deduper.Unmark(ctx, orderNumber); uerr != nil {
				logger.Ctx(ctx).Error().Err(uerr).Str("number", orderNumber).Msg("failed to release payment dedupe slot")
			}
		}
		return err
	}
	return nil
}

// confirmPayment 执行支付确认的状态流转和来单通知。
func (s *OrderApplicationService) confirmPayment(ctx context.Context, orderNumber string, userID int64) error {
	order, err := s.orderRepo.FindByNumberAndUser(ctx, orderNumber, userID)
	if err != nil {
		return err
	}

	prior := order.Status
	payTime := s.now()
	if err := order.MarkPaid(payTime); err != nil {
		return err
	}

	paid := domain.PayStatusPaid
	patch := domain.StatusPatch{
		To:        order.Status,
		PayStatus: &paid,
		PayTime:   &payTime,
	}
	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, patch); err != nil {
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeNewOrder, order, "您有新的订单："+order.Number, payTime))
	return nil
}

// Confirm 商家接单：待接单 -> 已接单。
// 对非待接单订单一律拒绝，不做静默放过。
func (s *OrderApplicationService) Confirm(ctx context.Context, actor domain.Actor, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.Confirm")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	prior := order.Status
	if err := order.Confirm(); err != nil {
		return err
	}

	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, domain.StatusPatch{To: order.Status}); err != nil {
		span.RecordError(err)
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeStatusChange, order, "订单已接单", s.now()))
	return nil
}

// Reject 商家拒单：待接单 -> 已取消。已支付的订单标记退款。
func (s *OrderApplicationService) Reject(ctx context.Context, actor domain.Actor, orderID int64, reason string) error {
	ctx, span := s.tracer.Start(ctx, "order.Reject")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	prior := order.Status
	priorPay := order.PayStatus
	cancelTime := s.now()
	if err := order.Reject(reason, cancelTime); err != nil {
		return err
	}

	patch := domain.StatusPatch{
		To:              order.Status,
		CancelTime:      &cancelTime,
		RejectionReason: &reason,
	}
	if priorPay != order.PayStatus {
		refund := order.PayStatus
		patch.PayStatus = &refund
	}
	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, patch); err != nil {
		span.RecordError(err)
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	if patch.PayStatus != nil {
		logger.Ctx(ctx).Info().Int64("order_id", order.ID).Msg("rejected paid order, refund flagged")
	}
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeStatusChange, order, "订单已拒绝："+reason, cancelTime))
	return nil
}

// StartDelivery 开始派送：已接单 -> 派送中。
func (s *OrderApplicationService) StartDelivery(ctx context.Context, actor domain.Actor, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.StartDelivery")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	prior := order.Status
	if err := order.StartDelivery(); err != nil {
		return err
	}

	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, domain.StatusPatch{To: order.Status}); err != nil {
		span.RecordError(err)
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeStatusChange, order, "订单派送中", s.now()))
	return nil
}

// Complete 完成订单：派送中 -> 已完成，记录送达时间。
func (s *OrderApplicationService) Complete(ctx context.Context, actor domain.Actor, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.Complete")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	prior := order.Status
	deliveryTime := s.now()
	if err := order.Complete(deliveryTime); err != nil {
		return err
	}

	patch := domain.StatusPatch{To: order.Status, DeliveryTime: &deliveryTime}
	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, patch); err != nil {
		span.RecordError(err)
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeStatusChange, order, "订单已完成", deliveryTime))
	return nil
}

// UserCancel 买家取消。商家接单之后买家不能再反悔，只能电话协商。
func (s *OrderApplicationService) UserCancel(ctx context.Context, actor domain.Actor, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.UserCancel")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	// 买家只能取消自己的订单
	if order.UserID != actor.UserID {
		return domain.ErrOrderNotFound
	}

	return s.cancel(ctx, order, domain.RoleBuyer, ReasonUserCancelled)
}

// AdminCancel 商家/管理端取消，任何非取消态都可触发，已支付标记退款。
func (s *OrderApplicationService) AdminCancel(ctx context.Context, actor domain.Actor, orderID int64, reason string) error {
	ctx, span := s.tracer.Start(ctx, "order.AdminCancel")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	return s.cancel(ctx, order, domain.RoleMerchant, reason)
}

// cancel 是三条取消路径（买家、商家、超时任务）共用的收口。
func (s *OrderApplicationService) cancel(ctx context.Context, order *domain.Order, role domain.Role, reason string) error {
	prior := order.Status
	priorPay := order.PayStatus
	cancelTime := s.now()

	if err := order.Cancel(role, reason, cancelTime); err != nil {
		return err
	}

	patch := domain.StatusPatch{
		To:           order.Status,
		CancelTime:   &cancelTime,
		CancelReason: &reason,
	}
	if priorPay != order.PayStatus {
		refund := order.PayStatus
		patch.PayStatus = &refund
	}
	if err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, prior, patch); err != nil {
		return err
	}

	transitionsTotal.WithLabelValues(order.Status.String()).Inc()
	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeStatusChange, order, "订单已取消："+reason, cancelTime))
	return nil
}

// Remind 催单：不改状态，只给商家推一条催单提醒。
func (s *OrderApplicationService) Remind(ctx context.Context, actor domain.Actor, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.Remind")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != actor.UserID {
		return domain.ErrOrderNotFound
	}
	if order.Status != domain.StatusToBeConfirmed && order.Status != domain.StatusConfirmed {
		return domain.ErrOrderStatusError
	}

	s.publish(ctx, domain.NewOrderEvent(domain.NotifyTypeReminder, order, "用户催单："+order.Number, s.now()))
	return nil
}

// Detail 查询订单详情，商家端使用。
func (s *OrderApplicationService) Detail(ctx context.Context, orderID int64) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderView(order), nil
}

// DetailForUser 用户端查询详情，别人的订单统一按不存在处理。
func (s *OrderApplicationService) DetailForUser(ctx context.Context, actor domain.Actor, orderID int64) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, domain.ErrOrderNotFound
	}
	return ToOrderView(order), nil
}

// 分页默认值和上限。前端不传参时给首页，传飞了也不让一次查穿全表。
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListByUser 按下单人分页查询历史订单。
func (s *OrderApplicationService) ListByUser(ctx context.Context, actor domain.Actor, status domain.Status, page, pageSize int) (*PageResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, actor.UserID, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, ToOrderView(o))
	}
	return &PageResult{Total: total, Records: views}, nil
}

// publish 发看板通知。投递失败只记日志：通知丢了可以刷新页面，订单不能回滚。
func (s *OrderApplicationService) publish(ctx context.Context, event *domain.OrderEvent) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", event.OrderID).Msg("failed to publish order event")
	}
}
