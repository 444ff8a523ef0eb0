package application

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"takeout/internal/service/order/domain"
	"takeout/internal/service/order/port"
)

type serviceFixture struct {
	repo      *mockOrderRepository
	addresses *mockAddressResolver
	gateway   *mockPaymentGateway
	notifier  *mockNotificationProducer
	sequence  *mockNumberSequence
	deduper   *mockPaymentDeduper
	svc       *OrderApplicationService
	clock     time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      new(mockOrderRepository),
		addresses: new(mockAddressResolver),
		gateway:   new(mockPaymentGateway),
		notifier:  new(mockNotificationProducer),
		sequence:  new(mockNumberSequence),
		deduper:   new(mockPaymentDeduper),
		clock:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewOrderApplicationService(f.repo, f.addresses, f.gateway, f.notifier, f.sequence, f.deduper, otel.Tracer("test"))
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *serviceFixture) orderAt(status domain.Status, payStatus domain.PayStatus) *domain.Order {
	return &domain.Order{
		ID:        100,
		Number:    "20260830120000000001",
		UserID:    42,
		Status:    status,
		PayStatus: payStatus,
		Amount:    5600,
		Address:   domain.AddressSnapshot{Consignee: "张三", Phone: "13800000000", Detail: "人民路1号"},
		Lines:     []domain.OrderLine{{Name: "宫保鸡丁", DishID: 1, Number: 2, Amount: 2800}},
		OrderTime: f.clock.Add(-5 * time.Minute),
	}
}

var buyer = domain.Actor{UserID: 42, Role: domain.RoleBuyer}
var merchant = domain.Actor{UserID: 1, Role: domain.RoleMerchant}

func TestSubmit(t *testing.T) {
	t.Run("creates pending payment order", func(t *testing.T) {
		f := newServiceFixture(t)
		addr := &domain.AddressSnapshot{Consignee: "张三", Phone: "13800000000", Detail: "人民路1号"}
		f.addresses.On("Resolve", mock.Anything, int64(7), int64(42)).Return(addr, nil)
		f.sequence.On("Next", mock.Anything).Return("20260830120000000001", nil)
		f.repo.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.Status == domain.StatusPendingPayment &&
				o.PayStatus == domain.PayStatusUnpaid &&
				o.Number == "20260830120000000001" &&
				o.Amount == 5600
		})).Return(nil).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Order).ID = 100
		})

		resp, err := f.svc.Submit(context.Background(), buyer, &SubmitOrderCommand{
			AddressID: 7,
			PayMethod: 1,
			Lines:     []domain.OrderLine{{Name: "宫保鸡丁", DishID: 1, Number: 2, Amount: 2800}},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(100), resp.OrderID)
		assert.Equal(t, "20260830120000000001", resp.Number)
		assert.Equal(t, int64(5600), resp.Amount)
		// 提交阶段不给商家发通知
		f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("empty cart rejected before any IO", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Submit(context.Background(), buyer, &SubmitOrderCommand{AddressID: 7})
		assert.ErrorIs(t, err, domain.ErrCartEmpty)
		f.addresses.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid address propagates", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addresses.On("Resolve", mock.Anything, int64(7), int64(42)).Return(nil, domain.ErrAddressInvalid)

		_, err := f.svc.Submit(context.Background(), buyer, &SubmitOrderCommand{
			AddressID: 7,
			Lines:     []domain.OrderLine{{Name: "米饭", Number: 1, Amount: 200}},
		})
		assert.ErrorIs(t, err, domain.ErrAddressInvalid)
	})
}

func TestPay(t *testing.T) {
	t.Run("returns prepay payload without touching status", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).Return(order, nil)
		f.gateway.On("Prepay", mock.Anything, order.Number, int64(5600), mock.Anything).
			Return(&port.PrepayResult{NonceStr: "abc", Package: "prepay_id=xyz"}, nil)

		payload, err := f.svc.Pay(context.Background(), buyer, order.Number)

		require.NoError(t, err)
		assert.Equal(t, "prepay_id=xyz", payload.Package)
		f.repo.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already paid order rejected locally", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).Return(order, nil)

		_, err := f.svc.Pay(context.Background(), buyer, order.Number)
		assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
		f.gateway.AssertNotCalled(t, "Prepay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaySuccess(t *testing.T) {
	t.Run("transitions to to-be-confirmed and notifies merchant", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		f.deduper.On("MarkProcessed", mock.Anything, order.Number).Return(true, nil)
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusPendingPayment,
			mock.MatchedBy(func(p domain.StatusPatch) bool {
				return p.To == domain.StatusToBeConfirmed &&
					p.PayStatus != nil && *p.PayStatus == domain.PayStatusPaid &&
					p.PayTime != nil && p.PayTime.Equal(f.clock)
			})).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.MatchedBy(func(e *domain.OrderEvent) bool {
			return e.Type == domain.NotifyTypeNewOrder && e.OrderID == 100
		})).Return(nil)

		err := f.svc.PaySuccess(context.Background(), order.Number, 42)

		require.NoError(t, err)
		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("duplicate callback is a no-op", func(t *testing.T) {
		f := newServiceFixture(t)
		f.deduper.On("MarkProcessed", mock.Anything, "dup-number").Return(false, nil)

		err := f.svc.PaySuccess(context.Background(), "dup-number", 42)

		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "FindByNumberAndUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deduper outage falls through to conditional update", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		f.deduper.On("MarkProcessed", mock.Anything, order.Number).Return(false, errors.New("redis down"))
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusPendingPayment, mock.Anything).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		err := f.svc.PaySuccess(context.Background(), order.Number, 42)
		require.NoError(t, err)
	})

	t.Run("transient failure releases the dedupe slot so a retry can land", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)

		// 第一次回调：占位成功，但条件更新因数据库抖动失败
		f.deduper.On("MarkProcessed", mock.Anything, order.Number).Return(true, nil).Once()
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).
			Return(f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid), nil).Once()
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusPendingPayment, mock.Anything).
			Return(errors.New("connection reset")).Once()
		f.deduper.On("Unmark", mock.Anything, order.Number).Return(nil).Once()

		err := f.svc.PaySuccess(context.Background(), order.Number, 42)
		require.Error(t, err)
		f.deduper.AssertCalled(t, "Unmark", mock.Anything, order.Number)

		// 网关重试：占位已释放，这次必须真正走完流转而不是被当成重复回调
		f.deduper.On("MarkProcessed", mock.Anything, order.Number).Return(true, nil).Once()
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).
			Return(f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid), nil).Once()
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusPendingPayment,
			mock.MatchedBy(func(p domain.StatusPatch) bool {
				return p.To == domain.StatusToBeConfirmed &&
					p.PayStatus != nil && *p.PayStatus == domain.PayStatusPaid
			})).Return(nil).Once()
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.PaySuccess(context.Background(), order.Number, 42))
		f.repo.AssertNumberOfCalls(t, "UpdateStatusFrom", 2)
	})

	t.Run("lost race surfaces concurrent modification", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		f.deduper.On("MarkProcessed", mock.Anything, order.Number).Return(true, nil)
		f.repo.On("FindByNumberAndUser", mock.Anything, order.Number, int64(42)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusPendingPayment, mock.Anything).
			Return(domain.ErrConcurrentModification)
		f.deduper.On("Unmark", mock.Anything, order.Number).Return(nil)

		err := f.svc.PaySuccess(context.Background(), order.Number, 42)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
		f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestConfirm(t *testing.T) {
	t.Run("to-be-confirmed becomes confirmed", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusToBeConfirmed,
			mock.MatchedBy(func(p domain.StatusPatch) bool { return p.To == domain.StatusConfirmed })).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.Confirm(context.Background(), merchant, 100))
		f.repo.AssertExpectations(t)
	})

	t.Run("confirming twice is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)

		err := f.svc.Confirm(context.Background(), merchant, 100)
		assert.ErrorIs(t, err, domain.ErrOrderStatusError)
		f.repo.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReject(t *testing.T) {
	t.Run("paid order gets refund flag in patch", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusToBeConfirmed,
			mock.MatchedBy(func(p domain.StatusPatch) bool {
				return p.To == domain.StatusCancelled &&
					p.PayStatus != nil && *p.PayStatus == domain.PayStatusRefund &&
					p.RejectionReason != nil && *p.RejectionReason == "食材售罄" &&
					p.CancelTime != nil
			})).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.Reject(context.Background(), merchant, 100, "食材售罄"))
		f.repo.AssertExpectations(t)
	})

	t.Run("unpaid order keeps pay status untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusUnpaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusToBeConfirmed,
			mock.MatchedBy(func(p domain.StatusPatch) bool { return p.PayStatus == nil })).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.Reject(context.Background(), merchant, 100, "打烊了"))
	})
}

func TestUserCancel(t *testing.T) {
	t.Run("someone else's order looks like not found", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		order.UserID = 99
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)

		err := f.svc.UserCancel(context.Background(), buyer, 100)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("cancel after confirmation rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)

		err := f.svc.UserCancel(context.Background(), buyer, 100)
		assert.ErrorIs(t, err, domain.ErrOrderStatusError)
		f.repo.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("paid to-be-confirmed order cancelled with refund", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusToBeConfirmed,
			mock.MatchedBy(func(p domain.StatusPatch) bool {
				return p.To == domain.StatusCancelled &&
					p.PayStatus != nil && *p.PayStatus == domain.PayStatusRefund &&
					p.CancelReason != nil && *p.CancelReason == ReasonUserCancelled
			})).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.UserCancel(context.Background(), buyer, 100))
		f.repo.AssertExpectations(t)
	})
}

func TestAdminCancel(t *testing.T) {
	t.Run("completed order can still be cancelled by merchant", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusCompleted, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusCompleted,
			mock.MatchedBy(func(p domain.StatusPatch) bool {
				return p.To == domain.StatusCancelled && p.PayStatus != nil && *p.PayStatus == domain.PayStatusRefund
			})).Return(nil)
		f.notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.AdminCancel(context.Background(), merchant, 100, "客诉退款"))
	})

	t.Run("cancelled order is terminal", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusCancelled, domain.PayStatusRefund)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)

		err := f.svc.AdminCancel(context.Background(), merchant, 100, "再取消一次")
		assert.ErrorIs(t, err, domain.ErrOrderStatusError)
	})
}

func TestRemind(t *testing.T) {
	t.Run("pushes reminder without touching state", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
		f.notifier.On("Publish", mock.Anything, mock.MatchedBy(func(e *domain.OrderEvent) bool {
			return e.Type == domain.NotifyTypeReminder
		})).Return(nil)

		require.NoError(t, f.svc.Remind(context.Background(), buyer, 100))
		f.repo.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reminder on unpaid order rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		order := f.orderAt(domain.StatusPendingPayment, domain.PayStatusUnpaid)
		f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)

		err := f.svc.Remind(context.Background(), buyer, 100)
		assert.ErrorIs(t, err, domain.ErrOrderStatusError)
	})
}

func TestListByUser(t *testing.T) {
	t.Run("missing paging params fall back to first page", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("ListByUser", mock.Anything, int64(42), domain.Status(0), 1, 10).
			Return([]*domain.Order{f.orderAt(domain.StatusCompleted, domain.PayStatusPaid)}, int64(1), nil)

		resp, err := f.svc.ListByUser(context.Background(), buyer, 0, 0, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Total)
		assert.Len(t, resp.Records, 1)
		f.repo.AssertExpectations(t)
	})

	t.Run("oversized page size is capped", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("ListByUser", mock.Anything, int64(42), domain.StatusCompleted, 2, 100).
			Return([]*domain.Order{}, int64(0), nil)

		_, err := f.svc.ListByUser(context.Background(), buyer, domain.StatusCompleted, 2, 5000)

		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newServiceFixture(t)
	order := f.orderAt(domain.StatusToBeConfirmed, domain.PayStatusPaid)
	f.repo.On("FindByID", mock.Anything, int64(100)).Return(order, nil)
	f.repo.On("UpdateStatusFrom", mock.Anything, int64(100), domain.StatusToBeConfirmed, mock.Anything).Return(nil)
	f.notifier.On("Publish", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	// 通知只是尽力而为，状态流转成功就算成功
	require.NoError(t, f.svc.Confirm(context.Background(), merchant, 100))
}
