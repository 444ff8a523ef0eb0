package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"takeout/internal/service/order/domain"
	"takeout/internal/service/order/port"
)

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByNumberAndUser(ctx context.Context, number string, userID int64) (*domain.Order, error) {
	args := m.Called(ctx, number, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID int64, status domain.Status, page, pageSize int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatusFrom(ctx context.Context, id int64, expect domain.Status, patch domain.StatusPatch) error {
	args := m.Called(ctx, id, expect, patch)
	return args.Error(0)
}

func (m *mockOrderRepository) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type mockAddressResolver struct {
	mock.Mock
}

func (m *mockAddressResolver) Resolve(ctx context.Context, addressID, userID int64) (*domain.AddressSnapshot, error) {
	args := m.Called(ctx, addressID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AddressSnapshot), args.Error(1)
}

type mockPaymentGateway struct {
	mock.Mock
}

func (m *mockPaymentGateway) Prepay(ctx context.Context, orderNumber string, amount int64, payerOpenID string) (*port.PrepayResult, error) {
	args := m.Called(ctx, orderNumber, amount, payerOpenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.PrepayResult), args.Error(1)
}

type mockNotificationProducer struct {
	mock.Mock
}

func (m *mockNotificationProducer) Publish(ctx context.Context, event *domain.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockNumberSequence struct {
	mock.Mock
}

func (m *mockNumberSequence) Next(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockPaymentDeduper struct {
	mock.Mock
}

func (m *mockPaymentDeduper) MarkProcessed(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockPaymentDeduper) Unmark(ctx context.Context, orderNumber string) error {
	args := m.Called(ctx, orderNumber)
	return args.Error(0)
}

type mockSweepLock struct {
	mock.Mock
}

func (m *mockSweepLock) TryLock() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockSweepLock) Unlock() error {
	args := m.Called()
	return args.Error(0)
}
