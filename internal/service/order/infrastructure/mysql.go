// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"takeout/internal/service/order/domain"
)

// NewDB 打开 MySQL 连接并迁移表结构。
func NewDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open mysql connection")
	}
	if err := db.AutoMigrate(&OrderModel{}, &OrderLineModel{}, &AddressBookModel{}); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to migrate order tables")
	}
	return db, nil
}

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 在一个事务里写入订单和明细快照，并回填 ID。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "failed to create order")
	}
	order.ID = model.ID
	return nil
}

// FindByID 根据 ID 查找订单，预加载明细快照。
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Lines").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find order by id")
	}
	return ToDomainOrder(&model), nil
}

// FindByNumberAndUser 按业务单号 + 下单人查找。
// 单号全局唯一，带上 user_id 是防止回调方拿着别人的单号撞库。
func (r *GormOrderRepository) FindByNumberAndUser(ctx context.Context, number string, userID int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("number = ? AND user_id = ?", number, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find order by number")
	}
	return ToDomainOrder(&model), nil
}

// ListByUser 按下单人分页查询。
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID int64, status domain.Status, page, pageSize int) ([]*domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&OrderModel{}).Where("user_id = ?", userID)
	if status != 0 {
		query = query.Where("status = ?", int(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "failed to count orders")
	}

	var models []OrderModel
	err := query.Preload("Lines").
		Order("order_time DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "failed to list orders")
	}

	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, total, nil
}

// UpdateStatusFrom 条件更新：WHERE 里带上期望的旧状态，
// 影响行数为 0 说明读写之间状态被别人改了（或订单不存在），绝不盲写。
func (r *GormOrderRepository) UpdateStatusFrom(ctx context.Context, id int64, expect domain.Status, patch domain.StatusPatch) error {
	updates := map[string]interface{}{
		"status": int(patch.To),
	}
	if patch.PayStatus != nil {
		updates["pay_status"] = int(*patch.PayStatus)
	}
	if patch.PayTime != nil {
		updates["pay_time"] = *patch.PayTime
	}
	if patch.DeliveryTime != nil {
		updates["delivery_time"] = *patch.DeliveryTime
	}
	if patch.CancelTime != nil {
		updates["cancel_time"] = *patch.CancelTime
	}
	if patch.CancelReason != nil {
		updates["cancel_reason"] = *patch.CancelReason
	}
	if patch.RejectionReason != nil {
		updates["rejection_reason"] = *patch.RejectionReason
	}

	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, int(expect)).
		Updates(updates)
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "failed to update order status")
	}
	if result.RowsAffected == 0 {
		// 区分"没这单"和"状态变了"
		var count int64
		if err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return pkgerrors.Wrap(err, "failed to check order existence")
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrConcurrentModification
	}
	return nil
}

// FindTimedOutPending 找出 cutoff 之前（含 cutoff 当刻）下单、仍在待付款的订单。
func (r *GormOrderRepository) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND order_time <= ?", int(domain.StatusPendingPayment), cutoff).
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query timed-out orders")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

// GormAddressResolver 从地址簿表解析下单地址并产出快照。
type GormAddressResolver struct {
	db *gorm.DB
}

func NewGormAddressResolver(db *gorm.DB) *GormAddressResolver {
	return &GormAddressResolver{db: db}
}

// Resolve 地址必须存在且属于下单人，否则视为无效地址。
func (r *GormAddressResolver) Resolve(ctx context.Context, addressID, userID int64) (*domain.AddressSnapshot, error) {
	var model AddressBookModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAddressInvalid
		}
		return nil, pkgerrors.Wrap(err, "failed to resolve address")
	}
	return &domain.AddressSnapshot{
		Consignee: model.Consignee,
		Phone:     model.Phone,
		Detail:    model.Detail,
	}, nil
}
