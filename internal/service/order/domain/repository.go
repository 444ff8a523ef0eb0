// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// StatusPatch 描述一次状态流转要写入的字段。
// 除 To 以外都是可选项，nil 表示不动。
type StatusPatch struct {
	To              Status
	PayStatus       *PayStatus
	PayTime         *time.Time
	DeliveryTime    *time.Time
	CancelTime      *time.Time
	CancelReason    *string
	RejectionReason *string
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// Create 持久化一个新订单（含明细快照），回填 ID。
	Create(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单。
	FindByID(ctx context.Context, id int64) (*Order, error)

	// FindByNumberAndUser 按业务单号 + 下单人查找，支付回调用这条路径定位订单。
	FindByNumberAndUser(ctx context.Context, number string, userID int64) (*Order, error)

	// ListByUser 按下单人分页查询；status 为 0 时不过滤状态。
	ListByUser(ctx context.Context, userID int64, status Status, page, pageSize int) ([]*Order, int64, error)

	// UpdateStatusFrom 条件更新：仅当数据库中的状态仍为 expect 时写入 patch。
	// 状态已经漂移时返回 ErrConcurrentModification，订单不存在时返回 ErrOrderNotFound。
	// 人发起的请求和后台超时任务都必须走这一个原语。
	UpdateStatusFrom(ctx context.Context, id int64, expect Status, patch StatusPatch) error

	// FindTimedOutPending 找出在 cutoff 之前（含恰好等于 cutoff）下单、
	// 至今仍处于待付款的订单，供超时清理任务使用。
	FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*Order, error)
}
