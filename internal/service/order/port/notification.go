// internal/service/order/port/notification.go
package port

import (
	"context"

	"takeout/internal/service/order/domain"
)

// NotificationProducer 是运营端看板通知的出站端口。
// 语义是 fire-and-forget：投递失败只记日志，不回滚订单状态。
type NotificationProducer interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}
