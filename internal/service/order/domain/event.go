// internal/service/order/domain/event.go
package domain

import "time"

// 通知事件类型，和商家端大屏的约定保持一致。
const (
	NotifyTypeNewOrder     = 1 // 来单提醒：支付成功后推给商家
	NotifyTypeReminder     = 2 // 催单提醒：用户主动催促
	NotifyTypeStatusChange = 3 // 其余状态流转（接单、派送、完成、取消）
)

// OrderEvent 是发往运营端看板的状态变更事件。
// 引擎只负责发出，投递是 fire-and-forget。
type OrderEvent struct {
	Type       int       `json:"type"`
	OrderID    int64     `json:"orderId"`
	Number     string    `json:"number"`
	Status     Status    `json:"status"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewOrderEvent 构造一条看板事件。
func NewOrderEvent(eventType int, o *Order, content string, at time.Time) *OrderEvent {
	return &OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		Number:     o.Number,
		Status:     o.Status,
		Content:    content,
		OccurredAt: at,
	}
}
