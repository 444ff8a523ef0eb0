// internal/service/order/port/sequence.go
package port

import "context"

// NumberSequence 生成对外业务单号。
// 单号必须全局唯一：同一单号不允许跨用户碰撞。
type NumberSequence interface {
	Next(ctx context.Context) (string, error)
}

// PaymentDeduper 对支付成功回调去重。
// 网关可能重复投递同一单号的成功通知，第一次返回 true，之后返回 false。
// 占位之后回调处理失败时必须 Unmark 释放，否则网关的重试会被当成重复回调吞掉。
type PaymentDeduper interface {
	MarkProcessed(ctx context.Context, orderNumber string) (bool, error)
	Unmark(ctx context.Context, orderNumber string) error
}
