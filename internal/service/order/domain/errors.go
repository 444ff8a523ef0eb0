// internal/service/order/domain/errors.go
package domain

import "errors"

// 业务失败一律以哨兵错误返回，不用 panic，也不做异常式控制流。
// 调用方通过 errors.Is 区分错误种类。
var (
	// ErrOrderNotFound 订单不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderStatusError 当前状态下该操作不合法，订单未发生任何变更。
	ErrOrderStatusError = errors.New("order status error")

	// ErrCartEmpty 下单时购物车为空。
	ErrCartEmpty = errors.New("shopping cart is empty")

	// ErrAddressInvalid 下单时地址无法解析。
	ErrAddressInvalid = errors.New("address book record not found")

	// ErrAlreadyPaid 支付网关报告订单已结清。
	ErrAlreadyPaid = errors.New("order has already been paid")

	// ErrConcurrentModification 条件更新落空：读到的状态在写回前被其他执行者改掉了。
	// 对外可以按状态错误呈现，程序内保持可区分。
	ErrConcurrentModification = errors.New("order was modified concurrently")
)
