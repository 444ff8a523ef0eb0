// internal/service/order/domain/status.go
package domain

// Status 定义了订单的生命周期状态。
// 数值编码对外部接口（管理端、支付回调方）是契约的一部分，不可改动。
type Status int

const (
	StatusPendingPayment     Status = 1 // 待付款
	StatusToBeConfirmed      Status = 2 // 待接单
	StatusConfirmed          Status = 3 // 已接单
	StatusDeliveryInProgress Status = 4 // 派送中
	StatusCompleted          Status = 5 // 已完成
	StatusCancelled          Status = 6 // 已取消 (用户、商家或系统超时)
)

// PayStatus 是独立于订单流转的资金轴：记录钱的去向，而不是单的去向。
type PayStatus int

const (
	PayStatusUnpaid PayStatus = 0 // 未支付
	PayStatusPaid   PayStatus = 1 // 已支付
	PayStatusRefund PayStatus = 2 // 需退款/已退款
)

var statusNames = map[Status]string{
	StatusPendingPayment:     "PENDING_PAYMENT",
	StatusToBeConfirmed:      "TO_BE_CONFIRMED",
	StatusConfirmed:          "CONFIRMED",
	StatusDeliveryInProgress: "DELIVERY_IN_PROGRESS",
	StatusCompleted:          "COMPLETED",
	StatusCancelled:          "CANCELLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTerminal 判断状态是否为终态。已完成的订单仍可被商家强制取消，
// 所以这里的"终态"只对买家和后台超时任务而言。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (p PayStatus) String() string {
	switch p {
	case PayStatusUnpaid:
		return "UNPAID"
	case PayStatusPaid:
		return "PAID"
	case PayStatusRefund:
		return "REFUND"
	}
	return "UNKNOWN"
}
