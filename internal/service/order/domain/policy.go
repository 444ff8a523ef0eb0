// internal/service/order/domain/policy.go
package domain

// Role 区分触发取消的执行者。后台超时任务走买家通道，
// 这样人和定时器共用同一套校验。
type Role int

const (
	RoleBuyer    Role = iota + 1 // 买家本人（含超时自动取消）
	RoleMerchant                 // 商家/管理端
)

// Actor 是每个引擎操作的显式调用者身份，取代任何隐式的全局上下文。
type Actor struct {
	UserID int64
	Role   Role
}

// CancelDecision 是取消决策表的一行裁决结果。
// 退款与否不在表里：只要取消被放行且订单已支付，PayStatus 就转 REFUND。
type CancelDecision struct {
	Allowed bool
}

// buyerCancellable：买家只能在商家接单之前反悔。
var buyerCancellable = map[Status]bool{
	StatusPendingPayment: true,
	StatusToBeConfirmed:  true,
}

// merchantCancellable：商家可以取消任何未取消的订单。
// 已完成的订单也包含在内，给售后退单留通道。
var merchantCancellable = map[Status]bool{
	StatusPendingPayment:     true,
	StatusToBeConfirmed:      true,
	StatusConfirmed:          true,
	StatusDeliveryInProgress: true,
	StatusCompleted:          true,
}

// CancelDecisionFor 查取消决策表：给定执行者角色和订单当前状态，
// 返回是否放行。CANCELLED 对所有人都是终态。
func CancelDecisionFor(role Role, status Status) CancelDecision {
	if status == StatusCancelled {
		return CancelDecision{Allowed: false}
	}
	switch role {
	case RoleBuyer:
		return CancelDecision{Allowed: buyerCancellable[status]}
	case RoleMerchant:
		return CancelDecision{Allowed: merchantCancellable[status]}
	}
	return CancelDecision{Allowed: false}
}
