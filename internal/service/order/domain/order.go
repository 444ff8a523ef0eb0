// internal/service/order/domain/order.go
package domain

import "time"

// Order 是订单聚合的根实体。
// 下单时对地址和购物车做快照，之后不再引用原始记录。
type Order struct {
	ID     int64
	Number string // 对外业务单号，支付网关和状态查询用它定位订单
	UserID int64

	Status    Status
	PayStatus PayStatus

	Amount    int64 // 单位: 分，提交时定价，之后不变
	PayMethod int
	Remark    string

	Address AddressSnapshot
	Lines   []OrderLine

	OrderTime    time.Time
	PayTime      *time.Time
	DeliveryTime *time.Time
	CancelTime   *time.Time

	CancelReason    string
	RejectionReason string
}

// AddressSnapshot 是下单那一刻的收货地址快照。
type AddressSnapshot struct {
	Consignee string
	Phone     string
	Detail    string
}

// OrderLine 是下单那一刻的菜品快照。
type OrderLine struct {
	Name   string
	DishID int64
	Number int
	Amount int64 // 单价, 分
}

// NewOrder 工厂函数：创建一个待付款的新订单。
// 明细为空视为购物车为空，直接拒绝。
func NewOrder(userID int64, number string, addr AddressSnapshot, lines []OrderLine, payMethod int, remark string, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	var amount int64
	for _, line := range lines {
		amount += line.Amount * int64(line.Number)
	}

	return &Order{
		Number:    number,
		UserID:    userID,
		Status:    StatusPendingPayment,
		PayStatus: PayStatusUnpaid,
		Amount:    amount,
		PayMethod: payMethod,
		Remark:    remark,
		Address:   addr,
		Lines:     lines,
		OrderTime: now,
	}, nil
}

// MarkPaid 支付确认：待付款 -> 待接单，同时记录支付时间。
// 只有这个转换能把 PayStatus 从 UNPAID 推到 PAID。
func (o *Order) MarkPaid(at time.Time) error {
	if o.Status != StatusPendingPayment {
		return ErrOrderStatusError
	}
	o.Status = StatusToBeConfirmed
	o.PayStatus = PayStatusPaid
	o.PayTime = &at
	return nil
}

// Confirm 商家接单：待接单 -> 已接单。
func (o *Order) Confirm() error {
	if o.Status != StatusToBeConfirmed {
		return ErrOrderStatusError
	}
	o.Status = StatusConfirmed
	return nil
}

// Reject 商家拒单：待接单 -> 已取消。已支付的订单标记退款。
func (o *Order) Reject(reason string, at time.Time) error {
	if o.Status != StatusToBeConfirmed {
		return ErrOrderStatusError
	}
	o.Status = StatusCancelled
	o.RejectionReason = reason
	o.CancelTime = &at
	if o.PayStatus == PayStatusPaid {
		o.PayStatus = PayStatusRefund
	}
	return nil
}

// StartDelivery 开始派送：已接单 -> 派送中。
func (o *Order) StartDelivery() error {
	if o.Status != StatusConfirmed {
		return ErrOrderStatusError
	}
	o.Status = StatusDeliveryInProgress
	return nil
}

// Complete 完成订单：派送中 -> 已完成，记录送达时间。
func (o *Order) Complete(at time.Time) error {
	if o.Status != StatusDeliveryInProgress {
		return ErrOrderStatusError
	}
	o.Status = StatusCompleted
	o.DeliveryTime = &at
	return nil
}

// Cancel 按取消决策表执行取消。决策不通过时订单不变。
func (o *Order) Cancel(role Role, reason string, at time.Time) error {
	decision := CancelDecisionFor(role, o.Status)
	if !decision.Allowed {
		return ErrOrderStatusError
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.CancelTime = &at
	if o.PayStatus == PayStatusPaid {
		o.PayStatus = PayStatusRefund
	}
	return nil
}
