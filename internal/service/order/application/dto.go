// internal/service/order/application/dto.go
package application

import (
	"time"

	"takeout/internal/service/order/domain"
)

// SubmitOrderCommand 是下单用例的输入数据。
type SubmitOrderCommand struct {
	AddressID int64
	PayMethod int
	Remark    string
	Lines     []domain.OrderLine
}

// SubmitOrderResult 是下单用例的输出数据。
type SubmitOrderResult struct {
	OrderID   int64     `json:"id"`
	Number    string    `json:"orderNumber"`
	Amount    int64     `json:"orderAmount"`
	OrderTime time.Time `json:"orderTime"`
}

// OrderView 是订单详情的只读快照。数值状态码对外是契约，原样输出。
type OrderView struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	Status          int             `json:"status"`
	PayStatus       int             `json:"payStatus"`
	Amount          int64           `json:"amount"`
	Remark          string          `json:"remark,omitempty"`
	Consignee       string          `json:"consignee"`
	Phone           string          `json:"phone"`
	Address         string          `json:"address"`
	Lines           []OrderLineView `json:"orderDetailList"`
	OrderTime       time.Time       `json:"orderTime"`
	PayTime         *time.Time      `json:"checkoutTime,omitempty"`
	DeliveryTime    *time.Time      `json:"deliveryTime,omitempty"`
	CancelTime      *time.Time      `json:"cancelTime,omitempty"`
	CancelReason    string          `json:"cancelReason,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
}

type OrderLineView struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
	Amount int64  `json:"amount"`
}

// PageResult 分页查询的通用外壳。
type PageResult struct {
	Total   int64        `json:"total"`
	Records []*OrderView `json:"records"`
}

// ToOrderView 把领域实体转换为只读视图。
func ToOrderView(o *domain.Order) *OrderView {
	lines := make([]OrderLineView, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineView{Name: l.Name, Number: l.Number, Amount: l.Amount})
	}
	return &OrderView{
		ID:              o.ID,
		Number:          o.Number,
		Status:          int(o.Status),
		PayStatus:       int(o.PayStatus),
		Amount:          o.Amount,
		Remark:          o.Remark,
		Consignee:       o.Address.Consignee,
		Phone:           o.Address.Phone,
		Address:         o.Address.Detail,
		Lines:           lines,
		OrderTime:       o.OrderTime,
		PayTime:         o.PayTime,
		DeliveryTime:    o.DeliveryTime,
		CancelTime:      o.CancelTime,
		CancelReason:    o.CancelReason,
		RejectionReason: o.RejectionReason,
	}
}
