// internal/service/order/port/payment.go
package port

import "context"

// PrepayResult 是支付网关返回的不透明预支付载荷，
// 原样透传给客户端拉起收银台，引擎不解释其内容。
type PrepayResult struct {
	NonceStr  string `json:"nonceStr"`
	PaySign   string `json:"paySign"`
	Timestamp string `json:"timeStamp"`
	SignType  string `json:"signType"`
	Package   string `json:"packageStr"`
}

// PaymentGateway 是支付网关的出站端口。
// 订单已结清时实现方必须返回 domain.ErrAlreadyPaid。
type PaymentGateway interface {
	Prepay(ctx context.Context, orderNumber string, amount int64, payerOpenID string) (*PrepayResult, error)
}
