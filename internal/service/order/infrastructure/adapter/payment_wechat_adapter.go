// internal/service/order/infrastructure/adapter/payment_wechat_adapter.go
package adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"takeout/internal/pkg/httpclient"
	"takeout/internal/service/order/domain"
	"takeout/internal/service/order/port"
)

// 网关用这个业务码表示订单已结清
const codeOrderPaid = "ORDERPAID"

// WechatPayAdapter 是 port.PaymentGateway 的微信支付实现。
// endpoint 为空时走本地模拟，开发环境不需要真网关也能跑通支付链路。
type WechatPayAdapter struct {
	client   *httpclient.Client
	endpoint string
}

func NewWechatPayAdapter(client *httpclient.Client, endpoint string) *WechatPayAdapter {
	return &WechatPayAdapter{client: client, endpoint: endpoint}
}

type prepayRequest struct {
	OrderNumber string `json:"orderNumber"`
	Amount      int64  `json:"amount"`
	OpenID      string `json:"openid"`
}

type prepayResponse struct {
	Code     string `json:"code"`
	NonceStr string `json:"nonceStr"`
	PaySign  string `json:"paySign"`
	Package  string `json:"package"`
}

// Prepay 请求预下单。网关报告订单已支付时返回 domain.ErrAlreadyPaid，
// 载荷对调用方是不透明的，原样透传给客户端。
func (a *WechatPayAdapter) Prepay(ctx context.Context, orderNumber string, amount int64, payerOpenID string) (*port.PrepayResult, error) {
	if a.endpoint == "" {
		return mockPrepay(orderNumber), nil
	}

	var resp prepayResponse
	req := prepayRequest{OrderNumber: orderNumber, Amount: amount, OpenID: payerOpenID}
	if err := a.client.PostJSON(ctx, a.endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Code == codeOrderPaid {
		return nil, domain.ErrAlreadyPaid
	}

	return &port.PrepayResult{
		NonceStr:  resp.NonceStr,
		PaySign:   resp.PaySign,
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		SignType:  "RSA",
		Package:   resp.Package,
	}, nil
}

// mockPrepay 本地模拟的预支付载荷，形状和真网关一致。
func mockPrepay(orderNumber string) *port.PrepayResult {
	return &port.PrepayResult{
		NonceStr:  uuid.New().String(),
		PaySign:   "mock-sign",
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		SignType:  "RSA",
		Package:   fmt.Sprintf("prepay_id=mock-%s", orderNumber),
	}
}
