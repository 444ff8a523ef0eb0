// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"takeout/internal/pkg/logger"
	"takeout/internal/service/order/application"
	"takeout/internal/service/order/domain"
)

// result 是统一的响应外壳。code: 1=成功 0=失败。
type result struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
	hub     *Hub
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService, hub *Hub) *OrderHandler {
	return &OrderHandler{service: service, hub: hub}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", h.hub.ServeWs)

	// 用户端
	mux.HandleFunc("POST /user/order/submit", h.submitHandler)
	mux.HandleFunc("PUT /user/order/payment", h.paymentHandler)
	mux.HandleFunc("PUT /user/order/cancel/{id}", h.userCancelHandler)
	mux.HandleFunc("GET /user/order/reminder/{id}", h.remindHandler)
	mux.HandleFunc("GET /user/order/orderDetail/{id}", h.userDetailHandler)
	mux.HandleFunc("GET /user/order/historyOrders", h.historyOrdersHandler)

	// 支付网关回调
	mux.HandleFunc("POST /notify/paySuccess", h.paySuccessHandler)

	// 商家端
	mux.HandleFunc("PUT /admin/order/confirm", h.confirmHandler)
	mux.HandleFunc("PUT /admin/order/rejection", h.rejectHandler)
	mux.HandleFunc("PUT /admin/order/cancel", h.adminCancelHandler)
	mux.HandleFunc("PUT /admin/order/delivery/{id}", h.deliveryHandler)
	mux.HandleFunc("PUT /admin/order/complete/{id}", h.completeHandler)
	mux.HandleFunc("GET /admin/order/details/{id}", h.adminDetailHandler)
}

// extractCtx 从请求头恢复上游的 trace 上下文。
func extractCtx(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

// buyerActor 从请求头解析买家身份。网关层已完成鉴权，这里只取身份。
func buyerActor(r *http.Request) (domain.Actor, error) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		return domain.Actor{}, errors.New("missing or invalid X-User-ID header")
	}
	return domain.Actor{UserID: userID, Role: domain.RoleBuyer}, nil
}

func merchantActor(r *http.Request) domain.Actor {
	// 商家端操作员ID仅用于审计日志，解析失败不阻断请求
	operatorID, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return domain.Actor{UserID: operatorID, Role: domain.RoleMerchant}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid order id in path")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, result{Code: 1, Data: data})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, result{Code: 0, Msg: msg})
}

// fail 把领域错误翻译成HTTP语义，外壳里的文案直接给前端展示。
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOrderStatusError),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCartEmpty), errors.Is(err, domain.ErrAddressInvalid):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Msg("order request failed")
	}
	writeJSON(w, status, result{Code: 0, Msg: err.Error()})
}

type submitRequest struct {
	AddressBookID int64              `json:"addressBookId"`
	PayMethod     int                `json:"payMethod"`
	Remark        string             `json:"remark"`
	Lines         []domain.OrderLine `json:"orderDetailList"`
}

func (h *OrderHandler) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	resp, err := h.service.Submit(ctx, actor, &application.SubmitOrderCommand{
		AddressID: req.AddressBookID,
		PayMethod: req.PayMethod,
		Remark:    req.Remark,
		Lines:     req.Lines,
	})
	if err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, resp)
}

type paymentRequest struct {
	OrderNumber string `json:"orderNumber"`
}

func (h *OrderHandler) paymentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderNumber == "" {
		badRequest(w, "orderNumber is required")
		return
	}

	payload, err := h.service.Pay(ctx, actor, req.OrderNumber)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, payload)
}

type paySuccessRequest struct {
	OrderNumber string `json:"orderNumber"`
	UserID      int64  `json:"userId"`
}

func (h *OrderHandler) paySuccessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)

	var req paySuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderNumber == "" {
		badRequest(w, "orderNumber is required")
		return
	}

	if err := h.service.PaySuccess(ctx, req.OrderNumber, req.UserID); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) userCancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.service.UserCancel(ctx, actor, id); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) remindHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.service.Remind(ctx, actor, id); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) userDetailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	view, err := h.service.DetailForUser(ctx, actor, id)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, view)
}

func (h *OrderHandler) historyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	actor, err := buyerActor(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	statusCode, _ := strconv.Atoi(r.URL.Query().Get("status"))

	resp, err := h.service.ListByUser(ctx, actor, domain.Status(statusCode), page, pageSize)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, resp)
}

type confirmRequest struct {
	ID int64 `json:"id"`
}

func (h *OrderHandler) confirmHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		badRequest(w, "order id is required")
		return
	}

	if err := h.service.Confirm(ctx, merchantActor(r), req.ID); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

type rejectRequest struct {
	ID              int64  `json:"id"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *OrderHandler) rejectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		badRequest(w, "order id is required")
		return
	}
	if req.RejectionReason == "" {
		badRequest(w, "rejectionReason is required")
		return
	}

	if err := h.service.Reject(ctx, merchantActor(r), req.ID, req.RejectionReason); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

type adminCancelRequest struct {
	ID           int64  `json:"id"`
	CancelReason string `json:"cancelReason"`
}

func (h *OrderHandler) adminCancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)

	var req adminCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		badRequest(w, "order id is required")
		return
	}
	if req.CancelReason == "" {
		badRequest(w, "cancelReason is required")
		return
	}

	if err := h.service.AdminCancel(ctx, merchantActor(r), req.ID, req.CancelReason); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) deliveryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.service.StartDelivery(ctx, merchantActor(r), id); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) completeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.service.Complete(ctx, merchantActor(r), id); err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, nil)
}

func (h *OrderHandler) adminDetailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	view, err := h.service.Detail(ctx, id)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	ok(w, view)
}
