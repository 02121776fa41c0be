package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
)

type OrderHandler struct {
	orders  service.OrderService
	timeout time.Duration
}

func NewOrderHandler(orders service.OrderService, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderItemDTO struct {
	ProductID    int64  `json:"product_id"`
	VariantID    *int64 `json:"variant_id,omitempty"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	VariantName  string `json:"variant_name,omitempty"`
	SKU          string `json:"sku,omitempty"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int32  `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
}

type StatusHistoryDTO struct {
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

type OrderResponseDTO struct {
	OrderCode      string             `json:"order_code"`
	Status         string             `json:"status"`
	PaymentMethod  string             `json:"payment_method"`
	IsPaid         bool               `json:"is_paid"`
	Subtotal       int64              `json:"subtotal"`
	ShippingFee    int64              `json:"shipping_fee"`
	DiscountAmount int64              `json:"discount_amount"`
	TotalAmount    int64              `json:"total_amount"`
	VoucherCode    string             `json:"voucher_code,omitempty"`
	ReceiverName   string             `json:"receiver_name"`
	ReceiverPhone  string             `json:"receiver_phone"`
	Address        string             `json:"address"`
	Note           string             `json:"note,omitempty"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	ReturnReason   string             `json:"return_reason,omitempty"`
	Items          []OrderItemDTO     `json:"items"`
	History        []StatusHistoryDTO `json:"history,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			VariantName:  item.VariantName,
			SKU:          item.SKU,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}

	history := make([]StatusHistoryDTO, 0, len(o.History))
	for _, entry := range o.History {
		history = append(history, StatusHistoryDTO{
			Status:    string(entry.Status),
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
	}

	return OrderResponseDTO{
		OrderCode:      o.OrderCode,
		Status:         string(o.Status),
		PaymentMethod:  string(o.PaymentMethod),
		IsPaid:         o.IsPaid,
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		DiscountAmount: o.DiscountAmount,
		TotalAmount:    o.TotalAmount,
		VoucherCode:    o.VoucherCode,
		ReceiverName:   o.Receiver.Name,
		ReceiverPhone:  o.Receiver.Phone,
		Address:        o.FullAddress(),
		Note:           o.Note,
		CancelReason:   o.CancelReason,
		ReturnReason:   o.ReturnReason,
		Items:          items,
		History:        history,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
}

// GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, convertOrder(&orders[i]))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_code}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderCode := chi.URLParam(r, "order_code")
	if orderCode == "" {
		respondError(w, http.StatusBadRequest, "missing_order_code", "order_code is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderCode, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

type CancelOrderRequestDTO struct {
	Reason string `json:"reason"`
}

// POST /api/v1/orders/{order_code}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderCode := chi.URLParam(r, "order_code")

	var req CancelOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "missing_reason", "reason is required")
		return
	}

	order, err := h.orders.CancelOrder(ctx, orderCode, userID, req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// POST /api/v1/orders/{order_code}/return-request
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderCode := chi.URLParam(r, "order_code")

	var req CancelOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "missing_reason", "reason is required")
		return
	}

	order, err := h.orders.RequestReturn(ctx, orderCode, userID, req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// POST /api/v1/orders/{order_code}/status
//
// Back-office transition endpoint. The edge proxy only routes staff here.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderCode := chi.URLParam(r, "order_code")

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, orderCode, domain.OrderStatus(req.Status), userID, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

type UpdatePaymentRequestDTO struct {
	IsPaid        bool   `json:"is_paid"`
	TransactionID string `json:"transaction_id"`
}

// POST /api/v1/orders/{order_code}/payment
//
// Called by the payment gateway callback handler after signature checks.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderCode := chi.URLParam(r, "order_code")

	var req UpdatePaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.orders.UpdatePaymentStatus(ctx, orderCode, req.IsPaid, req.TransactionID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
