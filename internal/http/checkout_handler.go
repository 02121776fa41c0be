package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type PlaceOrderRequestDTO struct {
	ReceiverName  string `json:"receiver_name"`
	ReceiverPhone string `json:"receiver_phone"`
	ReceiverEmail string `json:"receiver_email"`
	Address       string `json:"address"`
	City          string `json:"city"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	PaymentMethod string `json:"payment_method"`
	VoucherCode   string `json:"voucher_code"`
	Note          string `json:"note"`
}

var validPaymentMethods = map[domain.PaymentMethod]bool{
	domain.PaymentMethodCOD:          true,
	domain.PaymentMethodBankTransfer: true,
	domain.PaymentMethodMomo:         true,
	domain.PaymentMethodVNPay:        true,
	domain.PaymentMethodZaloPay:      true,
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ReceiverName == "" || req.ReceiverPhone == "" || req.Address == "" {
		respondError(w, http.StatusBadRequest, "missing_receiver_info",
			"receiver_name, receiver_phone and address are required")
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !validPaymentMethods[method] {
		respondError(w, http.StatusBadRequest, "invalid_payment_method",
			"payment_method must be one of COD, BANK_TRANSFER, MOMO, VNPAY, ZALOPAY")
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, &service.PlaceOrderRequest{
		UserID: userID,
		Receiver: domain.ReceiverInfo{
			Name:     req.ReceiverName,
			Phone:    req.ReceiverPhone,
			Email:    req.ReceiverEmail,
			Address:  req.Address,
			City:     req.City,
			District: req.District,
			Ward:     req.Ward,
		},
		PaymentMethod: method,
		VoucherCode:   req.VoucherCode,
		Note:          req.Note,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}
