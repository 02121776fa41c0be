package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/service"
)

type VoucherHandler struct {
	vouchers service.VoucherService
	timeout  time.Duration
}

func NewVoucherHandler(vouchers service.VoucherService, timeout time.Duration) *VoucherHandler {
	return &VoucherHandler{
		vouchers: vouchers,
		timeout:  timeout,
	}
}

type PreviewDiscountRequestDTO struct {
	Code        string `json:"code"`
	OrderAmount int64  `json:"order_amount"`
}

type PreviewDiscountResponseDTO struct {
	Code           string `json:"code"`
	OrderAmount    int64  `json:"order_amount"`
	DiscountAmount int64  `json:"discount_amount"`
}

// POST /api/v1/vouchers/preview
//
// Returns the discount checkout would apply right now for the given amount.
func (h *VoucherHandler) PreviewDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PreviewDiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "missing_code", "code is required")
		return
	}
	if req.OrderAmount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_amount", "order_amount must be positive")
		return
	}

	discount, err := h.vouchers.PreviewDiscount(ctx, req.Code, userID, req.OrderAmount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PreviewDiscountResponseDTO{
		Code:           req.Code,
		OrderAmount:    req.OrderAmount,
		DiscountAmount: discount,
	})
}
