package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func getUserIDFromContext(ctx context.Context) int64 {
	if userID, ok := ctx.Value(userIDKey).(int64); ok {
		return userID
	}
	return 0
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain and repository errors to HTTP responses.
// Anything unmapped becomes a 500 with no internals leaked.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		stockErr       *service.InsufficientStockError
		unavailableErr *service.ProductUnavailableError
		voucherErr     *service.InvalidVoucherError
		transitionErr  *service.InvalidTransitionError
	)

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "no items selected for checkout")
	case errors.Is(err, service.ErrUnknownStatus):
		respondError(w, http.StatusBadRequest, "unknown_status", err.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())
	case errors.As(err, &unavailableErr):
		respondError(w, http.StatusConflict, "product_unavailable", unavailableErr.Error())
	case errors.As(err, &voucherErr):
		respondError(w, http.StatusBadRequest, "invalid_voucher", voucherErr.Error())
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, "invalid_transition", transitionErr.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, repository.ErrVoucherNotFound):
		respondError(w, http.StatusNotFound, "voucher_not_found", "voucher not found")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
