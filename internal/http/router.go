package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hoaglog2004/Argaty-sub000/internal/metrics"
)

// NewRouter wires the handlers and the global middleware stack.
func NewRouter(
	checkoutHandler *CheckoutHandler,
	orderHandler *OrderHandler,
	voucherHandler *VoucherHandler,
	srvMetrics *metrics.ServerMetrics,
	requestTimeout time.Duration,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware)
	if srvMetrics != nil {
		r.Use(MetricsMiddleware(srvMetrics))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", checkoutHandler.PlaceOrder)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{order_code}", orderHandler.GetOrder)
			r.Post("/{order_code}/cancel", orderHandler.CancelOrder)
			r.Post("/{order_code}/return-request", orderHandler.RequestReturn)
			r.Post("/{order_code}/status", orderHandler.UpdateStatus)
			r.Post("/{order_code}/payment", orderHandler.UpdatePayment)
		})

		r.Post("/vouchers/preview", voucherHandler.PreviewDiscount)
	})

	return r
}
