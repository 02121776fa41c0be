package domain

import "time"

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMomo         PaymentMethod = "MOMO"
	PaymentMethodVNPay        PaymentMethod = "VNPAY"
	PaymentMethodZaloPay      PaymentMethod = "ZALOPAY"
)

// ReceiverInfo is the delivery address snapshot copied onto the order at
// creation time. The user's live address book may change later; the order
// keeps what was entered at checkout.
type ReceiverInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	District string `json:"district"`
	Ward     string `json:"ward"`
}

// OrderItem is an immutable snapshot of one purchased line. Product data is
// copied at order creation so historical orders survive later catalog edits.
type OrderItem struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	ProductID    int64  `json:"product_id"`
	VariantID    *int64 `json:"variant_id,omitempty"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image"`
	VariantName  string `json:"variant_name,omitempty"`
	SKU          string `json:"sku"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int32  `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
}

// StatusHistoryEntry is one row of the append-only order status log.
type StatusHistoryEntry struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note"`
	ChangedBy int64       `json:"changed_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Order is the order aggregate. It is created once, atomically, with its
// items and an initial PENDING history entry, and afterwards mutated only
// through status transitions.
type Order struct {
	ID        int64  `json:"id"`
	OrderCode string `json:"order_code"`
	UserID    int64  `json:"user_id"`

	Receiver ReceiverInfo `json:"receiver"`

	PaymentMethod PaymentMethod `json:"payment_method"`
	IsPaid        bool          `json:"is_paid"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`

	Subtotal       int64  `json:"subtotal"`
	ShippingFee    int64  `json:"shipping_fee"`
	DiscountAmount int64  `json:"discount_amount"`
	TotalAmount    int64  `json:"total_amount"`
	VoucherCode    string `json:"voucher_code,omitempty"`

	Status       OrderStatus `json:"status"`
	Note         string      `json:"note,omitempty"`
	AdminNote    string      `json:"admin_note,omitempty"`
	CancelReason string      `json:"cancel_reason,omitempty"`
	ReturnReason string      `json:"return_reason,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items   []OrderItem          `json:"items,omitempty"`
	History []StatusHistoryEntry `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanCancel reports whether the order may still be cancelled by its owner.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// CanRequestReturn reports whether the owner may open a return request.
func (o *Order) CanRequestReturn() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCompleted
}

// ApplyStatus moves the order to next and records the reached-at timestamp,
// if that status has one and it was not reached before. COD orders entering
// COMPLETED are marked paid on the spot. The caller must have checked
// CanTransitionTo already.
func (o *Order) ApplyStatus(next OrderStatus, now time.Time) {
	o.Status = next
	o.UpdatedAt = now

	switch next {
	case OrderStatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case OrderStatusShipping:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case OrderStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case OrderStatusCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
		if o.PaymentMethod == PaymentMethodCOD && !o.IsPaid {
			o.IsPaid = true
			o.PaidAt = &now
		}
	case OrderStatusCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
}

// TotalItemCount sums the quantities of all items.
func (o *Order) TotalItemCount() int32 {
	var n int32
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// FullAddress joins the receiver address parts for display and notifications.
func (o *Order) FullAddress() string {
	addr := o.Receiver.Address
	if o.Receiver.Ward != "" {
		addr += ", " + o.Receiver.Ward
	}
	addr += ", " + o.Receiver.District
	addr += ", " + o.Receiver.City
	return addr
}
