package service

import (
	"errors"
	"fmt"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

var (
	ErrEmptyCart = errors.New("no items selected for checkout")

	// ErrUnknownStatus means the requested target status is not part of the
	// order state machine at all.
	ErrUnknownStatus = errors.New("unknown order status")
)

// InsufficientStockError identifies the line that could not be reserved so
// the storefront can tell the user which product to adjust.
type InsufficientStockError struct {
	ProductID   int64
	VariantID   *int64
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// ProductUnavailableError means a cart line references a product or variant
// that no longer exists or was deactivated since it was added.
type ProductUnavailableError struct {
	ProductID int64
	VariantID *int64
}

func (e *ProductUnavailableError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("product %d variant %d is no longer available", e.ProductID, *e.VariantID)
	}
	return fmt.Sprintf("product %d is no longer available", e.ProductID)
}

// InvalidVoucherError aborts the whole checkout; a bad voucher never
// silently degrades to "no discount".
type InvalidVoucherError struct {
	Code   string
	Reason string
}

func (e *InvalidVoucherError) Error() string {
	return fmt.Sprintf("voucher %s cannot be used: %s", e.Code, e.Reason)
}

// InvalidTransitionError carries the current status so the caller can
// reconcile stale UI state.
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
