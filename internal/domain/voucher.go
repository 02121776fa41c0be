package domain

import (
	"strings"
	"time"
)

// DiscountType says how a voucher's discount value is interpreted.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// Voucher is a discount code. Codes are stored upper-cased and matched
// case-insensitively. Currency is integral (whole VND), so all discount
// math floors to whole units.
type Voucher struct {
	ID           int64        `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	DiscountType DiscountType `json:"discount_type"`

	// DiscountValue is a percentage (0-100) for PERCENTAGE vouchers and a
	// flat amount for FIXED vouchers.
	DiscountValue  int64  `json:"discount_value"`
	MaxDiscount    *int64 `json:"max_discount,omitempty"`
	MinOrderAmount *int64 `json:"min_order_amount,omitempty"`

	UsageLimit        *int64 `json:"usage_limit,omitempty"`
	UsageLimitPerUser int64  `json:"usage_limit_per_user"`
	UsedCount         int64  `json:"used_count"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// VoucherUsage records a single redemption. Per-user limits are enforced by
// counting these rows, not by a separate counter.
type VoucherUsage struct {
	ID        int64     `json:"id"`
	VoucherID int64     `json:"voucher_id"`
	UserID    int64     `json:"user_id"`
	OrderID   *int64    `json:"order_id,omitempty"`
	UsedAt    time.Time `json:"used_at"`
}

// NormalizeVoucherCode upper-cases and trims a user-entered code.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether the voucher can be redeemed at the given instant:
// active, inside its activity window, and with global usage remaining.
func (v *Voucher) IsValid(now time.Time) bool {
	if !v.IsActive {
		return false
	}
	if v.StartDate != nil && now.Before(*v.StartDate) {
		return false
	}
	if v.EndDate != nil && now.After(*v.EndDate) {
		return false
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return false
	}
	return true
}

// MeetsMinOrder reports whether the order amount reaches the voucher's
// minimum, if one is configured.
func (v *Voucher) MeetsMinOrder(orderAmount int64) bool {
	return v.MinOrderAmount == nil || orderAmount >= *v.MinOrderAmount
}

// CalculateDiscount returns the discount for the given order amount.
// Percentage discounts are floored to whole currency units and capped at
// MaxDiscount when set. The result never exceeds orderAmount, so totals
// cannot go negative. Returns 0 if the voucher is invalid at now or the
// minimum order amount is not met.
func (v *Voucher) CalculateDiscount(orderAmount int64, now time.Time) int64 {
	if !v.IsValid(now) || !v.MeetsMinOrder(orderAmount) {
		return 0
	}

	var discount int64
	if v.DiscountType == DiscountTypePercentage {
		// Integer division floors, which is the single rounding policy for
		// both checkout preview and final order creation.
		discount = orderAmount * v.DiscountValue / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
	} else {
		discount = v.DiscountValue
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// RemainingUsage returns the global redemptions left, or nil when unlimited.
func (v *Voucher) RemainingUsage() *int64 {
	if v.UsageLimit == nil {
		return nil
	}
	left := *v.UsageLimit - v.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}
