package service

import (
	"context"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

const (
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold = 500000

	// BaseShippingFee is the flat fee below the free threshold.
	BaseShippingFee = 30000
)

// ShippingQuoter prices delivery for an order. The checkout treats it as an
// opaque function of (subtotal, destination, item count).
type ShippingQuoter interface {
	Quote(ctx context.Context, subtotal int64, dest domain.ReceiverInfo, itemCount int32) (int64, error)
}

// FlatRateQuoter is the built-in free-threshold-or-flat-fee rule, also used
// as the fallback when an external carrier quote is unavailable.
type FlatRateQuoter struct{}

func (FlatRateQuoter) Quote(_ context.Context, subtotal int64, _ domain.ReceiverInfo, _ int32) (int64, error) {
	if subtotal >= FreeShippingThreshold {
		return 0, nil
	}
	return BaseShippingFee, nil
}
