package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
)

// VoucherService answers voucher questions outside the checkout
// transaction: storefront previews and housekeeping.
type VoucherService interface {
	PreviewDiscount(ctx context.Context, code string, userID int64, orderAmount int64) (int64, error)
	CanUserUseVoucher(ctx context.Context, code string, userID int64) (bool, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

type VoucherServiceImpl struct {
	store repository.StoreInterface
}

func NewVoucherService(store repository.StoreInterface) *VoucherServiceImpl {
	return &VoucherServiceImpl{store: store}
}

// validateVoucher resolves and checks a code for one user and order amount.
// It is shared between the checkout transaction (q bound to the tx) and
// previews (q bound to the pool) so the quoted discount always matches the
// charged one. Checkout must pass lock=true: the per-user limit is enforced
// by counting usage rows, so the voucher row lock has to be held before the
// count is read or two concurrent checkouts by the same user both see the
// count before either inserts.
func validateVoucher(ctx context.Context, q repository.Querier, code string, userID int64, orderAmount int64, now time.Time, lock bool) (*domain.Voucher, int64, error) {
	normalized := domain.NormalizeVoucherCode(code)

	lookup := q.VoucherByCode
	if lock {
		lookup = q.VoucherByCodeForUpdate
	}
	voucher, err := lookup(ctx, normalized)
	if errors.Is(err, repository.ErrVoucherNotFound) {
		return nil, 0, &InvalidVoucherError{Code: normalized, Reason: "code does not exist"}
	}
	if err != nil {
		return nil, 0, err
	}

	if !voucher.IsValid(now) {
		return nil, 0, &InvalidVoucherError{Code: normalized, Reason: "expired or out of uses"}
	}
	if !voucher.MeetsMinOrder(orderAmount) {
		return nil, 0, &InvalidVoucherError{Code: normalized, Reason: "order amount below minimum"}
	}

	used, err := q.CountVoucherUsage(ctx, voucher.ID, userID)
	if err != nil {
		return nil, 0, err
	}
	if used >= voucher.UsageLimitPerUser {
		return nil, 0, &InvalidVoucherError{Code: normalized, Reason: "per-user usage limit reached"}
	}

	return voucher, voucher.CalculateDiscount(orderAmount, now), nil
}

// PreviewDiscount returns the discount the checkout would apply right now.
// Shares the exact validation and rounding with PlaceOrder.
func (s *VoucherServiceImpl) PreviewDiscount(ctx context.Context, code string, userID int64, orderAmount int64) (int64, error) {
	_, discount, err := validateVoucher(ctx, s.store, code, userID, orderAmount, time.Now(), false)
	if err != nil {
		return 0, err
	}
	return discount, nil
}

func (s *VoucherServiceImpl) CanUserUseVoucher(ctx context.Context, code string, userID int64) (bool, error) {
	voucher, err := s.store.VoucherByCode(ctx, domain.NormalizeVoucherCode(code))
	if errors.Is(err, repository.ErrVoucherNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !voucher.IsValid(time.Now()) {
		return false, nil
	}

	used, err := s.store.CountVoucherUsage(ctx, voucher.ID, userID)
	if err != nil {
		return false, err
	}
	return used < voucher.UsageLimitPerUser, nil
}

// DeactivateExpired switches off vouchers whose end date has passed. Driven
// by an external scheduler; correctness never depends on it because IsValid
// re-checks the window on every use.
func (s *VoucherServiceImpl) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := s.store.DeactivateExpiredVouchers(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("deactivated %d expired vouchers", count)
	}
	return count, nil
}
