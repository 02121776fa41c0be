package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

const voucherQuery = `SELECT id, code, name, description, discount_type, discount_value,
	       max_discount, min_order_amount, usage_limit, usage_limit_per_user,
	       used_count, start_date, end_date, is_active
	FROM vouchers
	WHERE code = $1`

func (q *queries) VoucherByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	return q.voucherByCode(ctx, code, voucherQuery)
}

// VoucherByCodeForUpdate locks the voucher row for the rest of the
// transaction. Checkout takes this lock before reading the per-user usage
// count, so concurrent redemptions by the same user serialize here and the
// second one's count includes the first one's committed usage row.
func (q *queries) VoucherByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error) {
	return q.voucherByCode(ctx, code, voucherQuery+" FOR UPDATE")
}

func (q *queries) voucherByCode(ctx context.Context, code, query string) (*domain.Voucher, error) {
	var v domain.Voucher
	var description sql.NullString
	err := q.db.QueryRowContext(ctx, query, domain.NormalizeVoucherCode(code)).Scan(
		&v.ID,
		&v.Code,
		&v.Name,
		&description,
		&v.DiscountType,
		&v.DiscountValue,
		&v.MaxDiscount,
		&v.MinOrderAmount,
		&v.UsageLimit,
		&v.UsageLimitPerUser,
		&v.UsedCount,
		&v.StartDate,
		&v.EndDate,
		&v.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query voucher by code: %w", err)
	}
	v.Description = description.String

	return &v, nil
}

// CountVoucherUsage counts redemptions by one user. The per-user limit is
// enforced by counting voucher_usage rows on demand, not by a counter field.
func (q *queries) CountVoucherUsage(ctx context.Context, voucherID, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM voucher_usage WHERE voucher_id = $1 AND user_id = $2`

	var count int64
	if err := q.db.QueryRowContext(ctx, query, voucherID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count voucher usage: %w", err)
	}
	return count, nil
}

// RedeemVoucher increments used_count with a guard against the global limit
// and inserts the usage row, both as part of the surrounding checkout
// transaction. Concurrent redemptions near the limit race on the guarded
// update; the loser gets ErrVoucherExhausted and the whole checkout rolls
// back, so used_count can never pass usage_limit.
func (q *queries) RedeemVoucher(ctx context.Context, voucherID, userID, orderID int64) error {
	update := `UPDATE vouchers
	           SET used_count = used_count + 1, updated_at = NOW()
	           WHERE id = $1
	             AND is_active = TRUE
	             AND (usage_limit IS NULL OR used_count < usage_limit)`

	res, err := q.db.ExecContext(ctx, update, voucherID)
	if err != nil {
		return fmt.Errorf("increment voucher used_count: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeem voucher rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVoucherExhausted
	}

	usageOrderID := sql.NullInt64{Int64: orderID, Valid: orderID != 0}
	insert := `INSERT INTO voucher_usage (voucher_id, user_id, order_id, used_at)
	           VALUES ($1, $2, $3, NOW())`
	if _, err := q.db.ExecContext(ctx, insert, voucherID, userID, usageOrderID); err != nil {
		return fmt.Errorf("insert voucher usage: %w", err)
	}
	return nil
}

// DeactivateExpiredVouchers is the housekeeping sweep behind the admin
// maintenance job. Returns how many vouchers were switched off.
func (q *queries) DeactivateExpiredVouchers(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE vouchers
	          SET is_active = FALSE, updated_at = NOW()
	          WHERE is_active = TRUE AND end_date IS NOT NULL AND end_date < $1`

	res, err := q.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired vouchers: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate expired vouchers rows affected: %w", err)
	}
	return affected, nil
}
