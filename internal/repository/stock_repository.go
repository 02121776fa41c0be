package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

func (q *queries) StockUnit(ctx context.Context, productID int64, variantID *int64) (*domain.StockUnit, error) {
	query := `SELECT product_id, variant_id, quantity, low_stock_threshold, is_active,
	                 price, product_name, image, variant_name, sku
	          FROM stock_units
	          WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2`

	var su domain.StockUnit
	var variantName sql.NullString
	err := q.db.QueryRowContext(ctx, query, productID, variantID).Scan(
		&su.ProductID,
		&su.VariantID,
		&su.Quantity,
		&su.LowStockAt,
		&su.IsActive,
		&su.Price,
		&su.ProductName,
		&su.Image,
		&variantName,
		&su.SKU,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStockUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock unit: %w", err)
	}
	su.VariantName = variantName.String

	return &su, nil
}

// ReserveStock decrements available quantity with a single conditional
// statement. Two concurrent reservations for the last unit cannot both
// succeed: the row lock serializes them and the WHERE guard rejects the
// loser with ErrInsufficientStock.
func (q *queries) ReserveStock(ctx context.Context, productID int64, variantID *int64, quantity int32) error {
	query := `UPDATE stock_units
	          SET quantity = quantity - $3, updated_at = NOW()
	          WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2
	            AND quantity >= $3`

	res, err := q.db.ExecContext(ctx, query, productID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// ReleaseStock returns quantity to the ledger. Used on cancellation and
// return; an unconditional increment that is not expected to fail.
func (q *queries) ReleaseStock(ctx context.Context, productID int64, variantID *int64, quantity int32) error {
	query := `UPDATE stock_units
	          SET quantity = quantity + $3, updated_at = NOW()
	          WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2`

	res, err := q.db.ExecContext(ctx, query, productID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStockUnitNotFound
	}
	return nil
}
