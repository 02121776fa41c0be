package repository

import (
	"context"
	"fmt"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/lib/pq"
)

// SelectedCartLines returns the user's cart lines marked for checkout,
// ordered by (product_id, variant_id) so concurrent checkouts over
// overlapping products take row locks in the same order.
func (q *queries) SelectedCartLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	query := `SELECT id, user_id, product_id, variant_id, quantity, unit_price, is_selected
	          FROM cart_items
	          WHERE user_id = $1 AND is_selected = TRUE
	          ORDER BY product_id, variant_id NULLS FIRST`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query selected cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.UserID,
			&line.ProductID,
			&line.VariantID,
			&line.Quantity,
			&line.UnitPrice,
			&line.Selected,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}

// DeleteCartLines removes the purchased lines from the live cart. Scoped by
// user so a stale line id can never delete from someone else's cart.
func (q *queries) DeleteCartLines(ctx context.Context, userID int64, lineIDs []int64) error {
	if len(lineIDs) == 0 {
		return nil
	}

	query := `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`
	if _, err := q.db.ExecContext(ctx, query, userID, pq.Array(lineIDs)); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}
