package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/lib/pq"
)

const orderColumns = `id, order_code, user_id,
	receiver_name, receiver_phone, receiver_email, shipping_address, city, district, ward,
	payment_method, is_paid, paid_at, transaction_id,
	subtotal, shipping_fee, discount_amount, total_amount, voucher_code,
	status, note, admin_note, cancel_reason, return_reason,
	confirmed_at, shipped_at, delivered_at, completed_at, cancelled_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var email, ward, transactionID, voucherCode sql.NullString
	var note, adminNote, cancelReason, returnReason sql.NullString

	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.UserID,
		&o.Receiver.Name,
		&o.Receiver.Phone,
		&email,
		&o.Receiver.Address,
		&o.Receiver.City,
		&o.Receiver.District,
		&ward,
		&o.PaymentMethod,
		&o.IsPaid,
		&o.PaidAt,
		&transactionID,
		&o.Subtotal,
		&o.ShippingFee,
		&o.DiscountAmount,
		&o.TotalAmount,
		&voucherCode,
		&o.Status,
		&note,
		&adminNote,
		&cancelReason,
		&returnReason,
		&o.ConfirmedAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CompletedAt,
		&o.CancelledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Receiver.Email = email.String
	o.Receiver.Ward = ward.String
	o.TransactionID = transactionID.String
	o.VoucherCode = voucherCode.String
	o.Note = note.String
	o.AdminNote = adminNote.String
	o.CancelReason = cancelReason.String
	o.ReturnReason = returnReason.String
	return &o, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertOrder persists the order header and fills in the generated id and
// created_at. Items and the initial history entry are inserted separately
// inside the same transaction. A code collision reports ErrDuplicateOrder
// via ON CONFLICT DO NOTHING instead of a unique violation, so the
// surrounding transaction stays usable and the caller can retry with a
// fresh code.
func (q *queries) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (order_code, user_id,
	              receiver_name, receiver_phone, receiver_email, shipping_address, city, district, ward,
	              payment_method, is_paid, paid_at, transaction_id,
	              subtotal, shipping_fee, discount_amount, total_amount, voucher_code,
	              status, note, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	                  $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
	          ON CONFLICT (order_code) DO NOTHING
	          RETURNING id, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		order.OrderCode,
		order.UserID,
		order.Receiver.Name,
		order.Receiver.Phone,
		nullStr(order.Receiver.Email),
		order.Receiver.Address,
		order.Receiver.City,
		order.Receiver.District,
		nullStr(order.Receiver.Ward),
		order.PaymentMethod,
		order.IsPaid,
		order.PaidAt,
		nullStr(order.TransactionID),
		order.Subtotal,
		order.ShippingFee,
		order.DiscountAmount,
		order.TotalAmount,
		nullStr(order.VoucherCode),
		order.Status,
		nullStr(order.Note),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateOrder
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (q *queries) InsertOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, variant_id, product_name,
	              product_image, variant_name, sku, unit_price, quantity, subtotal)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	for i := range items {
		item := &items[i]
		err := q.db.QueryRowContext(ctx, query,
			orderID,
			item.ProductID,
			item.VariantID,
			item.ProductName,
			nullStr(item.ProductImage),
			nullStr(item.VariantName),
			item.SKU,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		item.OrderID = orderID
	}
	return nil
}

func (q *queries) InsertStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	query := `INSERT INTO order_status_history (order_id, status, note, changed_by, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	err := q.db.QueryRowContext(ctx, query,
		entry.OrderID,
		entry.Status,
		nullStr(entry.Note),
		entry.ChangedBy,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (q *queries) OrderByCode(ctx context.Context, orderCode string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_code = $1`
	return q.orderByCodeQuery(ctx, query, orderCode)
}

// OrderByCodeForUpdate locks the order row for the rest of the transaction,
// serializing concurrent status updates on the same order.
func (q *queries) OrderByCodeForUpdate(ctx context.Context, orderCode string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_code = $1 FOR UPDATE`
	return q.orderByCodeQuery(ctx, query, orderCode)
}

func (q *queries) orderByCodeQuery(ctx context.Context, query, orderCode string) (*domain.Order, error) {
	order, err := scanOrder(q.db.QueryRowContext(ctx, query, orderCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by code: %w", err)
	}
	return order, nil
}

func (q *queries) OrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, variant_id, product_name, product_image,
	                 variant_name, sku, unit_price, quantity, subtotal
	          FROM order_items
	          WHERE order_id = $1
	          ORDER BY id`

	rows, err := q.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var image, variantName sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.ProductName,
			&image,
			&variantName,
			&item.SKU,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.ProductImage = image.String
		item.VariantName = variantName.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (q *queries) StatusHistory(ctx context.Context, orderID int64) ([]domain.StatusHistoryEntry, error) {
	query := `SELECT id, order_id, status, note, changed_by, created_at
	          FROM order_status_history
	          WHERE order_id = $1
	          ORDER BY created_at DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var entries []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		var note sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&note,
			&entry.ChangedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		entry.Note = note.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func (q *queries) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus writes back the mutable transition fields. Money fields
// and items are immutable after creation and deliberately not touched here.
func (q *queries) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	query := `UPDATE orders
	          SET status = $2, is_paid = $3, paid_at = $4,
	              admin_note = $5, cancel_reason = $6, return_reason = $7,
	              confirmed_at = $8, shipped_at = $9, delivered_at = $10,
	              completed_at = $11, cancelled_at = $12, updated_at = NOW()
	          WHERE id = $1`

	res, err := q.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.IsPaid,
		order.PaidAt,
		nullStr(order.AdminNote),
		nullStr(order.CancelReason),
		nullStr(order.ReturnReason),
		order.ConfirmedAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CompletedAt,
		order.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (q *queries) UpdatePaymentStatus(ctx context.Context, orderID int64, isPaid bool, transactionID string, paidAt time.Time) error {
	query := `UPDATE orders
	          SET is_paid = $2, paid_at = $3, transaction_id = $4, updated_at = NOW()
	          WHERE id = $1`

	var at *time.Time
	if isPaid {
		at = &paidAt
	}

	res, err := q.db.ExecContext(ctx, query, orderID, isPaid, at, nullStr(transactionID))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
