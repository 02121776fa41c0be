package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
)

const EventOrderCreated = "order.created"

type PlaceOrderRequest struct {
	UserID        int64
	Receiver      domain.ReceiverInfo
	PaymentMethod domain.PaymentMethod
	VoucherCode   string
	Note          string
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*domain.Order, error)
}

type CheckoutServiceImpl struct {
	store    repository.StoreInterface
	shipping ShippingQuoter
}

func NewCheckoutService(store repository.StoreInterface, shipping ShippingQuoter) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		store:    store,
		shipping: shipping,
	}
}

// PlaceOrder converts the user's selected cart lines into a PENDING order.
// Everything from stock reservation to cart truncation runs in one database
// transaction: if any step fails, no stock stays reserved, no order rows
// and no outbox event exist. The order-created notification is queued in
// the outbox and published only after commit.
func (s *CheckoutServiceImpl) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*domain.Order, error) {
	var order *domain.Order

	txErr := s.store.ExecTx(ctx, func(q repository.Querier) error {
		// Lines come back ordered by (product_id, variant_id) so concurrent
		// checkouts over overlapping products cannot deadlock on stock rows.
		lines, err := q.SelectedCartLines(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		items := make([]domain.OrderItem, 0, len(lines))
		var subtotal int64
		var itemCount int32
		for _, line := range lines {
			item, err := s.reserveLine(ctx, q, line)
			if err != nil {
				return err
			}
			items = append(items, *item)
			subtotal += item.Subtotal
			itemCount += item.Quantity
		}

		shippingFee, err := s.shipping.Quote(ctx, subtotal, req.Receiver, itemCount)
		if err != nil {
			return fmt.Errorf("quote shipping fee: %w", err)
		}

		now := time.Now()

		var voucher *domain.Voucher
		var discount int64
		if req.VoucherCode != "" {
			voucher, discount, err = validateVoucher(ctx, q, req.VoucherCode, req.UserID, subtotal, now, true)
			if err != nil {
				return err
			}
		}

		total := subtotal + shippingFee - discount
		if total < 0 {
			total = 0
		}

		order = &domain.Order{
			OrderCode:      domain.NewOrderCode(now),
			UserID:         req.UserID,
			Receiver:       req.Receiver,
			PaymentMethod:  req.PaymentMethod,
			Subtotal:       subtotal,
			ShippingFee:    shippingFee,
			DiscountAmount: discount,
			TotalAmount:    total,
			Status:         domain.OrderStatusPending,
			Note:           req.Note,
		}
		if voucher != nil {
			order.VoucherCode = voucher.Code
		}

		if err := q.InsertOrder(ctx, order); err != nil {
			if !errors.Is(err, repository.ErrDuplicateOrder) {
				return err
			}
			// Another instance generated the same minute+counter code; take
			// a fresh one and retry once.
			order.OrderCode = domain.NewOrderCode(now)
			if err := q.InsertOrder(ctx, order); err != nil {
				return err
			}
		}
		if err := q.InsertOrderItems(ctx, order.ID, items); err != nil {
			return err
		}
		order.Items = items

		entry := &domain.StatusHistoryEntry{
			OrderID:   order.ID,
			Status:    domain.OrderStatusPending,
			Note:      "order created",
			ChangedBy: req.UserID,
			CreatedAt: now,
		}
		if err := q.InsertStatusHistory(ctx, entry); err != nil {
			return err
		}
		order.History = []domain.StatusHistoryEntry{*entry}

		if voucher != nil {
			if err := q.RedeemVoucher(ctx, voucher.ID, req.UserID, order.ID); err != nil {
				if errors.Is(err, repository.ErrVoucherExhausted) {
					// Lost a race on the last global use; roll the whole
					// checkout back rather than charging full price.
					return &InvalidVoucherError{Code: voucher.Code, Reason: "usage limit reached"}
				}
				return err
			}
		}

		lineIDs := make([]int64, 0, len(lines))
		for _, line := range lines {
			lineIDs = append(lineIDs, line.ID)
		}
		if err := q.DeleteCartLines(ctx, req.UserID, lineIDs); err != nil {
			return err
		}

		return queueOrderEvent(ctx, q, EventOrderCreated, order, "", order.Status)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("created order %s for user %d, total %d", order.OrderCode, req.UserID, order.TotalAmount)
	return order, nil
}

// reserveLine checks the catalog row is still sellable, atomically reserves
// the quantity and builds the immutable order item snapshot.
func (s *CheckoutServiceImpl) reserveLine(ctx context.Context, q repository.Querier, line domain.CartLine) (*domain.OrderItem, error) {
	su, err := q.StockUnit(ctx, line.ProductID, line.VariantID)
	if errors.Is(err, repository.ErrStockUnitNotFound) {
		return nil, &ProductUnavailableError{ProductID: line.ProductID, VariantID: line.VariantID}
	}
	if err != nil {
		return nil, fmt.Errorf("load stock unit: %w", err)
	}
	if !su.IsActive {
		return nil, &ProductUnavailableError{ProductID: line.ProductID, VariantID: line.VariantID}
	}

	if err := q.ReserveStock(ctx, line.ProductID, line.VariantID, line.Quantity); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, &InsufficientStockError{
				ProductID:   line.ProductID,
				VariantID:   line.VariantID,
				ProductName: su.ProductName,
				Requested:   line.Quantity,
				Available:   su.Quantity,
			}
		}
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	return &domain.OrderItem{
		ProductID:    line.ProductID,
		VariantID:    line.VariantID,
		ProductName:  su.ProductName,
		ProductImage: su.Image,
		VariantName:  su.VariantName,
		SKU:          su.SKU,
		UnitPrice:    line.UnitPrice,
		Quantity:     line.Quantity,
		Subtotal:     line.Subtotal(),
	}, nil
}

// orderEventPayload is what the outbox publishes to the notification topic.
type orderEventPayload struct {
	OrderCode   string             `json:"order_code"`
	UserID      int64              `json:"user_id"`
	OldStatus   domain.OrderStatus `json:"old_status,omitempty"`
	NewStatus   domain.OrderStatus `json:"new_status"`
	TotalAmount int64              `json:"total_amount"`
	ItemCount   int32              `json:"item_count"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func queueOrderEvent(ctx context.Context, q repository.Querier, eventType string, order *domain.Order, oldStatus, newStatus domain.OrderStatus) error {
	payload, err := json.Marshal(orderEventPayload{
		OrderCode:   order.OrderCode,
		UserID:      order.UserID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		TotalAmount: order.TotalAmount,
		ItemCount:   order.TotalItemCount(),
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	return q.InsertOutboxEvent(ctx, &repository.OutboxEvent{
		EventID:     uuid.New().String(),
		AggregateID: order.OrderCode,
		EventType:   eventType,
		Payload:     payload,
	})
}
