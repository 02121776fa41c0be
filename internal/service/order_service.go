package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/cache"
	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
	"golang.org/x/sync/singleflight"
)

const EventOrderStatusChanged = "order.status_changed"

type OrderService interface {
	UpdateStatus(ctx context.Context, orderCode string, newStatus domain.OrderStatus, actorID int64, note string) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error)
	ShipOrder(ctx context.Context, orderCode string, actorID int64, note string) (*domain.Order, error)
	DeliverOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error)
	CompleteOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderCode string, userID int64, reason string) (*domain.Order, error)
	RequestReturn(ctx context.Context, orderCode string, userID int64, reason string) (*domain.Order, error)
	ApproveReturn(ctx context.Context, orderCode string, actorID int64, note string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderCode string, userID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderCode string, isPaid bool, transactionID string) error
}

type OrderServiceImpl struct {
	store repository.StoreInterface
	cache cache.OrderCache
	sfg   singleflight.Group // Prevents cache stampede on order reads
}

func NewOrderService(store repository.StoreInterface, orderCache cache.OrderCache) *OrderServiceImpl {
	return &OrderServiceImpl{
		store: store,
		cache: orderCache,
	}
}

// transition is the single path every status change goes through: lock the
// order row, check legality, apply the new status plus its side effects,
// append history and queue the notification. guard may reject before the
// legality check (ownership, CanCancel); mutate runs after legality and may
// set reasons on the order.
func (s *OrderServiceImpl) transition(
	ctx context.Context,
	orderCode string,
	newStatus domain.OrderStatus,
	actorID int64,
	note string,
	guard func(*domain.Order) error,
	mutate func(*domain.Order),
) (*domain.Order, error) {

	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}

	var order *domain.Order
	txErr := s.store.ExecTx(ctx, func(q repository.Querier) error {
		// The row lock serializes concurrent updates on the same order, so
		// the loser of a race sees the winner's status, not a stale one.
		o, err := q.OrderByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}

		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		if !o.Status.CanTransitionTo(newStatus) {
			return &InvalidTransitionError{From: o.Status, To: newStatus}
		}

		oldStatus := o.Status
		now := time.Now()
		if mutate != nil {
			mutate(o)
		}
		o.ApplyStatus(newStatus, now)

		// The transition table admits CANCELLED and RETURNED only once per
		// order, so stock is released exactly once even if a cancel retry
		// comes in: the retry fails the legality check above.
		if newStatus.ReleasesStock() {
			items, err := q.OrderItems(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := q.ReleaseStock(ctx, item.ProductID, item.VariantID, item.Quantity); err != nil {
					return err
				}
			}
			o.Items = items
		}

		if err := q.UpdateOrderStatus(ctx, o); err != nil {
			return err
		}

		entry := &domain.StatusHistoryEntry{
			OrderID:   o.ID,
			Status:    newStatus,
			Note:      note,
			ChangedBy: actorID,
			CreatedAt: now,
		}
		if err := q.InsertStatusHistory(ctx, entry); err != nil {
			return err
		}

		if err := queueOrderEvent(ctx, q, EventOrderStatusChanged, o, oldStatus, newStatus); err != nil {
			return err
		}

		order = o
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Drop the cached detail so the next read sees the new status. Cache
	// failures only cost freshness, never correctness.
	go func() {
		if err := s.cache.Delete(context.Background(), orderCode); err != nil {
			log.Printf("cache delete error for order %s: %v", orderCode, err)
		}
	}()

	log.Printf("order %s moved to %s by user %d", orderCode, newStatus, actorID)
	return order, nil
}

func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, orderCode string, newStatus domain.OrderStatus, actorID int64, note string) (*domain.Order, error) {
	return s.transition(ctx, orderCode, newStatus, actorID, note, nil, nil)
}

func (s *OrderServiceImpl) ConfirmOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error) {
	return s.transition(ctx, orderCode, domain.OrderStatusConfirmed, actorID, "order confirmed", nil, nil)
}

func (s *OrderServiceImpl) ShipOrder(ctx context.Context, orderCode string, actorID int64, note string) (*domain.Order, error) {
	if note == "" {
		note = "order handed to carrier"
	}
	return s.transition(ctx, orderCode, domain.OrderStatusShipping, actorID, note, nil, nil)
}

func (s *OrderServiceImpl) DeliverOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error) {
	return s.transition(ctx, orderCode, domain.OrderStatusDelivered, actorID, "order delivered", nil, nil)
}

func (s *OrderServiceImpl) CompleteOrder(ctx context.Context, orderCode string, actorID int64) (*domain.Order, error) {
	return s.transition(ctx, orderCode, domain.OrderStatusCompleted, actorID, "order completed", nil, nil)
}

// CancelOrder is the owner-facing cancellation: the order must belong to
// the caller and still be cancellable.
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, orderCode string, userID int64, reason string) (*domain.Order, error) {
	guard := func(o *domain.Order) error {
		if o.UserID != userID {
			return repository.ErrOrderNotFound
		}
		if !o.CanCancel() {
			return &InvalidTransitionError{From: o.Status, To: domain.OrderStatusCancelled}
		}
		return nil
	}
	mutate := func(o *domain.Order) {
		o.CancelReason = reason
	}
	return s.transition(ctx, orderCode, domain.OrderStatusCancelled, userID, "order cancelled: "+reason, guard, mutate)
}

func (s *OrderServiceImpl) RequestReturn(ctx context.Context, orderCode string, userID int64, reason string) (*domain.Order, error) {
	guard := func(o *domain.Order) error {
		if o.UserID != userID {
			return repository.ErrOrderNotFound
		}
		if !o.CanRequestReturn() {
			return &InvalidTransitionError{From: o.Status, To: domain.OrderStatusReturnRequested}
		}
		return nil
	}
	mutate := func(o *domain.Order) {
		o.ReturnReason = reason
	}
	return s.transition(ctx, orderCode, domain.OrderStatusReturnRequested, userID, "return requested: "+reason, guard, mutate)
}

func (s *OrderServiceImpl) ApproveReturn(ctx context.Context, orderCode string, actorID int64, note string) (*domain.Order, error) {
	if note == "" {
		note = "return approved"
	}
	return s.transition(ctx, orderCode, domain.OrderStatusReturned, actorID, note, nil, nil)
}

// GetOrder loads the full order detail, scoped to the owning user: someone
// else's order code behaves exactly like a missing one.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderCode string, userID int64) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(orderCode, func() (interface{}, error) {
		order, err := s.cache.Get(ctx, orderCode)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		order, errLoad := s.loadOrderWithDetails(ctx, orderCode)
		if errLoad != nil {
			return nil, errLoad
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), orderCode, order); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return order, nil
	})
	if err != nil {
		return nil, err
	}

	order := v.(*domain.Order)
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// loadOrderWithDetails fetches the order with its lines and history in one
// explicit pass; nothing is lazily loaded later.
func (s *OrderServiceImpl) loadOrderWithDetails(ctx context.Context, orderCode string) (*domain.Order, error) {
	order, err := s.store.OrderByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	items, err := s.store.OrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	history, err := s.store.StatusHistory(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.History = history

	return order, nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

func (s *OrderServiceImpl) UpdatePaymentStatus(ctx context.Context, orderCode string, isPaid bool, transactionID string) error {
	order, err := s.store.OrderByCode(ctx, orderCode)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePaymentStatus(ctx, order.ID, isPaid, transactionID, time.Now()); err != nil {
		return err
	}

	go func() {
		if err := s.cache.Delete(context.Background(), orderCode); err != nil {
			log.Printf("cache delete error for order %s: %v", orderCode, err)
		}
	}()

	log.Printf("updated payment status for order %s: paid=%v", orderCode, isPaid)
	return nil
}
