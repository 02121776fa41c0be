package service

import (
	"context"
	"testing"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOrder inserts an order with one two-unit item at the given status and
// returns its code.
func seedOrder(t *testing.T, store *fakeStore, userID int64, status domain.OrderStatus, method domain.PaymentMethod) string {
	t.Helper()

	order := &domain.Order{
		OrderCode:     domain.NewOrderCode(time.Now()),
		UserID:        userID,
		PaymentMethod: method,
		Subtotal:      400000,
		ShippingFee:   30000,
		TotalAmount:   430000,
		Status:        status,
	}
	require.NoError(t, store.InsertOrder(context.Background(), order))
	require.NoError(t, store.InsertOrderItems(context.Background(), order.ID, []domain.OrderItem{
		{ProductID: 1, ProductName: "Ceramic Mug", UnitPrice: 200000, Quantity: 2, Subtotal: 400000},
	}))
	return order.OrderCode
}

func newOrderServiceUnderTest() (*OrderServiceImpl, *fakeStore, *fakeCache) {
	store := newFakeStore()
	store.addStock(1, nil, domain.StockUnit{Quantity: 8, IsActive: true, ProductName: "Ceramic Mug"})
	orderCache := newFakeCache()
	return NewOrderService(store, orderCache), store, orderCache
}

func TestUpdateStatus_LegalTransition(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	order, err := svc.UpdateStatus(context.Background(), code, domain.OrderStatusConfirmed, 1, "looks good")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	require.NotNil(t, order.ConfirmedAt)

	history, err := store.StatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "looks good", history[0].Note)
	assert.Equal(t, int64(1), history[0].ChangedBy)

	require.Len(t, store.outbox, 1)
	assert.Equal(t, EventOrderStatusChanged, store.outbox[0].EventType)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	_, err := svc.UpdateStatus(context.Background(), code, domain.OrderStatusDelivered, 1, "")

	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, domain.OrderStatusPending, transErr.From)
	assert.Equal(t, domain.OrderStatusDelivered, transErr.To)

	// nothing was written
	assert.Empty(t, store.outbox)
	assert.Empty(t, store.history)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	_, err := svc.UpdateStatus(context.Background(), code, "TELEPORTED", 1, "")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	svc, _, _ := newOrderServiceUnderTest()

	_, err := svc.UpdateStatus(context.Background(), "AG0000000000000", domain.OrderStatusConfirmed, 1, "")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestCompleteOrder_CODMarkedPaid(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusDelivered, domain.PaymentMethodCOD)

	order, err := svc.CompleteOrder(context.Background(), code, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.True(t, order.IsPaid)
	require.NotNil(t, order.PaidAt)
}

func TestCompleteOrder_BankTransferNotAutoPaid(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusDelivered, domain.PaymentMethodBankTransfer)

	order, err := svc.CompleteOrder(context.Background(), code, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.False(t, order.IsPaid)
}

func TestCancelOrder_ReleasesStock(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	order, err := svc.CancelOrder(context.Background(), code, 42, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "changed my mind", order.CancelReason)
	require.NotNil(t, order.CancelledAt)

	// the two reserved units came back
	assert.Equal(t, int32(10), store.stockQuantity(1, nil))
}

func TestCancelOrder_SecondCancelFailsAndReleasesNothing(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	_, err := svc.CancelOrder(context.Background(), code, 42, "first")
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), code, 42, "again")
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)

	// stock released exactly once
	assert.Equal(t, int32(10), store.stockQuantity(1, nil))
}

func TestCancelOrder_ForeignOrderLooksMissing(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	_, err := svc.CancelOrder(context.Background(), code, 7, "not mine")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Equal(t, int32(8), store.stockQuantity(1, nil))
}

func TestCancelOrder_TooLate(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusShipping, domain.PaymentMethodCOD)

	_, err := svc.CancelOrder(context.Background(), code, 42, "too slow")
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, domain.OrderStatusShipping, transErr.From)
}

func TestReturnFlow_ReleasesStockOnApproval(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusCompleted, domain.PaymentMethodCOD)

	order, err := svc.RequestReturn(context.Background(), code, 42, "wrong size")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturnRequested, order.Status)
	assert.Equal(t, "wrong size", order.ReturnReason)

	// requesting does not touch stock yet
	assert.Equal(t, int32(8), store.stockQuantity(1, nil))

	order, err = svc.ApproveReturn(context.Background(), code, 1, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, order.Status)
	assert.Equal(t, int32(10), store.stockQuantity(1, nil))
}

func TestRequestReturn_OnlyAfterDelivery(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusConfirmed, domain.PaymentMethodCOD)

	_, err := svc.RequestReturn(context.Background(), code, 42, "nope")
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
}

func TestFullLifecycle(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	steps := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipping,
		domain.OrderStatusDelivered,
		domain.OrderStatusCompleted,
	}
	for _, next := range steps {
		order, err := svc.UpdateStatus(context.Background(), code, next, 1, "")
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, order.Status)
	}

	final, err := store.OrderByCode(context.Background(), code)
	require.NoError(t, err)
	assert.NotNil(t, final.ConfirmedAt)
	assert.NotNil(t, final.ShippedAt)
	assert.NotNil(t, final.DeliveredAt)
	assert.NotNil(t, final.CompletedAt)
	assert.True(t, final.IsPaid)

	history, err := store.StatusHistory(context.Background(), final.ID)
	require.NoError(t, err)
	assert.Len(t, history, len(steps))
}

func TestGetOrder_LoadsDetailAndCaches(t *testing.T) {
	svc, store, orderCache := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	order, err := svc.GetOrder(context.Background(), code, 42)
	require.NoError(t, err)
	assert.Equal(t, code, order.OrderCode)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Ceramic Mug", order.Items[0].ProductName)

	// the async cache fill lands eventually
	assert.Eventually(t, func() bool {
		_, err := orderCache.Get(context.Background(), code)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestGetOrder_ServedFromCache(t *testing.T) {
	svc, store, orderCache := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	cached := &domain.Order{OrderCode: code, UserID: 42, Status: domain.OrderStatusConfirmed}
	require.NoError(t, orderCache.Set(context.Background(), code, cached))

	order, err := svc.GetOrder(context.Background(), code, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestGetOrder_ScopedToOwner(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)

	_, err := svc.GetOrder(context.Background(), code, 7)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestListOrders_OnlyOwn(t *testing.T) {
	svc, store, _ := newOrderServiceUnderTest()
	seedOrder(t, store, 42, domain.OrderStatusPending, domain.PaymentMethodCOD)
	seedOrder(t, store, 42, domain.OrderStatusCompleted, domain.PaymentMethodCOD)
	seedOrder(t, store, 7, domain.OrderStatusPending, domain.PaymentMethodCOD)

	orders, err := svc.ListOrders(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, int64(42), o.UserID)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, store, orderCache := newOrderServiceUnderTest()
	code := seedOrder(t, store, 42, domain.OrderStatusConfirmed, domain.PaymentMethodVNPay)
	require.NoError(t, orderCache.Set(context.Background(), code, &domain.Order{OrderCode: code}))

	err := svc.UpdatePaymentStatus(context.Background(), code, true, "VNP-123456")
	require.NoError(t, err)

	order, err := store.OrderByCode(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	assert.Equal(t, "VNP-123456", order.TransactionID)
	require.NotNil(t, order.PaidAt)

	// the stale cached detail gets dropped
	assert.Eventually(t, func() bool {
		_, err := orderCache.Get(context.Background(), code)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
