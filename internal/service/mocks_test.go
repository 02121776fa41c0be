package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/cache"
	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
)

// fakeStore implements repository.StoreInterface in memory. ExecTx snapshots
// all state and restores it when the callback fails, mirroring a database
// rollback, so tests can assert that failed checkouts leave nothing behind.
type fakeStore struct {
	mu sync.Mutex

	stock     map[string]*domain.StockUnit
	cartLines map[int64][]domain.CartLine
	vouchers  map[string]*domain.Voucher
	usage     []domain.VoucherUsage
	orders    map[int64]*domain.Order
	byCode    map[string]int64
	items     map[int64][]domain.OrderItem
	history   map[int64][]domain.StatusHistoryEntry
	outbox    []*repository.OutboxEvent
	nextID    int64

	// error injection
	insertOrderErr error
	deleteCartErr  error
	dupOrderOnce   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stock:     make(map[string]*domain.StockUnit),
		cartLines: make(map[int64][]domain.CartLine),
		vouchers:  make(map[string]*domain.Voucher),
		orders:    make(map[int64]*domain.Order),
		byCode:    make(map[string]int64),
		items:     make(map[int64][]domain.OrderItem),
		history:   make(map[int64][]domain.StatusHistoryEntry),
	}
}

func skuKey(productID int64, variantID *int64) string {
	if variantID == nil {
		return fmt.Sprintf("%d", productID)
	}
	return fmt.Sprintf("%d:%d", productID, *variantID)
}

func (f *fakeStore) addStock(productID int64, variantID *int64, su domain.StockUnit) {
	su.ProductID = productID
	su.VariantID = variantID
	f.stock[skuKey(productID, variantID)] = &su
}

func (f *fakeStore) addCartLine(line domain.CartLine) {
	f.nextID++
	line.ID = f.nextID
	line.Selected = true
	f.cartLines[line.UserID] = append(f.cartLines[line.UserID], line)
}

func (f *fakeStore) addVoucher(v domain.Voucher) {
	f.nextID++
	v.ID = f.nextID
	f.vouchers[v.Code] = &v
}

func (f *fakeStore) stockQuantity(productID int64, variantID *int64) int32 {
	return f.stock[skuKey(productID, variantID)].Quantity
}

// snapshot deep-copies everything mutable so ExecTx can roll back.
func (f *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()
	cp.nextID = f.nextID
	for k, v := range f.stock {
		su := *v
		cp.stock[k] = &su
	}
	for k, v := range f.cartLines {
		cp.cartLines[k] = append([]domain.CartLine(nil), v...)
	}
	for k, v := range f.vouchers {
		vc := *v
		cp.vouchers[k] = &vc
	}
	cp.usage = append([]domain.VoucherUsage(nil), f.usage...)
	for k, v := range f.orders {
		o := *v
		cp.orders[k] = &o
	}
	for k, v := range f.byCode {
		cp.byCode[k] = v
	}
	for k, v := range f.items {
		cp.items[k] = append([]domain.OrderItem(nil), v...)
	}
	for k, v := range f.history {
		cp.history[k] = append([]domain.StatusHistoryEntry(nil), v...)
	}
	cp.outbox = append([]*repository.OutboxEvent(nil), f.outbox...)
	return cp
}

func (f *fakeStore) restore(snap *fakeStore) {
	f.stock = snap.stock
	f.cartLines = snap.cartLines
	f.vouchers = snap.vouchers
	f.usage = snap.usage
	f.orders = snap.orders
	f.byCode = snap.byCode
	f.items = snap.items
	f.history = snap.history
	f.outbox = snap.outbox
	f.nextID = snap.nextID
}

func (f *fakeStore) ExecTx(_ context.Context, fn func(repository.Querier) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) RunMigrations(*repository.Credentials) error { return nil }
func (f *fakeStore) Close() error                                { return nil }

func (f *fakeStore) SelectedCartLines(_ context.Context, userID int64) ([]domain.CartLine, error) {
	var selected []domain.CartLine
	for _, line := range f.cartLines[userID] {
		if line.Selected {
			selected = append(selected, line)
		}
	}
	return selected, nil
}

func (f *fakeStore) DeleteCartLines(_ context.Context, userID int64, lineIDs []int64) error {
	if f.deleteCartErr != nil {
		return f.deleteCartErr
	}
	drop := make(map[int64]bool, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = true
	}
	var kept []domain.CartLine
	for _, line := range f.cartLines[userID] {
		if !drop[line.ID] {
			kept = append(kept, line)
		}
	}
	f.cartLines[userID] = kept
	return nil
}

func (f *fakeStore) StockUnit(_ context.Context, productID int64, variantID *int64) (*domain.StockUnit, error) {
	su, ok := f.stock[skuKey(productID, variantID)]
	if !ok {
		return nil, repository.ErrStockUnitNotFound
	}
	cp := *su
	return &cp, nil
}

func (f *fakeStore) ReserveStock(_ context.Context, productID int64, variantID *int64, quantity int32) error {
	su, ok := f.stock[skuKey(productID, variantID)]
	if !ok || su.Quantity < quantity {
		return repository.ErrInsufficientStock
	}
	su.Quantity -= quantity
	return nil
}

func (f *fakeStore) ReleaseStock(_ context.Context, productID int64, variantID *int64, quantity int32) error {
	su, ok := f.stock[skuKey(productID, variantID)]
	if !ok {
		return repository.ErrStockUnitNotFound
	}
	su.Quantity += quantity
	return nil
}

func (f *fakeStore) VoucherByCode(_ context.Context, code string) (*domain.Voucher, error) {
	v, ok := f.vouchers[code]
	if !ok {
		return nil, repository.ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) VoucherByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error) {
	return f.VoucherByCode(ctx, code)
}

func (f *fakeStore) CountVoucherUsage(_ context.Context, voucherID, userID int64) (int64, error) {
	var count int64
	for _, u := range f.usage {
		if u.VoucherID == voucherID && u.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) RedeemVoucher(_ context.Context, voucherID, userID, orderID int64) error {
	for _, v := range f.vouchers {
		if v.ID == voucherID {
			if !v.IsActive || (v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit) {
				return repository.ErrVoucherExhausted
			}
			v.UsedCount++
			f.usage = append(f.usage, domain.VoucherUsage{
				VoucherID: voucherID,
				UserID:    userID,
				OrderID:   &orderID,
				UsedAt:    time.Now(),
			})
			return nil
		}
	}
	return repository.ErrVoucherNotFound
}

func (f *fakeStore) DeactivateExpiredVouchers(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, v := range f.vouchers {
		if v.IsActive && v.EndDate != nil && v.EndDate.Before(now) {
			v.IsActive = false
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) InsertOrder(_ context.Context, order *domain.Order) error {
	if f.insertOrderErr != nil {
		return f.insertOrderErr
	}
	if f.dupOrderOnce {
		f.dupOrderOnce = false
		return repository.ErrDuplicateOrder
	}
	if _, exists := f.byCode[order.OrderCode]; exists {
		return repository.ErrDuplicateOrder
	}
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	f.orders[order.ID] = &cp
	f.byCode[order.OrderCode] = order.ID
	return nil
}

func (f *fakeStore) InsertOrderItems(_ context.Context, orderID int64, items []domain.OrderItem) error {
	for i := range items {
		f.nextID++
		items[i].ID = f.nextID
		items[i].OrderID = orderID
	}
	f.items[orderID] = append(f.items[orderID], items...)
	return nil
}

func (f *fakeStore) InsertStatusHistory(_ context.Context, entry *domain.StatusHistoryEntry) error {
	f.nextID++
	entry.ID = f.nextID
	f.history[entry.OrderID] = append(f.history[entry.OrderID], *entry)
	return nil
}

func (f *fakeStore) OrderByCode(_ context.Context, orderCode string) (*domain.Order, error) {
	id, ok := f.byCode[orderCode]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *f.orders[id]
	return &cp, nil
}

func (f *fakeStore) OrderByCodeForUpdate(ctx context.Context, orderCode string) (*domain.Order, error) {
	return f.OrderByCode(ctx, orderCode)
}

func (f *fakeStore) OrderItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) StatusHistory(_ context.Context, orderID int64) ([]domain.StatusHistoryEntry, error) {
	return append([]domain.StatusHistoryEntry(nil), f.history[orderID]...), nil
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, order *domain.Order) error {
	stored, ok := f.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	*stored = *order
	return nil
}

func (f *fakeStore) UpdatePaymentStatus(_ context.Context, orderID int64, isPaid bool, transactionID string, paidAt time.Time) error {
	stored, ok := f.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	stored.IsPaid = isPaid
	if isPaid {
		stored.PaidAt = &paidAt
		stored.TransactionID = transactionID
	}
	return nil
}

func (f *fakeStore) InsertOutboxEvent(_ context.Context, event *repository.OutboxEvent) error {
	f.nextID++
	event.ID = f.nextID
	event.CreatedAt = time.Now()
	f.outbox = append(f.outbox, event)
	return nil
}

func (f *fakeStore) UnprocessedOutboxEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	var out []*repository.OutboxEvent
	for _, ev := range f.outbox {
		if !ev.Processed {
			out = append(out, ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOutboxEventProcessed(_ context.Context, id int64) error {
	for _, ev := range f.outbox {
		if ev.ID == id {
			ev.Processed = true
		}
	}
	return nil
}

// fakeCache is an in-memory cache.OrderCache.
type fakeCache struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeCache() *fakeCache {
	return &fakeCache{orders: make(map[string]*domain.Order)}
}

func (c *fakeCache) Get(_ context.Context, orderCode string) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[orderCode]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	cp := *o
	return &cp, nil
}

func (c *fakeCache) Set(_ context.Context, orderCode string, order *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *order
	c.orders[orderCode] = &cp
	return nil
}

func (c *fakeCache) Delete(_ context.Context, orderCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, orderCode)
	return nil
}

// fixedFeeQuoter returns a constant shipping fee.
type fixedFeeQuoter struct {
	fee int64
	err error
}

func (q fixedFeeQuoter) Quote(_ context.Context, _ int64, _ domain.ReceiverInfo, _ int32) (int64, error) {
	return q.fee, q.err
}
