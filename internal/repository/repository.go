package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrVoucherNotFound   = errors.New("voucher not found")
	ErrStockUnitNotFound = errors.New("stock unit not found")
	ErrDuplicateOrder    = errors.New("order with this code already exists")

	// ErrInsufficientStock means a conditional decrement found less stock
	// than requested. The decrement is rejected, never clamped.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVoucherExhausted means the guarded used_count increment found the
	// global usage limit already reached.
	ErrVoucherExhausted = errors.New("voucher usage limit reached")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending notification written in the same transaction as
// the state change it describes. A poller publishes and marks it processed.
type OutboxEvent struct {
	ID          int64
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	Processed   bool
}

// Querier is the set of data operations. Store implements it against the
// connection pool; ExecTx hands the callback an implementation bound to a
// single transaction.
type Querier interface {
	// Cart
	SelectedCartLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	DeleteCartLines(ctx context.Context, userID int64, lineIDs []int64) error

	// Inventory ledger
	StockUnit(ctx context.Context, productID int64, variantID *int64) (*domain.StockUnit, error)
	ReserveStock(ctx context.Context, productID int64, variantID *int64, quantity int32) error
	ReleaseStock(ctx context.Context, productID int64, variantID *int64, quantity int32) error

	// Vouchers
	VoucherByCode(ctx context.Context, code string) (*domain.Voucher, error)
	VoucherByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error)
	CountVoucherUsage(ctx context.Context, voucherID, userID int64) (int64, error)
	RedeemVoucher(ctx context.Context, voucherID, userID, orderID int64) error
	DeactivateExpiredVouchers(ctx context.Context, now time.Time) (int64, error)

	// Orders
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	InsertStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error
	OrderByCode(ctx context.Context, orderCode string) (*domain.Order, error)
	OrderByCodeForUpdate(ctx context.Context, orderCode string) (*domain.Order, error)
	OrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	StatusHistory(ctx context.Context, orderID int64) ([]domain.StatusHistoryEntry, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, isPaid bool, transactionID string, paidAt time.Time) error

	// Outbox
	InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error
	UnprocessedOutboxEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkOutboxEventProcessed(ctx context.Context, id int64) error
}

// StoreInterface is what services depend on: plain queries plus the
// transaction wrapper used by checkout and status updates.
type StoreInterface interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
	RunMigrations(cred *Credentials) error
	Close() error
}
