package cache

import (
	"context"
	"errors"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
)

// OrderCache keeps fully-loaded order details keyed by order code. Entries
// are invalidated whenever the order's status changes.
type OrderCache interface {
	Get(ctx context.Context, orderCode string) (*domain.Order, error)
	Set(ctx context.Context, orderCode string, order *domain.Order) error
	Delete(ctx context.Context, orderCode string) error
}

var ErrCacheMiss = errors.New("cache miss")
