package domain

import (
	"fmt"
	"sync/atomic"
	"time"
)

var orderCodeCounter atomic.Int32

// NewOrderCode generates a human-readable order code:
// "AG" + yymmddhhmm + a 3-digit rolling counter, e.g. AG2412251430001.
// Uniqueness is ultimately enforced by the orders.order_code constraint;
// the counter just keeps codes distinct within the same minute.
func NewOrderCode(now time.Time) string {
	n := orderCodeCounter.Add(1) % 1000
	return fmt.Sprintf("AG%s%03d", now.Format("0601021504"), n)
}
