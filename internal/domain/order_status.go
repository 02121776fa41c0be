package domain

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusConfirmed       OrderStatus = "CONFIRMED"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusShipping        OrderStatus = "SHIPPING"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturned        OrderStatus = "RETURNED"
)

// allowedTransitions maps each status to the statuses reachable from it.
// SHIPPING may be entered straight from CONFIRMED, skipping PROCESSING.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:       {OrderStatusProcessing, OrderStatusShipping, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusShipping},
	OrderStatusShipping:        {OrderStatusDelivered},
	OrderStatusDelivered:       {OrderStatusCompleted, OrderStatusReturnRequested},
	OrderStatusCompleted:       {OrderStatusReturnRequested},
	OrderStatusReturnRequested: {OrderStatusReturned},
	OrderStatusReturned:        {},
	OrderStatusCancelled:       {},
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// ReleasesStock reports whether entering s returns the order's reserved
// quantities to the inventory ledger. The transition table guarantees each
// of these states is entered at most once, so release happens exactly once.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}
