package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of order lifecycle states
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// validNext maps each state to the set of states it may move to.
// delivered and cancelled are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsValidStatus reports whether s is one of the known order statuses
func IsValidStatus(s OrderStatus) bool {
	_, ok := validNext[s]
	return ok
}

// IsTerminal reports whether no further transition is legal from s
func IsTerminal(s OrderStatus) bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// Order represents a customer order. TotalAmount is derived at creation time
// from the item snapshots and never recomputed when catalog prices change.
type Order struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"userId" db:"user_id"`
	TotalAmount int64       `json:"totalAmount" db:"total_amount"`
	Status      OrderStatus `json:"status" db:"status"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a single line of an order. UnitPrice is the product price
// snapshotted at reservation time. Product is resolved for display and is
// nil when the referenced product has since been removed from the catalog.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"orderId" db:"order_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice int64     `json:"unitPrice" db:"unit_price"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
