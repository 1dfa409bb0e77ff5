package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Status represents the status of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order
func AllStatuses() []Status {
	return []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}
}

// RevenueStatuses are the statuses whose totals count as revenue
func RevenueStatuses() []Status {
	return []Status{StatusPaid, StatusShipped, StatusDelivered}
}

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered, StatusCancelled:
		return false
	}
	return false
}

// Item is an immutable snapshot of a purchased product
type Item struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
	CreatedAt   time.Time
}

// Line is the input for one order item at checkout
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Order is a placed order. Items and address never change after creation;
// only the status moves.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	UserID          uuid.UUID
	Status          Status
	Items           []Item
	ShippingAddress ShippingAddress
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	Total           decimal.Decimal
	Notes           string
	CancelReason    string
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// NewOrder creates a pending order from checkout lines
func NewOrder(orderNumber string, userID uuid.UUID, lines []Line, address ShippingAddress, shippingFee decimal.Decimal, notes string) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Order must belong to a user")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if shippingFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_FEE", "Shipping fee cannot be negative")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > 500 {
		return nil, shared.NewDomainError("INVALID_NOTES", "Notes cannot exceed 500 characters")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		UserID:            userID,
		Status:            StatusPending,
		ShippingAddress:   address,
		ShippingFee:       shippingFee.Round(2),
		Notes:             notes,
		Items:             make([]Item, 0, len(lines)),
	}

	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if seen[line.ProductID] {
			return nil, shared.NewDomainError("DUPLICATE_ITEM", "Product appears twice in the order")
		}
		seen[line.ProductID] = true
		item, err := newItem(o.ID, line, o.CreatedAt)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	o.recalculateTotals()

	o.Record(NewOrderPlacedEvent(o))

	return o, nil
}

func newItem(orderID uuid.UUID, line Line, createdAt time.Time) (Item, error) {
	if line.ProductID == uuid.Nil {
		return Item{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if line.Quantity <= 0 {
		return Item{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if line.UnitPrice.IsNegative() {
		return Item{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	unitPrice := line.UnitPrice.Round(2)
	return Item{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		SKU:         line.SKU,
		UnitPrice:   unitPrice,
		Quantity:    line.Quantity,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		CreatedAt:   createdAt,
	}, nil
}

// MarkPaid records payment, moving pending to paid
func (o *Order) MarkPaid() error {
	if err := o.transition(StatusPaid); err != nil {
		return err
	}
	o.PaidAt = timePtr(o.UpdatedAt)
	return nil
}

// Ship moves a paid order to shipped
func (o *Order) Ship() error {
	if err := o.transition(StatusShipped); err != nil {
		return err
	}
	o.ShippedAt = timePtr(o.UpdatedAt)
	return nil
}

// Deliver moves a shipped order to delivered
func (o *Order) Deliver() error {
	if err := o.transition(StatusDelivered); err != nil {
		return err
	}
	o.DeliveredAt = timePtr(o.UpdatedAt)
	return nil
}

// Cancel cancels a pending or paid order. The caller restores stock for
// the returned items in the same transaction.
func (o *Order) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason cannot exceed 500 characters")
	}
	previous := o.Status
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		reason = "cancelled"
	}
	o.CancelReason = reason
	o.CancelledAt = timePtr(o.UpdatedAt)
	o.Record(NewOrderCancelledEvent(o, previous))
	return nil
}

// TransitionTo applies the named target status
func (o *Order) TransitionTo(target Status, reason string) error {
	switch target {
	case StatusPaid:
		return o.MarkPaid()
	case StatusShipped:
		return o.Ship()
	case StatusDelivered:
		return o.Deliver()
	case StatusCancelled:
		return o.Cancel(reason)
	}
	return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Cannot move order to %q", target))
}

// CanBeCancelled reports whether Cancel would succeed
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanTransitionTo(StatusCancelled)
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// ItemCount returns the total number of units
func (o *Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// StockRestorations returns product ID to quantity for restoring stock
func (o *Order) StockRestorations() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(o.Items))
	for _, item := range o.Items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	previous := o.Status
	o.Status = target
	o.Touch()
	o.IncrementVersion()
	o.Record(NewOrderStatusChangedEvent(o, previous))
	return nil
}

func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.ShippingFee)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
