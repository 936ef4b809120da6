package domain

import (
	"errors"
	"time"
)

// Order is the durable record tracked by the engine. Items, amounts,
// customer and shipping address are snapshots taken at creation and
// never change; status moves only through validated transitions.
type Order struct {
	ID                    string
	Status                Status
	Items                 []OrderItem
	CustomerRef           string
	ShippingAddress       ShippingAddress
	Amounts               Amounts
	PaymentMethod         string
	AssignedAgentRef      *string
	EstimatedCompletionAt *time.Time
	CancelReason          *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// OrderItem is a line-item snapshot, not a live catalog reference.
type OrderItem struct {
	ID         int
	OrderID    string
	ProductRef string
	Name       string
	UnitPrice  float64
	Quantity   int
}

type ShippingAddress struct {
	Line1       string
	City        string
	PostalCode  string
	Coordinates Coordinates
}

// Amounts are computed by the payment collaborator before the order
// enters the engine; the engine only stores them.
type Amounts struct {
	ItemsTotal  float64
	ShippingFee float64
	Tax         float64
	GrandTotal  float64
}

// NewOrder creates an order in pending status with creation-time
// validation applied.
func NewOrder(id, customerRef string, items []OrderItem, addr ShippingAddress, paymentMethod string, amounts Amounts) (*Order, error) {
	now := time.Now().UTC()
	order := &Order{
		ID:              id,
		Status:          StatusPending,
		Items:           items,
		CustomerRef:     customerRef,
		ShippingAddress: addr,
		Amounts:         amounts,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// Validate applies creation-time business rules.
func (o *Order) Validate() error {
	if o.ID == "" {
		return errors.New("order id is required")
	}

	if o.CustomerRef == "" {
		return errors.New("customer reference is required")
	}

	if len(o.Items) < 1 {
		return errors.New("order must have at least one item")
	}

	for _, item := range o.Items {
		if item.Name == "" {
			return errors.New("item name is required")
		}
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		if item.UnitPrice < 0 {
			return errors.New("item unit price must not be negative")
		}
	}

	if o.PaymentMethod == "" {
		return errors.New("payment method is required")
	}

	if o.Amounts.GrandTotal < 0 {
		return errors.New("grand total must not be negative")
	}

	return nil
}

// TransitionTo moves the order to newStatus after checking the
// canonical ordering. Repositories persist the matching StatusEntry in
// the same commit.
func (o *Order) TransitionTo(newStatus Status) error {
	if o.Status.IsTerminal() {
		return ErrTerminalState
	}
	if !o.Status.CanTransitionTo(newStatus) {
		return ErrInvalidTransition
	}
	if newStatus.RequiresAgent() && o.AssignedAgentRef == nil {
		return ErrInvalidTransition
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the stored record.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.AssignedAgentRef != nil {
		ref := *o.AssignedAgentRef
		c.AssignedAgentRef = &ref
	}
	if o.EstimatedCompletionAt != nil {
		at := *o.EstimatedCompletionAt
		c.EstimatedCompletionAt = &at
	}
	if o.CancelReason != nil {
		r := *o.CancelReason
		c.CancelReason = &r
	}
	return &c
}
