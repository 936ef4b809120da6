package domain

import "time"

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusPacked         Status = "packed"
	StatusAssigned       Status = "assigned"
	StatusPickedUp       Status = "picked_up"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// canonicalOrder is the forward sequence an order passes through.
// cancelled sits outside the sequence and is reachable from any
// non-terminal status.
var canonicalOrder = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusPacked,
	StatusAssigned,
	StatusPickedUp,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
}

var canonicalIndex = func() map[Status]int {
	m := make(map[Status]int, len(canonicalOrder))
	for i, s := range canonicalOrder {
		m[s] = i
	}
	return m
}()

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := canonicalIndex[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the single next canonical status. The second return is
// false for delivered and cancelled.
func (s Status) Next() (Status, bool) {
	idx, ok := canonicalIndex[s]
	if !ok || idx == len(canonicalOrder)-1 {
		return s, false
	}
	return canonicalOrder[idx+1], true
}

// CanTransitionTo checks whether the canonical ordering allows moving
// from s to target: strictly forward, skipping at most one step, or
// cancelled. Out of pending only confirmed and cancelled are reachable
// (rejection is recorded as cancelled with a reason, not a separate
// terminal status).
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	if s == StatusPending {
		return target == StatusConfirmed
	}
	from, ok := canonicalIndex[s]
	if !ok {
		return false
	}
	to, ok := canonicalIndex[target]
	if !ok {
		return false
	}
	return to == from+1 || to == from+2
}

// RequiresAgent reports whether an order must carry an assigned agent
// before entering s. From picked_up onward a courier has the parcel.
func (s Status) RequiresAgent() bool {
	idx, ok := canonicalIndex[s]
	return ok && idx >= canonicalIndex[StatusPickedUp]
}

// StatusEntry is one append-only record in an order's status history.
type StatusEntry struct {
	ID       int
	OrderID  string
	Status   Status
	ActorRef string
	Message  string
	At       time.Time
}
