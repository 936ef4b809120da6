package domain

import (
	"errors"
	"time"
)

// DeliveryAgent is a courier that can be assigned to at most one
// non-terminal order at a time.
type DeliveryAgent struct {
	ID              string
	Name            string
	Phone           string
	VehicleInfo     string
	CurrentLocation *Coordinates
	RatingScore     float64
	Availability    Availability
	// AvailableSince is the moment of the last availability change.
	// Auto-assignment breaks distance ties oldest-idle-first on it.
	AvailableSince time.Time
	CreatedAt      time.Time
}

type Availability string

const (
	AgentAvailable  Availability = "available"
	AgentOnDelivery Availability = "on-delivery"
	AgentOffline    Availability = "offline"
)

// NewAgent creates an available agent. Used both by the admin roster
// and by the quick-create assignment path, which fills only name and
// phone.
func NewAgent(id, name, phone string) (*DeliveryAgent, error) {
	if name == "" {
		return nil, errors.New("agent name is required")
	}
	if phone == "" {
		return nil, errors.New("agent phone is required")
	}

	now := time.Now().UTC()
	return &DeliveryAgent{
		ID:             id,
		Name:           name,
		Phone:          phone,
		RatingScore:    5.0,
		Availability:   AgentAvailable,
		AvailableSince: now,
		CreatedAt:      now,
	}, nil
}

// SetAvailability records the change and its timestamp.
func (a *DeliveryAgent) SetAvailability(av Availability) {
	if a.Availability == av {
		return
	}
	a.Availability = av
	a.AvailableSince = time.Now().UTC()
}

// UpdateLocation records the latest position reported by the agent's
// device.
func (a *DeliveryAgent) UpdateLocation(c Coordinates) {
	a.CurrentLocation = &c
}

// Clone returns a copy safe to hand out as a snapshot.
func (a *DeliveryAgent) Clone() *DeliveryAgent {
	c := *a
	if a.CurrentLocation != nil {
		loc := *a.CurrentLocation
		c.CurrentLocation = &loc
	}
	return &c
}
