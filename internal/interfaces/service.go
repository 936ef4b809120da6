package interfaces

import (
	"context"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

// ActorSystem marks transitions driven by the engine itself (the
// progress scheduler) rather than a human actor.
const ActorSystem = "system"

// Commands carried from the transport adapters into the services.
type CreateOrderCommand struct {
	CustomerRef     string
	Items           []CreateOrderItemCommand
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	Amounts         domain.Amounts
}

type CreateOrderItemCommand struct {
	ProductRef string
	Name       string
	UnitPrice  float64
	Quantity   int
}

// AssignCommand selects exactly one of the three assignment paths:
// a named agent, automatic nearest-available selection, or an ad-hoc
// quick-created agent.
type AssignCommand struct {
	ActorRef   string
	AgentRef   string
	AutoAssign bool
	NewAgent   *NewAgentCommand
}

type NewAgentCommand struct {
	Name  string
	Phone string
}

// LifecycleService is the mutation surface of the engine. Per-order
// mutation is serialized; operations on different orders proceed in
// parallel.
type LifecycleService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	Transition(ctx context.Context, orderID string, target domain.Status, actorRef, message string) (*domain.Order, error)
	AutoProgress(ctx context.Context, orderID, actorRef string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID, actorRef, reason string) (*domain.Order, error)
	Assign(ctx context.Context, orderID string, cmd AssignCommand) (*domain.Order, error)
	UpdateAgentLocation(ctx context.Context, agentID, orderID string, c domain.Coordinates) error
}

// TrackingService is the reconciliation read path: a full snapshot any
// observer polls periodically so missed events never cause permanent
// divergence.
type TrackingService interface {
	GetOrder(ctx context.Context, orderID string) (*OrderSnapshot, error)
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusEntry, error)
	ListAgents(ctx context.Context) ([]*AgentStatusResponse, error)
}

type OrderSnapshot struct {
	Order   *domain.Order
	History []*domain.StatusEntry
}

type AgentStatusResponse struct {
	AgentID         string
	Name            string
	Phone           string
	Availability    domain.Availability
	CurrentLocation *domain.Coordinates
	RatingScore     float64
	AvailableSince  time.Time
}
