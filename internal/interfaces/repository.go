package interfaces

import (
	"context"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

// OrderRepository is the Order Store boundary. Commit methods apply
// the whole mutation in a single persistence transaction: partial
// writes (status updated but agent not released) are not permitted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusEntry, error)
	// ListActive returns orders that have not reached a terminal
	// status; the progress scheduler scans them.
	ListActive(ctx context.Context) ([]*domain.Order, error)
	// CommitTransition persists the order row, appends the history
	// entry and, when releaseAgentID is non-empty, reverts that
	// agent to available in the same transaction.
	CommitTransition(ctx context.Context, order *domain.Order, entry *domain.StatusEntry, releaseAgentID string) error
	// CommitAssignment persists the order row with its new agent,
	// the optional history entry, the agent's on-delivery state
	// (inserting the agent first when createAgent is set, so the
	// quick-create path cannot leave an orphaned agent) and the
	// release of the previous agent, all in one transaction.
	CommitAssignment(ctx context.Context, order *domain.Order, entry *domain.StatusEntry, agent *domain.DeliveryAgent, createAgent bool, releaseAgentID string) error
}

type AgentRepository interface {
	Create(ctx context.Context, agent *domain.DeliveryAgent) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryAgent, error)
	ListAvailable(ctx context.Context) ([]*domain.DeliveryAgent, error)
	ListAll(ctx context.Context) ([]*domain.DeliveryAgent, error)
	UpdateLocation(ctx context.Context, id string, c domain.Coordinates) error
	SetAvailability(ctx context.Context, id string, av domain.Availability) error
}
