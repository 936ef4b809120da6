package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// assignableStatuses are the order statuses in which an agent may be
// set or replaced. From picked_up onward the courier has the parcel
// and reassignment is rejected.
var assignableStatuses = map[domain.Status]bool{
	domain.StatusConfirmed: true,
	domain.StatusPreparing: true,
	domain.StatusPacked:    true,
	domain.StatusAssigned:  true,
}

// AssignmentAllowed checks the order status against the dispatch
// rules. Pending orders are not assignable yet; terminal orders never.
func AssignmentAllowed(status domain.Status) error {
	if status.IsTerminal() {
		return domain.ErrTerminalState
	}
	if status == domain.StatusPending {
		return fmt.Errorf("%w: order must be confirmed before assignment", domain.ErrInvalidTransition)
	}
	if !assignableStatuses[status] {
		return domain.ErrReassignmentNotAllowed
	}
	return nil
}

// Allocator chooses which delivery agent serves an order. It only
// selects; persisting the assignment is the lifecycle service's
// single-commit responsibility.
type Allocator struct {
	agents interfaces.AgentRepository
	logger logger.Logger
}

func NewAllocator(agents interfaces.AgentRepository, lgr logger.Logger) *Allocator {
	return &Allocator{agents: agents, logger: lgr}
}

// SelectManual validates that the named agent exists and is available.
func (a *Allocator) SelectManual(ctx context.Context, agentID string) (*domain.DeliveryAgent, error) {
	agent, err := a.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Availability != domain.AgentAvailable {
		return nil, fmt.Errorf("%w: agent %s is %s", domain.ErrAgentUnavailable, agent.Name, agent.Availability)
	}
	return agent, nil
}

// SelectAuto picks, among all available agents, the one minimizing
// great-circle distance to the destination. Agents without a known
// location are considered only when no located agent exists. Distance
// ties break oldest-idle-first so dispatch stays fair and
// reproducible.
func (a *Allocator) SelectAuto(ctx context.Context, dest domain.Coordinates) (*domain.DeliveryAgent, error) {
	available, err := a.agents.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, domain.ErrNoAgentAvailable
	}

	type candidate struct {
		agent    *domain.DeliveryAgent
		located  bool
		distance float64
	}

	candidates := make([]candidate, 0, len(available))
	for _, agent := range available {
		c := candidate{agent: agent}
		if agent.CurrentLocation != nil {
			c.located = true
			c.distance = domain.HaversineKm(*agent.CurrentLocation, dest)
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.located != cj.located {
			return ci.located
		}
		if ci.located && ci.distance != cj.distance {
			return ci.distance < cj.distance
		}
		return ci.agent.AvailableSince.Before(cj.agent.AvailableSince)
	})

	chosen := candidates[0]
	if a.logger != nil {
		a.logger.Debug("agent_selected", "Nearest available agent selected", map[string]any{
			"agent_id":    chosen.agent.ID,
			"distance_km": chosen.distance,
			"located":     chosen.located,
		})
	}
	return chosen.agent, nil
}

// QuickCreate builds a fresh agent record from minimal input for the
// atomic create-and-assign path. The caller commits it together with
// the assignment so a crash cannot leave an orphaned agent.
func (a *Allocator) QuickCreate(name, phone string) (*domain.DeliveryAgent, error) {
	return domain.NewAgent(uuid.NewString(), name, phone)
}
