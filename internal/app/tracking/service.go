package tracking

import (
	"context"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// Service is the reconciliation read path. Observers poll GetOrder on
// an interval regardless of event delivery, so dropped broadcasts can
// never cause permanent divergence from the store.
type Service struct {
	orders interfaces.OrderRepository
	agents interfaces.AgentRepository
	logger logger.Logger
}

func NewService(orders interfaces.OrderRepository, agents interfaces.AgentRepository, lgr logger.Logger) *Service {
	return &Service{
		orders: orders,
		agents: agents,
		logger: lgr,
	}
}

// GetOrder returns the full authoritative snapshot: current order plus
// its append-only history.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*interfaces.OrderSnapshot, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	history, err := s.orders.GetStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &interfaces.OrderSnapshot{
		Order:   order,
		History: history,
	}, nil
}

func (s *Service) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusEntry, error) {
	return s.orders.GetStatusHistory(ctx, orderID)
}

func (s *Service) ListAgents(ctx context.Context) ([]*interfaces.AgentStatusResponse, error) {
	agents, err := s.agents.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]*interfaces.AgentStatusResponse, 0, len(agents))
	for _, a := range agents {
		resp = append(resp, &interfaces.AgentStatusResponse{
			AgentID:         a.ID,
			Name:            a.Name,
			Phone:           a.Phone,
			Availability:    a.Availability,
			CurrentLocation: a.CurrentLocation,
			RatingScore:     a.RatingScore,
			AvailableSince:  a.AvailableSince,
		})
	}

	return resp, nil
}
