package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

type fakeOrderRepo struct {
	order   *domain.Order
	history []*domain.StatusEntry
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, domain.ErrOrderNotFound
	}
	return f.order.Clone(), nil
}

func (f *fakeOrderRepo) GetStatusHistory(_ context.Context, _ string) ([]*domain.StatusEntry, error) {
	return f.history, nil
}

func (f *fakeOrderRepo) Create(_ context.Context, _ *domain.Order) error { return nil }
func (f *fakeOrderRepo) ListActive(_ context.Context) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) CommitTransition(_ context.Context, _ *domain.Order, _ *domain.StatusEntry, _ string) error {
	return nil
}
func (f *fakeOrderRepo) CommitAssignment(_ context.Context, _ *domain.Order, _ *domain.StatusEntry, _ *domain.DeliveryAgent, _ bool, _ string) error {
	return nil
}

type fakeAgentRepo struct {
	agents []*domain.DeliveryAgent
}

func (f *fakeAgentRepo) ListAll(_ context.Context) ([]*domain.DeliveryAgent, error) {
	return f.agents, nil
}

func (f *fakeAgentRepo) Create(_ context.Context, _ *domain.DeliveryAgent) error { return nil }
func (f *fakeAgentRepo) GetByID(_ context.Context, _ string) (*domain.DeliveryAgent, error) {
	return nil, domain.ErrAgentNotFound
}
func (f *fakeAgentRepo) ListAvailable(_ context.Context) ([]*domain.DeliveryAgent, error) {
	return nil, nil
}
func (f *fakeAgentRepo) UpdateLocation(_ context.Context, _ string, _ domain.Coordinates) error {
	return nil
}
func (f *fakeAgentRepo) SetAvailability(_ context.Context, _ string, _ domain.Availability) error {
	return nil
}

func TestGetOrder(t *testing.T) {
	repo := &fakeOrderRepo{
		order: &domain.Order{ID: "ord-1", Status: domain.StatusInTransit},
		history: []*domain.StatusEntry{
			{OrderID: "ord-1", Status: domain.StatusPending},
			{OrderID: "ord-1", Status: domain.StatusConfirmed},
		},
	}
	svc := NewService(repo, &fakeAgentRepo{}, logger.New("test"))

	snap, err := svc.GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusInTransit, snap.Order.Status)
	require.Len(t, snap.History, 2)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := NewService(&fakeOrderRepo{}, &fakeAgentRepo{}, logger.New("test"))

	_, err := svc.GetOrder(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestListAgents(t *testing.T) {
	loc := &domain.Coordinates{Lat: 18.52, Lon: 73.85}
	agents := &fakeAgentRepo{agents: []*domain.DeliveryAgent{
		{
			ID:              "a1",
			Name:            "Ravi",
			Phone:           "555-0101",
			Availability:    domain.AgentOnDelivery,
			CurrentLocation: loc,
			RatingScore:     4.8,
			AvailableSince:  time.Now().UTC(),
		},
	}}
	svc := NewService(&fakeOrderRepo{}, agents, logger.New("test"))

	resp, err := svc.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, resp, 1)
	require.Equal(t, "a1", resp[0].AgentID)
	require.Equal(t, domain.AgentOnDelivery, resp[0].Availability)
	require.Equal(t, loc, resp[0].CurrentLocation)
}
