package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

type fakeAgentRepo struct {
	agents map[string]*domain.DeliveryAgent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: map[string]*domain.DeliveryAgent{}}
}

func (f *fakeAgentRepo) add(agent *domain.DeliveryAgent) {
	f.agents[agent.ID] = agent
}

func (f *fakeAgentRepo) Create(_ context.Context, agent *domain.DeliveryAgent) error {
	f.agents[agent.ID] = agent.Clone()
	return nil
}

func (f *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.DeliveryAgent, error) {
	if a, ok := f.agents[id]; ok {
		return a.Clone(), nil
	}
	return nil, domain.ErrAgentNotFound
}

func (f *fakeAgentRepo) ListAvailable(_ context.Context) ([]*domain.DeliveryAgent, error) {
	var list []*domain.DeliveryAgent
	for _, a := range f.agents {
		if a.Availability == domain.AgentAvailable {
			list = append(list, a.Clone())
		}
	}
	return list, nil
}

func (f *fakeAgentRepo) ListAll(_ context.Context) ([]*domain.DeliveryAgent, error) {
	var list []*domain.DeliveryAgent
	for _, a := range f.agents {
		list = append(list, a.Clone())
	}
	return list, nil
}

func (f *fakeAgentRepo) UpdateLocation(_ context.Context, id string, c domain.Coordinates) error {
	a, ok := f.agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	a.UpdateLocation(c)
	return nil
}

func (f *fakeAgentRepo) SetAvailability(_ context.Context, id string, av domain.Availability) error {
	a, ok := f.agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	a.SetAvailability(av)
	return nil
}

func testAgent(id string, av domain.Availability, since time.Time, loc *domain.Coordinates) *domain.DeliveryAgent {
	return &domain.DeliveryAgent{
		ID:              id,
		Name:            "Agent " + id,
		Phone:           "555-" + id,
		Availability:    av,
		AvailableSince:  since,
		CurrentLocation: loc,
	}
}

func TestAssignmentAllowed(t *testing.T) {
	for _, s := range []domain.Status{
		domain.StatusConfirmed, domain.StatusPreparing, domain.StatusPacked, domain.StatusAssigned,
	} {
		require.NoError(t, AssignmentAllowed(s), "%s should accept assignment", s)
	}

	err := AssignmentAllowed(domain.StatusPending)
	require.True(t, errors.Is(err, domain.ErrInvalidTransition))

	for _, s := range []domain.Status{
		domain.StatusPickedUp, domain.StatusInTransit, domain.StatusOutForDelivery,
	} {
		err := AssignmentAllowed(s)
		require.True(t, errors.Is(err, domain.ErrReassignmentNotAllowed), "%s should reject reassignment", s)
	}

	for _, s := range []domain.Status{domain.StatusDelivered, domain.StatusCancelled} {
		err := AssignmentAllowed(s)
		require.True(t, errors.Is(err, domain.ErrTerminalState))
	}
}

func TestSelectAuto_Nearest(t *testing.T) {
	repo := newFakeAgentRepo()
	now := time.Now().UTC()
	repo.add(testAgent("far", domain.AgentAvailable, now, &domain.Coordinates{Lat: 0, Lon: 2}))
	repo.add(testAgent("near", domain.AgentAvailable, now, &domain.Coordinates{Lat: 0, Lon: 0.5}))
	repo.add(testAgent("busy", domain.AgentOnDelivery, now, &domain.Coordinates{Lat: 0, Lon: 0.1}))

	alloc := NewAllocator(repo, nil)
	agent, err := alloc.SelectAuto(context.Background(), domain.Coordinates{Lat: 0, Lon: 0})
	require.NoError(t, err)
	require.Equal(t, "near", agent.ID)
}

func TestSelectAuto_TieBreaksOldestIdle(t *testing.T) {
	repo := newFakeAgentRepo()
	now := time.Now().UTC()
	loc := &domain.Coordinates{Lat: 10, Lon: 10}
	repo.add(testAgent("younger", domain.AgentAvailable, now, loc))
	repo.add(testAgent("older", domain.AgentAvailable, now.Add(-time.Hour), loc))

	alloc := NewAllocator(repo, nil)
	agent, err := alloc.SelectAuto(context.Background(), domain.Coordinates{Lat: 10, Lon: 10})
	require.NoError(t, err)
	require.Equal(t, "older", agent.ID)
}

func TestSelectAuto_LocatedBeatsUnlocated(t *testing.T) {
	repo := newFakeAgentRepo()
	now := time.Now().UTC()
	repo.add(testAgent("unknown", domain.AgentAvailable, now.Add(-time.Hour), nil))
	repo.add(testAgent("located", domain.AgentAvailable, now, &domain.Coordinates{Lat: 50, Lon: 50}))

	alloc := NewAllocator(repo, nil)
	agent, err := alloc.SelectAuto(context.Background(), domain.Coordinates{Lat: 0, Lon: 0})
	require.NoError(t, err)
	require.Equal(t, "located", agent.ID)
}

func TestSelectAuto_OnlyUnlocated(t *testing.T) {
	repo := newFakeAgentRepo()
	now := time.Now().UTC()
	repo.add(testAgent("a", domain.AgentAvailable, now, nil))
	repo.add(testAgent("b", domain.AgentAvailable, now.Add(-time.Minute), nil))

	alloc := NewAllocator(repo, nil)
	agent, err := alloc.SelectAuto(context.Background(), domain.Coordinates{})
	require.NoError(t, err)
	require.Equal(t, "b", agent.ID)
}

func TestSelectAuto_NoneAvailable(t *testing.T) {
	repo := newFakeAgentRepo()
	repo.add(testAgent("busy", domain.AgentOnDelivery, time.Now(), nil))
	repo.add(testAgent("off", domain.AgentOffline, time.Now(), nil))

	alloc := NewAllocator(repo, nil)
	_, err := alloc.SelectAuto(context.Background(), domain.Coordinates{})
	require.True(t, errors.Is(err, domain.ErrNoAgentAvailable))
}

func TestSelectManual(t *testing.T) {
	repo := newFakeAgentRepo()
	repo.add(testAgent("free", domain.AgentAvailable, time.Now(), nil))
	repo.add(testAgent("busy", domain.AgentOnDelivery, time.Now(), nil))

	alloc := NewAllocator(repo, nil)

	agent, err := alloc.SelectManual(context.Background(), "free")
	require.NoError(t, err)
	require.Equal(t, "free", agent.ID)

	_, err = alloc.SelectManual(context.Background(), "busy")
	require.True(t, errors.Is(err, domain.ErrAgentUnavailable))

	_, err = alloc.SelectManual(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrAgentNotFound))
}

func TestQuickCreate(t *testing.T) {
	alloc := NewAllocator(newFakeAgentRepo(), nil)

	agent, err := alloc.QuickCreate("Ravi", "555-0101")
	require.NoError(t, err)
	require.NotEmpty(t, agent.ID)
	require.Equal(t, domain.AgentAvailable, agent.Availability)

	_, err = alloc.QuickCreate("", "555-0101")
	require.Error(t, err)
}
