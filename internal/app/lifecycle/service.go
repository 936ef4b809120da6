package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/dispatch"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/config"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// errStaleAttempt marks a transition computed from a status that is no
// longer current. Stale attempts are harmless no-ops, never errors, so
// a racing scheduler tick cannot corrupt a human-driven update.
var errStaleAttempt = errors.New("stale transition attempt")

// Service is the state machine and the only mutation boundary of the
// engine. Every mutation for one order runs under that order's lock
// and lands in the store as a single commit.
type Service struct {
	orders      interfaces.OrderRepository
	agents      interfaces.AgentRepository
	allocator   *dispatch.Allocator
	broadcaster interfaces.EventBroadcaster
	publisher   interfaces.MessagePublisher
	logger      logger.Logger
	cfg         config.EngineConfig
	locks       *keyMutex
}

func NewService(
	orders interfaces.OrderRepository,
	agents interfaces.AgentRepository,
	allocator *dispatch.Allocator,
	broadcaster interfaces.EventBroadcaster,
	publisher interfaces.MessagePublisher,
	lgr logger.Logger,
	cfg config.EngineConfig,
) *Service {
	return &Service{
		orders:      orders,
		agents:      agents,
		allocator:   allocator,
		broadcaster: broadcaster,
		publisher:   publisher,
		logger:      lgr,
		cfg:         cfg,
		locks:       newKeyMutex(),
	}
}

// CreateOrder records an order handed over by the catalog and payment
// collaborators. Items, address and amounts are stored as immutable
// snapshots.
func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}

	order, err := domain.NewOrder(uuid.NewString(), cmd.CustomerRef, items, cmd.ShippingAddress, cmd.PaymentMethod, cmd.Amounts)
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", nil, err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", nil, err)
		return nil, err
	}

	s.logger.Debug("order_created", "Order created", map[string]any{"order_id": order.ID})

	s.publishStatusChanged(ctx, order, &domain.StatusEntry{
		OrderID:  order.ID,
		Status:   order.Status,
		ActorRef: cmd.CustomerRef,
		At:       order.CreatedAt,
	})

	return order.Clone(), nil
}

// Transition applies a requested status change after validating it
// against the canonical ordering.
func (s *Service) Transition(ctx context.Context, orderID string, target domain.Status, actorRef, message string) (*domain.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.applyTransition(ctx, orderID, "", target, actorRef, message, "")
	if err != nil {
		return nil, err
	}
	return order, nil
}

// AutoProgress advances the order by the single next canonical status
// with actorRef recorded as given. Terminal orders and attempts that
// lost a race to another actor are no-ops, not errors, so a scheduler
// tick can never advance an order twice.
func (s *Service) AutoProgress(ctx context.Context, orderID, actorRef string) (*domain.Order, error) {
	observed, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if observed.Status.IsTerminal() {
		return observed.Clone(), nil
	}
	next, ok := observed.Status.Next()
	if !ok {
		return observed.Clone(), nil
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.applyTransition(ctx, orderID, observed.Status, next, actorRef, "", "")
	if errors.Is(err, errStaleAttempt) {
		current, getErr := s.orders.GetByID(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return current.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves the order to cancelled, recording the reason. The
// free-text reason is where admin rejection and customer cancellation
// are told apart.
func (s *Service) Cancel(ctx context.Context, orderID, actorRef, reason string) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.applyTransition(ctx, orderID, "", domain.StatusCancelled, actorRef, reason, reason)
}

// applyTransition is the serialized core. expected, when non-empty,
// makes the transition compare-and-advance: if the current status has
// moved on, errStaleAttempt is returned and nothing changes.
func (s *Service) applyTransition(ctx context.Context, orderID string, expected, target domain.Status, actorRef, message, cancelReason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if expected != "" && order.Status != expected {
		return nil, errStaleAttempt
	}

	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrTerminalState, order.Status)
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", domain.ErrInvalidTransition, order.Status, target)
	}
	if target.RequiresAgent() && order.AssignedAgentRef == nil {
		return nil, fmt.Errorf("%w: cannot move to %s before an agent is assigned", domain.ErrInvalidTransition, target)
	}

	// Entering assigned requires an agent; without one the state
	// machine consults the allocator synchronously.
	if target == domain.StatusAssigned && order.AssignedAgentRef == nil {
		agent, err := s.allocator.SelectAuto(ctx, order.ShippingAddress.Coordinates)
		if err != nil {
			return nil, err
		}
		return s.commitAssignment(ctx, order, agent, false, actorRef, message)
	}

	releaseAgentID := ""
	if target.IsTerminal() && order.AssignedAgentRef != nil {
		releaseAgentID = *order.AssignedAgentRef
	}

	if err := order.TransitionTo(target); err != nil {
		return nil, err
	}
	s.recomputeEstimate(order)
	if cancelReason != "" {
		order.CancelReason = &cancelReason
	}

	entry := &domain.StatusEntry{
		OrderID:  order.ID,
		Status:   target,
		ActorRef: actorRef,
		Message:  message,
		At:       time.Now().UTC(),
	}

	if err := s.orders.CommitTransition(ctx, order, entry, releaseAgentID); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to commit transition", map[string]any{
			"order_id": orderID,
			"target":   string(target),
		}, err)
		return nil, err
	}

	s.publishStatusChanged(ctx, order, entry)
	return order.Clone(), nil
}

// Assign sets or replaces the order's delivery agent through one of
// the three dispatch paths.
func (s *Service) Assign(ctx context.Context, orderID string, cmd interfaces.AssignCommand) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := dispatch.AssignmentAllowed(order.Status); err != nil {
		return nil, err
	}

	var (
		agent       *domain.DeliveryAgent
		createAgent bool
	)
	switch {
	case cmd.NewAgent != nil:
		agent, err = s.allocator.QuickCreate(cmd.NewAgent.Name, cmd.NewAgent.Phone)
		createAgent = true
	case cmd.AutoAssign:
		agent, err = s.allocator.SelectAuto(ctx, order.ShippingAddress.Coordinates)
	case cmd.AgentRef != "":
		agent, err = s.allocator.SelectManual(ctx, cmd.AgentRef)
	default:
		return nil, fmt.Errorf("assignment requires agent_ref, auto_assign or new_agent")
	}
	if err != nil {
		return nil, err
	}

	return s.commitAssignment(ctx, order, agent, createAgent, cmd.ActorRef, "")
}

// commitAssignment applies the full assignment episode in one store
// commit: order status and agent ref, the history entry, the new
// agent's on-delivery state (created first on the quick path) and the
// release of any previous agent.
func (s *Service) commitAssignment(ctx context.Context, order *domain.Order, agent *domain.DeliveryAgent, createAgent bool, actorRef, message string) (*domain.Order, error) {
	releaseAgentID := ""
	if order.AssignedAgentRef != nil && *order.AssignedAgentRef != agent.ID {
		releaseAgentID = *order.AssignedAgentRef
	}

	if message == "" {
		message = fmt.Sprintf("assigned to %s", agent.Name)
		if releaseAgentID != "" {
			message = fmt.Sprintf("reassigned to %s", agent.Name)
		}
	}

	// Assignment is its own episode in the ordering: it may pull a
	// confirmed or preparing order straight to assigned.
	agentID := agent.ID
	order.AssignedAgentRef = &agentID
	order.Status = domain.StatusAssigned
	order.UpdatedAt = time.Now().UTC()
	s.recomputeEstimate(order)

	agent.SetAvailability(domain.AgentOnDelivery)

	entry := &domain.StatusEntry{
		OrderID:  order.ID,
		Status:   domain.StatusAssigned,
		ActorRef: actorRef,
		Message:  message,
		At:       order.UpdatedAt,
	}

	if err := s.orders.CommitAssignment(ctx, order, entry, agent, createAgent, releaseAgentID); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to commit assignment", map[string]any{
			"order_id": order.ID,
			"agent_id": agent.ID,
		}, err)
		return nil, err
	}

	s.publishStatusChanged(ctx, order, entry)
	s.publishEvent(ctx, order, interfaces.Event{
		Type:      interfaces.EventAgentAssigned,
		OrderID:   order.ID,
		ActorRef:  actorRef,
		At:        entry.At,
		AgentID:   agent.ID,
		AgentName: agent.Name,
	})

	return order.Clone(), nil
}

// UpdateAgentLocation persists the agent's position and forwards it to
// the order's room, rate-limited per agent.
func (s *Service) UpdateAgentLocation(ctx context.Context, agentID, orderID string, c domain.Coordinates) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.AssignedAgentRef == nil || *order.AssignedAgentRef != agentID {
		return fmt.Errorf("%w: agent %s is not assigned to order %s", domain.ErrAgentNotFound, agentID, orderID)
	}

	if err := s.agents.UpdateLocation(ctx, agentID, c); err != nil {
		return err
	}

	loc := c
	s.broadcaster.PublishLocation(interfaces.RoomForOrder(orderID), interfaces.Event{
		Type:     interfaces.EventAgentLocationChanged,
		OrderID:  orderID,
		At:       time.Now().UTC(),
		AgentID:  agentID,
		Location: &loc,
	})
	return nil
}

func (s *Service) recomputeEstimate(order *domain.Order) {
	d, ok := s.cfg.ETAFor(string(order.Status))
	if !ok {
		order.EstimatedCompletionAt = nil
		return
	}
	at := time.Now().UTC().Add(d)
	order.EstimatedCompletionAt = &at
}

func (s *Service) publishStatusChanged(ctx context.Context, order *domain.Order, entry *domain.StatusEntry) {
	s.publishEvent(ctx, order, interfaces.Event{
		Type:                interfaces.EventStatusChanged,
		OrderID:             order.ID,
		NewStatus:           entry.Status,
		ActorRef:            entry.ActorRef,
		Message:             entry.Message,
		At:                  entry.At,
		EstimatedCompletion: order.EstimatedCompletionAt,
	})
}

// publishEvent fans the event out to the order room, the admin cohort
// and the assigned agent's room, then mirrors it to AMQP. All
// deliveries are best-effort: a broadcast failure never blocks the
// committed mutation.
func (s *Service) publishEvent(ctx context.Context, order *domain.Order, ev interfaces.Event) {
	s.broadcaster.Publish(interfaces.RoomForOrder(order.ID), ev)
	s.broadcaster.Publish(interfaces.RoomAdmin, ev)
	if order.AssignedAgentRef != nil {
		s.broadcaster.Publish(interfaces.RoomForAgent(*order.AssignedAgentRef), ev)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
		s.logger.Error("rabbitmq_publish_failed", "Failed to mirror event, observers rely on reconciliation", map[string]any{
			"order_id": order.ID,
			"type":     string(ev.Type),
		}, err)
	}
}
