package interfaces

import (
	"fmt"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

// Room naming. Membership is session-scoped and in-memory; observers
// re-join on every connection.
const RoomAdmin = "admin"

func RoomForOrder(orderID string) string { return fmt.Sprintf("order:%s", orderID) }
func RoomForAgent(agentID string) string { return fmt.Sprintf("agent:%s", agentID) }

type EventType string

const (
	EventStatusChanged        EventType = "status_changed"
	EventAgentAssigned        EventType = "agent_assigned"
	EventAgentLocationChanged EventType = "agent_location_changed"
)

// Event is the payload fanned out to subscribed observer channels and
// mirrored to the AMQP fanout exchange. Delivery is best-effort;
// observers reconcile with GetOrder regardless.
type Event struct {
	Type                EventType           `json:"type"`
	OrderID             string              `json:"order_id"`
	NewStatus           domain.Status       `json:"new_status,omitempty"`
	ActorRef            string              `json:"actor_ref,omitempty"`
	Message             string              `json:"message,omitempty"`
	At                  time.Time           `json:"at"`
	EstimatedCompletion *time.Time          `json:"estimated_completion,omitempty"`
	AgentID             string              `json:"agent_id,omitempty"`
	AgentName           string              `json:"agent_name,omitempty"`
	Location            *domain.Coordinates `json:"location,omitempty"`
}

// EventBroadcaster is the in-process room fan-out. It is injected so
// services can be tested without a real transport.
type EventBroadcaster interface {
	Publish(room string, ev Event)
	// PublishLocation is rate-limited per agent; updates arriving
	// faster than the limit are coalesced to the latest value.
	PublishLocation(room string, ev Event)
}
