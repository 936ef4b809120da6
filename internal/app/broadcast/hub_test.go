package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

func drain(sub *Subscriber) []interfaces.Event {
	var out []interfaces.Event
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPublish_DeliversToMembersOnly(t *testing.T) {
	hub := NewHub(0, nil)
	member := NewSubscriber("member", 4)
	outsider := NewSubscriber("outsider", 4)

	hub.Join("order:1", member)
	hub.Join("order:2", outsider)

	hub.Publish("order:1", interfaces.Event{Type: interfaces.EventStatusChanged, OrderID: "1"})

	require.Len(t, drain(member), 1)
	require.Empty(t, drain(outsider))
}

func TestJoin_Idempotent(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("s1", 4)

	hub.Join("admin", sub)
	hub.Join("admin", sub)

	hub.Publish("admin", interfaces.Event{Type: interfaces.EventStatusChanged})
	require.Len(t, drain(sub), 1)
}

func TestLeave_Idempotent(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("s1", 4)

	hub.Join("admin", sub)
	hub.Leave("admin", sub)
	hub.Leave("admin", sub)
	hub.Leave("never-joined", sub)

	hub.Publish("admin", interfaces.Event{Type: interfaces.EventStatusChanged})
	require.Empty(t, drain(sub))
}

func TestLeaveAll(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("s1", 4)

	hub.Join("admin", sub)
	hub.Join("order:1", sub)
	hub.LeaveAll(sub)

	hub.Publish("admin", interfaces.Event{})
	hub.Publish("order:1", interfaces.Event{})
	require.Empty(t, drain(sub))
}

func TestPublish_MultipleRoomMembership(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("s1", 4)

	hub.Join("admin", sub)
	hub.Join("order:1", sub)

	// One publish per room; a subscriber in both rooms sees both.
	hub.Publish("order:1", interfaces.Event{OrderID: "1"})
	hub.Publish("admin", interfaces.Event{OrderID: "1"})
	require.Len(t, drain(sub), 2)
}

func TestPublish_SlowSubscriberDropsNotBlocks(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("slow", 1)
	hub.Join("order:1", sub)

	done := make(chan struct{})
	go func() {
		hub.Publish("order:1", interfaces.Event{Message: "first"})
		hub.Publish("order:1", interfaces.Event{Message: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	events := drain(sub)
	require.Len(t, events, 1)
	require.Equal(t, "first", events[0].Message)
}

func TestPublishLocation_Coalesces(t *testing.T) {
	hub := NewHub(50*time.Millisecond, nil)
	sub := NewSubscriber("s1", 8)
	hub.Join("order:1", sub)

	ev := func(lon float64) interfaces.Event {
		return interfaces.Event{
			Type:     interfaces.EventAgentLocationChanged,
			AgentID:  "a1",
			Location: &domain.Coordinates{Lat: 0, Lon: lon},
		}
	}

	hub.PublishLocation("order:1", ev(1))
	hub.PublishLocation("order:1", ev(2))
	hub.PublishLocation("order:1", ev(3))

	// The first passes through; the burst behind it collapses to the
	// latest value once the interval elapses.
	events := drain(sub)
	require.Len(t, events, 1)
	require.Equal(t, 1.0, events[0].Location.Lon)

	time.Sleep(120 * time.Millisecond)
	events = drain(sub)
	require.Len(t, events, 1)
	require.Equal(t, 3.0, events[0].Location.Lon)
}

func TestPublishLocation_FreshUpdateSupersedesPending(t *testing.T) {
	hub := NewHub(30*time.Millisecond, nil)
	sub := NewSubscriber("s1", 8)
	hub.Join("order:1", sub)

	ev := func(lon float64) interfaces.Event {
		return interfaces.Event{
			Type:     interfaces.EventAgentLocationChanged,
			AgentID:  "a1",
			Location: &domain.Coordinates{Lat: 0, Lon: lon},
		}
	}

	// An old coalesced update sits parked for a flush that has not run
	// yet, while the interval has already elapsed.
	hub.mu.Lock()
	hub.throttles["a1"] = &agentThrottle{
		lastSent: time.Now().Add(-time.Minute),
		pending:  &pendingLocation{room: "order:1", ev: ev(1)},
		timer:    time.AfterFunc(time.Hour, func() {}),
	}
	hub.mu.Unlock()

	hub.PublishLocation("order:1", ev(2))
	hub.flushLocation("a1")

	// The fresh position is delivered and the stale one never follows.
	events := drain(sub)
	require.Len(t, events, 1)
	require.Equal(t, 2.0, events[0].Location.Lon)
}

func TestPublishLocation_NoThrottleWhenIntervalZero(t *testing.T) {
	hub := NewHub(0, nil)
	sub := NewSubscriber("s1", 8)
	hub.Join("order:1", sub)

	for i := 0; i < 3; i++ {
		hub.PublishLocation("order:1", interfaces.Event{AgentID: "a1"})
	}
	require.Len(t, drain(sub), 3)
}

func TestPublishLocation_SeparateAgentsNotCoupled(t *testing.T) {
	hub := NewHub(time.Minute, nil)
	sub := NewSubscriber("s1", 8)
	hub.Join("order:1", sub)

	hub.PublishLocation("order:1", interfaces.Event{AgentID: "a1"})
	hub.PublishLocation("order:1", interfaces.Event{AgentID: "a2"})

	require.Len(t, drain(sub), 2)
}
