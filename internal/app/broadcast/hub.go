package broadcast

import (
	"sync"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// Subscriber is one connected observer channel. The channel is
// buffered; when an observer falls behind, events are dropped rather
// than blocking the mutation path. Reconciliation polling covers the
// loss.
type Subscriber struct {
	id string
	ch chan interfaces.Event
}

func NewSubscriber(id string, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &Subscriber{id: id, ch: make(chan interfaces.Event, buffer)}
}

func (s *Subscriber) ID() string { return s.id }

func (s *Subscriber) Events() <-chan interfaces.Event { return s.ch }

// Hub is the room-based event broadcaster. Membership lives only in
// process memory: after a restart, clients re-join and re-fetch.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Subscriber]struct{}
	logger logger.Logger

	// Per-agent location throttling state.
	locationInterval time.Duration
	throttles        map[string]*agentThrottle
}

type agentThrottle struct {
	lastSent time.Time
	pending  *pendingLocation
	timer    *time.Timer
}

type pendingLocation struct {
	room string
	ev   interfaces.Event
}

func NewHub(locationInterval time.Duration, lgr logger.Logger) *Hub {
	return &Hub{
		rooms:            make(map[string]map[*Subscriber]struct{}),
		logger:           lgr,
		locationInterval: locationInterval,
		throttles:        make(map[string]*agentThrottle),
	}
}

// Join adds the subscriber to a room, creating the room on demand.
// Idempotent.
func (h *Hub) Join(room string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
}

// Leave removes the subscriber from a room. Idempotent; leaving the
// last member keeps nothing around, rooms are cheap and recreated on
// demand.
func (h *Hub) Leave(room string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// LeaveAll detaches the subscriber from every room, used when an
// observer connection closes.
func (h *Hub) LeaveAll(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, members := range h.rooms {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish delivers the event to every current member of the room,
// at most once each. A channel not joined at publish time never
// receives the event; there is no replay buffer. Calls for the same
// order arrive serialized from the per-order mutation path, so
// per-channel ordering within one order is preserved.
func (h *Hub) Publish(room string, ev interfaces.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(room, ev)
}

func (h *Hub) publishLocked(room string, ev interfaces.Event) {
	for sub := range h.rooms[room] {
		select {
		case sub.ch <- ev:
		default:
			if h.logger != nil {
				h.logger.Debug("event_dropped", "Subscriber buffer full, event dropped", map[string]any{
					"room":       room,
					"subscriber": sub.id,
					"type":       string(ev.Type),
				})
			}
		}
	}
}

// PublishLocation applies the per-agent minimum inter-update interval.
// Updates arriving faster than the limit are coalesced: only the
// latest value is delivered when the interval elapses.
func (h *Hub) PublishLocation(room string, ev interfaces.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	th, ok := h.throttles[ev.AgentID]
	if !ok {
		th = &agentThrottle{}
		h.throttles[ev.AgentID] = th
	}

	now := time.Now()
	if h.locationInterval <= 0 || now.Sub(th.lastSent) >= h.locationInterval {
		// A fresh update supersedes any coalesced one still waiting
		// for its flush; without this a parked flush could deliver a
		// stale position after this one.
		th.pending = nil
		if th.timer != nil {
			th.timer.Stop()
			th.timer = nil
		}
		th.lastSent = now
		h.publishLocked(room, ev)
		return
	}

	th.pending = &pendingLocation{room: room, ev: ev}
	if th.timer == nil {
		delay := th.lastSent.Add(h.locationInterval).Sub(now)
		agentID := ev.AgentID
		th.timer = time.AfterFunc(delay, func() { h.flushLocation(agentID) })
	}
}

func (h *Hub) flushLocation(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	th, ok := h.throttles[agentID]
	if !ok {
		return
	}
	th.timer = nil
	if th.pending == nil {
		return
	}
	th.lastSent = time.Now()
	h.publishLocked(th.pending.room, th.pending.ev)
	th.pending = nil
}
