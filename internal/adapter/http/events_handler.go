package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/broadcast"
)

// EventsHandler streams room events to observers over SSE. Connecting
// joins the requested rooms and disconnecting leaves them: membership
// is session-scoped, so clients re-join and re-fetch on every
// (re)connect.
type EventsHandler struct {
	hub    *broadcast.Hub
	buffer int
	logger logger.Logger
}

func NewEventsHandler(hub *broadcast.Hub, buffer int, lgr logger.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		buffer: buffer,
		logger: lgr,
	}
}

// Stream handles GET /events?rooms=order:<id>,admin,agent:<id>.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roomsParam := r.URL.Query().Get("rooms")
	if roomsParam == "" {
		respondError(w, http.StatusBadRequest, "rooms query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := broadcast.NewSubscriber(uuid.NewString(), h.buffer)

	rooms := strings.Split(roomsParam, ",")
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if room != "" {
			h.hub.Join(room, sub)
		}
	}
	defer h.hub.LeaveAll(sub)

	h.logger.Debug("observer_joined", "Observer connected", map[string]any{
		"subscriber": sub.ID(),
		"rooms":      roomsParam,
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Periodic comments keep idle connections from being reaped by
	// proxies.
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("observer_left", "Observer disconnected", map[string]any{
				"subscriber": sub.ID(),
			})
			return

		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()

		case ev := <-sub.Events():
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body)
			flusher.Flush()
		}
	}
}
