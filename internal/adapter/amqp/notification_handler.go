package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// NotificationHandler consumes mirrored engine events off the fanout
// exchange and prints them, standing in for push-notification
// delivery.
type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(lgr logger.Logger) *NotificationHandler {
	return &NotificationHandler{logger: lgr}
}

func (h *NotificationHandler) HandleEvent(ctx context.Context, body []byte) error {
	var ev interfaces.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse event", nil, err)
		return err
	}

	h.logger.Debug("event_received", fmt.Sprintf("Received %s for order %s", ev.Type, ev.OrderID), map[string]any{
		"order_id": ev.OrderID,
		"type":     string(ev.Type),
	})

	switch ev.Type {
	case interfaces.EventStatusChanged:
		fmt.Printf("Order %s: status changed to '%s' by %s\n", ev.OrderID, ev.NewStatus, ev.ActorRef)
	case interfaces.EventAgentAssigned:
		fmt.Printf("Order %s: agent %s assigned\n", ev.OrderID, ev.AgentName)
	case interfaces.EventAgentLocationChanged:
		if ev.Location != nil {
			fmt.Printf("Order %s: agent %s at %.5f,%.5f\n", ev.OrderID, ev.AgentID, ev.Location.Lat, ev.Location.Lon)
		}
	}

	return nil
}
