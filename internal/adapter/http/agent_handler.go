package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

type AgentHandler struct {
	lifecycle interfaces.LifecycleService
	tracking  interfaces.TrackingService
	logger    logger.Logger
}

func NewAgentHandler(lifecycle interfaces.LifecycleService, tracking interfaces.TrackingService, lgr logger.Logger) *AgentHandler {
	return &AgentHandler{
		lifecycle: lifecycle,
		tracking:  tracking,
		logger:    lgr,
	}
}

type LocationUpdateRequest struct {
	OrderID string  `json:"order_id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ListAgents handles GET /agents.
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	agents, err := h.tracking.ListAgents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]map[string]any, len(agents))
	for i, agent := range agents {
		entry := map[string]any{
			"agent_id":        agent.AgentID,
			"name":            agent.Name,
			"phone":           agent.Phone,
			"availability":    agent.Availability,
			"rating_score":    agent.RatingScore,
			"available_since": agent.AvailableSince.Format(time.RFC3339),
		}
		if agent.CurrentLocation != nil {
			entry["location"] = map[string]any{
				"lat": agent.CurrentLocation.Lat,
				"lon": agent.CurrentLocation.Lon,
			}
		}
		resp[i] = entry
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleAgents routes /agents/{id}/location.
func (h *AgentHandler) HandleAgents(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "agents" || parts[2] != "location" {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	agentID := parts[1]

	var req LocationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.lifecycle.UpdateAgentLocation(r.Context(), agentID, req.OrderID, domain.Coordinates{
		Lat: req.Lat,
		Lon: req.Lon,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
