package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// OrderHandler exposes the engine's mutation and reconciliation
// operations. Actor identity and role arrive as opaque fields; the
// engine trusts the caller's role.
type OrderHandler struct {
	lifecycle interfaces.LifecycleService
	tracking  interfaces.TrackingService
	logger    logger.Logger
}

func NewOrderHandler(lifecycle interfaces.LifecycleService, tracking interfaces.TrackingService, lgr logger.Logger) *OrderHandler {
	return &OrderHandler{
		lifecycle: lifecycle,
		tracking:  tracking,
		logger:    lgr,
	}
}

type CreateOrderRequest struct {
	CustomerRef     string             `json:"customer_ref"`
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress AddressRequest     `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	Amounts         AmountsRequest     `json:"amounts"`
}

type OrderItemRequest struct {
	ProductRef string  `json:"product_ref"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
}

type AddressRequest struct {
	Line1      string  `json:"line1"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

type AmountsRequest struct {
	ItemsTotal  float64 `json:"items_total"`
	ShippingFee float64 `json:"shipping_fee"`
	Tax         float64 `json:"tax"`
	GrandTotal  float64 `json:"grand_total"`
}

type TransitionRequest struct {
	Status   string `json:"status"`
	ActorRef string `json:"actor_ref"`
	Message  string `json:"message"`
}

type CancelRequest struct {
	ActorRef string `json:"actor_ref"`
	Reason   string `json:"reason"`
}

type AutoProgressRequest struct {
	ActorRef string `json:"actor_ref"`
}

type AssignRequest struct {
	ActorRef   string           `json:"actor_ref"`
	AgentID    string           `json:"agent_id,omitempty"`
	AutoAssign bool             `json:"auto_assign,omitempty"`
	NewAgent   *NewAgentRequest `json:"new_agent,omitempty"`
}

type NewAgentRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateOrder handles POST /orders.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]interfaces.CreateOrderItemCommand, len(req.Items))
	for i, item := range req.Items {
		items[i] = interfaces.CreateOrderItemCommand{
			ProductRef: item.ProductRef,
			Name:       strings.TrimSpace(item.Name),
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerRef: strings.TrimSpace(req.CustomerRef),
		Items:       items,
		ShippingAddress: domain.ShippingAddress{
			Line1:      req.ShippingAddress.Line1,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Coordinates: domain.Coordinates{
				Lat: req.ShippingAddress.Lat,
				Lon: req.ShippingAddress.Lon,
			},
		},
		PaymentMethod: req.PaymentMethod,
		Amounts: domain.Amounts{
			ItemsTotal:  req.Amounts.ItemsTotal,
			ShippingFee: req.Amounts.ShippingFee,
			Tax:         req.Amounts.Tax,
			GrandTotal:  req.Amounts.GrandTotal,
		},
	}

	order, err := h.lifecycle.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", nil, err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, orderToResponse(order))
}

// HandleOrders routes /orders/{id} and its sub-operations.
func (h *OrderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "orders" {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	orderID := parts[1]

	if len(parts) == 2 {
		h.getOrder(w, r, orderID)
		return
	}

	switch parts[2] {
	case "history":
		h.getHistory(w, r, orderID)
	case "status":
		h.transition(w, r, orderID)
	case "auto-progress":
		h.autoProgress(w, r, orderID)
	case "assign":
		h.assign(w, r, orderID)
	case "cancel":
		h.cancel(w, r, orderID)
	default:
		respondError(w, http.StatusNotFound, "Not found")
	}
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snapshot, err := h.tracking.GetOrder(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := orderToResponse(snapshot.Order)
	resp["status_history"] = historyToResponse(snapshot.History)
	respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) getHistory(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	history, err := h.tracking.GetStatusHistory(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, historyToResponse(history))
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.lifecycle.Transition(r.Context(), orderID, domain.Status(req.Status), req.ActorRef, req.Message)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orderToResponse(order))
}

func (h *OrderHandler) autoProgress(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AutoProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := req.ActorRef
	if actor == "" {
		actor = interfaces.ActorSystem
	}

	order, err := h.lifecycle.AutoProgress(r.Context(), orderID, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orderToResponse(order))
}

func (h *OrderHandler) assign(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := interfaces.AssignCommand{
		ActorRef:   req.ActorRef,
		AgentRef:   req.AgentID,
		AutoAssign: req.AutoAssign,
	}
	if req.NewAgent != nil {
		cmd.NewAgent = &interfaces.NewAgentCommand{
			Name:  strings.TrimSpace(req.NewAgent.Name),
			Phone: strings.TrimSpace(req.NewAgent.Phone),
		}
	}

	order, err := h.lifecycle.Assign(r.Context(), orderID, cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orderToResponse(order))
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.lifecycle.Cancel(r.Context(), orderID, req.ActorRef, req.Reason)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orderToResponse(order))
}

func orderToResponse(order *domain.Order) map[string]any {
	items := make([]map[string]any, len(order.Items))
	for i, item := range order.Items {
		items[i] = map[string]any{
			"product_ref": item.ProductRef,
			"name":        item.Name,
			"unit_price":  item.UnitPrice,
			"quantity":    item.Quantity,
		}
	}

	resp := map[string]any{
		"order_id":     order.ID,
		"status":       order.Status,
		"customer_ref": order.CustomerRef,
		"items":        items,
		"shipping_address": map[string]any{
			"line1":       order.ShippingAddress.Line1,
			"city":        order.ShippingAddress.City,
			"postal_code": order.ShippingAddress.PostalCode,
			"lat":         order.ShippingAddress.Coordinates.Lat,
			"lon":         order.ShippingAddress.Coordinates.Lon,
		},
		"payment_method": order.PaymentMethod,
		"amounts": map[string]any{
			"items_total":  order.Amounts.ItemsTotal,
			"shipping_fee": order.Amounts.ShippingFee,
			"tax":          order.Amounts.Tax,
			"grand_total":  order.Amounts.GrandTotal,
		},
		"assigned_agent_id":       order.AssignedAgentRef,
		"estimated_completion_at": order.EstimatedCompletionAt,
		"cancel_reason":           order.CancelReason,
		"created_at":              order.CreatedAt.Format(time.RFC3339),
		"updated_at":              order.UpdatedAt.Format(time.RFC3339),
	}
	return resp
}

func historyToResponse(history []*domain.StatusEntry) []map[string]any {
	resp := make([]map[string]any, len(history))
	for i, entry := range history {
		resp[i] = map[string]any{
			"status":    entry.Status,
			"actor_ref": entry.ActorRef,
			"message":   entry.Message,
			"at":        entry.At.Format(time.RFC3339Nano),
		}
	}
	return resp
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondDomainError maps the engine's error taxonomy onto HTTP so
// callers get a rule-specific, actionable message.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrAgentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrNoAgentAvailable),
		errors.Is(err, domain.ErrAgentUnavailable),
		errors.Is(err, domain.ErrReassignmentNotAllowed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
