package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/andaluza-pos/api/internal/ticket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
// Satisfied by *service.KitchenService; narrow interface for testability.
type KitchenServicer interface {
	ListActive(ctx context.Context) ([]service.KitchenOrder, error)
	Advance(ctx context.Context, orderID uuid.UUID) (*service.AdvanceResult, error)
}

// KitchenStore defines the database methods needed to print tickets.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.KitchenItemRow, error)
	ListOrderItemModifiersByItems(ctx context.Context, itemIDs []uuid.UUID) ([]database.OrderItemModifier, error)
}

// KitchenHandler drives the kitchen display endpoints.
type KitchenHandler struct {
	svc       KitchenServicer
	store     KitchenStore
	tracker   *service.Tracker
	broadcast Broadcaster
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer, store KitchenStore, broadcast Broadcaster) *KitchenHandler {
	return &KitchenHandler{
		svc:       svc,
		store:     store,
		tracker:   service.NewTracker(),
		broadcast: broadcast,
	}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListActive)
	r.Post("/orders/{id}/advance", h.Advance)
	r.Get("/orders/{id}/ticket", h.Ticket)
}

// --- Response types ---

type kitchenItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProductName     string     `json:"product_name"`
	Quantity        int32      `json:"quantity"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes"`
	SentToKitchenAt *time.Time `json:"sent_to_kitchen_at"`
}

type kitchenOrderResponse struct {
	orderResponse
	Phase        string                `json:"phase"`
	KitchenItems []kitchenItemResponse `json:"kitchen_items"`
}

type kitchenListResponse struct {
	Orders       []kitchenOrderResponse `json:"orders"`
	HasNewOrders bool                   `json:"has_new_orders"`
}

type advanceResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	PhaseBefore string    `json:"phase_before"`
	PhaseAfter  string    `json:"phase_after"`
	ItemsMoved  int64     `json:"items_moved"`
	OrderClosed bool      `json:"order_closed"`
}

func toKitchenOrderResponse(ko service.KitchenOrder) kitchenOrderResponse {
	resp := kitchenOrderResponse{
		orderResponse: dbOrderToResponse(ko.Order),
		Phase:         ko.Phase,
		KitchenItems:  []kitchenItemResponse{},
	}
	for _, item := range ko.Items {
		ir := kitchenItemResponse{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Status:      item.Status,
			Notes:       textPtr(item.Notes),
		}
		if item.SentToKitchenAt.Valid {
			t := item.SentToKitchenAt.Time
			ir.SentToKitchenAt = &t
		}
		resp.KitchenItems = append(resp.KitchenItems, ir)
	}
	return resp
}

// --- Handlers ---

// ListActive handles GET /kitchen/orders: the active queue with derived
// phases, plus a new-order flag for the display chime.
func (h *KitchenHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListActive(r.Context())
	if err != nil {
		log.Printf("ERROR: list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ids := make([]uuid.UUID, len(orders))
	resp := make([]kitchenOrderResponse, len(orders))
	for i, ko := range orders {
		ids[i] = ko.Order.ID
		resp[i] = toKitchenOrderResponse(ko)
	}

	writeJSON(w, http.StatusOK, kitchenListResponse{
		Orders:       resp,
		HasNewOrders: h.tracker.Observe(ids),
	})
}

// Advance handles POST /kitchen/orders/{id}/advance: the one-button phase
// bump for an entire order.
func (h *KitchenHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Advance(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: advance kitchen order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("order_items", "UPDATE", map[string]string{"order_id": orderID.String()})
	if result.OrderClosed {
		h.broadcast.Notify("orders", "UPDATE", map[string]string{"id": orderID.String()})
	}

	writeJSON(w, http.StatusOK, advanceResponse{
		OrderID:     result.OrderID,
		PhaseBefore: result.PhaseBefore,
		PhaseAfter:  result.PhaseAfter,
		ItemsMoved:  result.ItemsMoved,
		OrderClosed: result.OrderClosed,
	})
}

// Ticket handles GET /kitchen/orders/{id}/ticket, rendering the printable
// comanda as plain text.
func (h *KitchenHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var tableName string
	if order.TableID.Valid {
		table, err := h.store.GetTable(r.Context(), uuid.UUID(order.TableID.Bytes))
		if err == nil {
			tableName = table.Name
		} else if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: get table: %v", err)
		}
	}

	items, err := h.store.ListKitchenItemsByOrders(r.Context(), []uuid.UUID{orderID})
	if err != nil {
		log.Printf("ERROR: list kitchen items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	modifiers, err := h.store.ListOrderItemModifiersByItems(r.Context(), itemIDs)
	if err != nil {
		log.Printf("ERROR: list item modifiers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ticket.Format(order, tableName, items, modifiers))); err != nil {
		log.Printf("ERROR: write ticket: %v", err)
	}
}
